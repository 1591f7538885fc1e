package school

import (
	"time"

	"github.com/trezcool/shule/core"
)

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Class struct {
	ID           string    `json:"id"`
	SchoolID     string    `json:"school_id"`
	Name         string    `json:"name"`
	AcademicYear string    `json:"academic_year"`
	CreatedAt    time.Time `json:"created_at"`
}

type Subject struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id"`
	Name        string    `json:"name"`
	Coefficient float64   `json:"coefficient"`
	CreatedAt   time.Time `json:"created_at"`
}

type Classroom struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberKind tells teachers and parents apart.
type MemberKind string

const (
	MemberTeacher MemberKind = "teacher"
	MemberParent  MemberKind = "parent"
)

// Member is a teacher or a parent profile, optionally linked to a user account.
type Member struct {
	ID        string     `json:"id"`
	Kind      MemberKind `json:"kind"`
	SchoolID  string     `json:"school_id"`
	UserID    string     `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
}

type Student struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	ClassID   string    `json:"class_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

type NewSchool struct {
	Name string `json:"name" validate:"required"`
}

type NewClass struct {
	Name         string `json:"name" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
}

type NewSubject struct {
	Name        string  `json:"name" validate:"required"`
	Coefficient float64 `json:"coefficient" validate:"required,gt=0"`
}

type NewClassroom struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"omitempty,min=0"`
}

type NewMember struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	UserID string `json:"user_id" validate:"omitempty,uuid"`
}

func (nm *NewMember) Clean() {
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
}

type NewStudent struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	ClassID   string `json:"class_id" validate:"required,uuid"`
	ParentID  string `json:"parent_id" validate:"omitempty,uuid"`
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
}

type UpdateStudent struct {
	ClassID  string `json:"class_id" validate:"omitempty,uuid"`
	ParentID string `json:"parent_id" validate:"omitempty,uuid"`
	IsActive *bool  `json:"is_active"`
}

type StudentFilter struct {
	SchoolID string `query:"-"`
	ClassID  string `query:"class_id"`
	ParentID string `query:"parent_id"`
	IsActive *bool  `query:"is_active"`
}
