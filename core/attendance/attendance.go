// Package attendance keeps the attendance records of students, the source of attendance reports.
package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type Status string

const (
	StatusAbsent  Status = "Absent"
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
)

var ErrNotFound = core.NewNotFoundError("attendance record")

type Record struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id,omitempty"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NewRecord struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	CourseID  string `json:"course_id" validate:"omitempty,uuid"`
	Date      string `json:"date" validate:"required,date"`
	Status    Status `json:"status" validate:"required,oneof=Absent Present Late"`
	Note      string `json:"note" validate:"omitempty,max=500"`
}

type Filter struct {
	SchoolID   string   `query:"-"`
	StudentID  string   `query:"student_id"`
	StudentIDs []string `query:"-"`
	Status     Status   `query:"status"`
}

type (
	Repository interface {
		CreateRecord(ctx context.Context, r Record) (Record, error)
		QueryRecords(ctx context.Context, filter Filter) ([]Record, error)
		DeleteRecord(ctx context.Context, schoolID, id string) error
		// CountByStatus groups the records of a student by status.
		CountByStatus(ctx context.Context, studentID string) (map[Status]int, error)
	}

	Students interface {
		GetStudent(ctx context.Context, schoolID, id string) (school.Student, error)
		StudentScope(ctx context.Context, p user.Principal) (ids []string, all bool, err error)
	}

	Service struct {
		repo     Repository
		students Students
		validate *validator.Validate
	}
)

func NewService(repo Repository, students Students, validate *validator.Validate) *Service {
	return &Service{repo: repo, students: students, validate: validate}
}

// Create records the attendance of a student; admins and teachers only.
func (svc *Service) Create(ctx context.Context, p user.Principal, nr NewRecord) (Record, error) {
	switch p.Kind() {
	case user.KindAdmin, user.KindTeacher:
	default:
		return Record{}, core.ErrPermissionDenied
	}
	if err := svc.validate.Struct(nr); err != nil {
		return Record{}, err
	}
	schoolID := p.Ident().SchoolID
	if _, err := svc.students.GetStudent(ctx, schoolID, nr.StudentID); err != nil {
		if core.IsNotFound(err) {
			return Record{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Record{}, errors.Wrap(err, "finding student")
	}
	date, err := time.Parse("2006-01-02", nr.Date)
	if err != nil {
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
	}

	return svc.repo.CreateRecord(ctx, Record{
		SchoolID:  schoolID,
		StudentID: nr.StudentID,
		CourseID:  nr.CourseID,
		Date:      date,
		Status:    nr.Status,
		Note:      nr.Note,
		CreatedAt: core.NowFunc(),
	})
}

// Query returns the records visible to `p`.
func (svc *Service) Query(ctx context.Context, p user.Principal, filter Filter) ([]Record, error) {
	ids, all, err := svc.students.StudentScope(ctx, p)
	if err != nil {
		return nil, err
	}
	filter.SchoolID = p.Ident().SchoolID
	if !all {
		if len(ids) == 0 {
			return []Record{}, nil
		}
		filter.StudentIDs = ids
	}
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, p user.Principal, id string) error {
	if p.Kind() != user.KindAdmin {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteRecord(ctx, p.Ident().SchoolID, id)
}

// CountByStatus returns the number of records of a student per status.
func (svc *Service) CountByStatus(ctx context.Context, studentID string) (map[Status]int, error) {
	return svc.repo.CountByStatus(ctx, studentID)
}
