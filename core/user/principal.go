package user

import "github.com/pkg/errors"

// Kind discriminates the Principal variants.
type Kind string

const (
	KindAdmin   Kind = "admin"
	KindTeacher Kind = "teacher"
	KindParent  Kind = "parent"
	KindStudent Kind = "student"
)

var errUnknownKind = errors.New("unknown principal kind")

// Identity is shared by every Principal.
type Identity struct {
	UserID   string
	SchoolID string
}

func (id Identity) Ident() Identity { return id }

// Principal is the authenticated caller: one of Admin, Teacher, Parent or Student.
// It is resolved once at login and carried in the token afterwards.
type Principal interface {
	Ident() Identity
	Kind() Kind
	// ProfileID is the id of the teacher, parent or student profile; the user id for admins.
	ProfileID() string
}

type (
	Admin struct {
		Identity
		Roles []string
	}

	Teacher struct {
		Identity
		TeacherID string
	}

	Parent struct {
		Identity
		ParentID string
	}

	Student struct {
		Identity
		StudentID string
	}
)

func (Admin) Kind() Kind   { return KindAdmin }
func (Teacher) Kind() Kind { return KindTeacher }
func (Parent) Kind() Kind  { return KindParent }
func (Student) Kind() Kind { return KindStudent }

func (p Admin) ProfileID() string   { return p.UserID }
func (p Teacher) ProfileID() string { return p.TeacherID }
func (p Parent) ProfileID() string  { return p.ParentID }
func (p Student) ProfileID() string { return p.StudentID }

// HasAnyRole reports whether the admin holds one of `roles`; no roles means any admin.
func (p Admin) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, want := range roles {
		for _, role := range p.Roles {
			if role == want {
				return true
			}
		}
	}
	return false
}

// NewPrincipal rebuilds a Principal from its serialized parts.
func NewPrincipal(kind Kind, id Identity, profileID string, roles []string) (Principal, error) {
	switch kind {
	case KindAdmin:
		return Admin{Identity: id, Roles: roles}, nil
	case KindTeacher:
		return Teacher{Identity: id, TeacherID: profileID}, nil
	case KindParent:
		return Parent{Identity: id, ParentID: profileID}, nil
	case KindStudent:
		return Student{Identity: id, StudentID: profileID}, nil
	}
	return nil, errors.Wrapf(errUnknownKind, "kind %q", kind)
}
