package school

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrSchoolNotFound    = core.NewNotFoundError("school")
	ErrClassNotFound     = core.NewNotFoundError("class")
	ErrSubjectNotFound   = core.NewNotFoundError("subject")
	ErrClassroomNotFound = core.NewNotFoundError("classroom")
	ErrTeacherNotFound   = core.NewNotFoundError("teacher")
	ErrParentNotFound    = core.NewNotFoundError("parent")
	ErrStudentNotFound   = core.NewNotFoundError("student")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, s School) (School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context) ([]School, error)

		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClass(ctx context.Context, schoolID, id string) (Class, error)
		QueryClasses(ctx context.Context, schoolID string) ([]Class, error)

		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, schoolID, id string) (Subject, error)
		QuerySubjects(ctx context.Context, schoolID string) ([]Subject, error)

		CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
		GetClassroom(ctx context.Context, schoolID, id string) (Classroom, error)
		QueryClassrooms(ctx context.Context, schoolID string) ([]Classroom, error)

		CreateMember(ctx context.Context, m Member) (Member, error)
		GetMember(ctx context.Context, kind MemberKind, schoolID, id string) (Member, error)
		GetMemberByUser(ctx context.Context, kind MemberKind, userID string) (Member, error)
		QueryMembers(ctx context.Context, kind MemberKind, schoolID string) ([]Member, error)

		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, schoolID, id string) (Student, error)
		GetStudentByUser(ctx context.Context, userID string) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ user.ProfileFinder = (*Service)(nil) // interface compliance check

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// MemberNotFound returns the not found error matching the member kind.
func MemberNotFound(kind MemberKind) error {
	if kind == MemberParent {
		return ErrParentNotFound
	}
	return ErrTeacherNotFound
}

func (svc *Service) CreateSchool(ctx context.Context, ns NewSchool) (School, error) {
	ns.Name = core.CleanString(ns.Name)
	if err := svc.validate.Struct(ns); err != nil {
		return School{}, err
	}
	return svc.repo.CreateSchool(ctx, School{Name: ns.Name, CreatedAt: core.NowFunc()})
}

func (svc *Service) GetSchool(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *Service) ListSchools(ctx context.Context) ([]School, error) {
	return svc.repo.QuerySchools(ctx)
}

func (svc *Service) CreateClass(ctx context.Context, schoolID string, nc NewClass) (Class, error) {
	nc.Name = core.CleanString(nc.Name)
	if err := svc.validate.Struct(nc); err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, Class{
		SchoolID:     schoolID,
		Name:         nc.Name,
		AcademicYear: nc.AcademicYear,
		CreatedAt:    core.NowFunc(),
	})
}

func (svc *Service) GetClass(ctx context.Context, schoolID, id string) (Class, error) {
	return svc.repo.GetClass(ctx, schoolID, id)
}

func (svc *Service) ListClasses(ctx context.Context, schoolID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, schoolID)
}

func (svc *Service) CreateSubject(ctx context.Context, schoolID string, ns NewSubject) (Subject, error) {
	ns.Name = core.CleanString(ns.Name)
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{
		SchoolID:    schoolID,
		Name:        ns.Name,
		Coefficient: ns.Coefficient,
		CreatedAt:   core.NowFunc(),
	})
}

func (svc *Service) GetSubject(ctx context.Context, schoolID, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, schoolID, id)
}

func (svc *Service) ListSubjects(ctx context.Context, schoolID string) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, schoolID)
}

func (svc *Service) CreateClassroom(ctx context.Context, schoolID string, nc NewClassroom) (Classroom, error) {
	nc.Name = core.CleanString(nc.Name)
	if err := svc.validate.Struct(nc); err != nil {
		return Classroom{}, err
	}
	return svc.repo.CreateClassroom(ctx, Classroom{
		SchoolID:  schoolID,
		Name:      nc.Name,
		Capacity:  nc.Capacity,
		CreatedAt: core.NowFunc(),
	})
}

func (svc *Service) GetClassroom(ctx context.Context, schoolID, id string) (Classroom, error) {
	return svc.repo.GetClassroom(ctx, schoolID, id)
}

func (svc *Service) ListClassrooms(ctx context.Context, schoolID string) ([]Classroom, error) {
	return svc.repo.QueryClassrooms(ctx, schoolID)
}

func (svc *Service) CreateMember(ctx context.Context, kind MemberKind, schoolID string, nm NewMember) (Member, error) {
	nm.Clean()
	if err := svc.validate.Struct(nm); err != nil {
		return Member{}, err
	}
	return svc.repo.CreateMember(ctx, Member{
		Kind:      kind,
		SchoolID:  schoolID,
		UserID:    nm.UserID,
		Name:      nm.Name,
		Email:     nm.Email,
		CreatedAt: core.NowFunc(),
	})
}

func (svc *Service) GetTeacher(ctx context.Context, schoolID, id string) (Member, error) {
	return svc.repo.GetMember(ctx, MemberTeacher, schoolID, id)
}

func (svc *Service) GetParent(ctx context.Context, schoolID, id string) (Member, error) {
	return svc.repo.GetMember(ctx, MemberParent, schoolID, id)
}

func (svc *Service) ListMembers(ctx context.Context, kind MemberKind, schoolID string) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, kind, schoolID)
}

// CreateStudent creates an active student; its class and parent must belong to the school.
func (svc *Service) CreateStudent(ctx context.Context, schoolID string, ns NewStudent) (Student, error) {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}
	if err := svc.checkStudentRefs(ctx, schoolID, ns.ClassID, ns.ParentID); err != nil {
		return Student{}, err
	}

	now := core.NowFunc()
	return svc.repo.CreateStudent(ctx, Student{
		SchoolID:  schoolID,
		ClassID:   ns.ClassID,
		ParentID:  ns.ParentID,
		UserID:    ns.UserID,
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) UpdateStudent(ctx context.Context, schoolID, id string, us UpdateStudent) (Student, error) {
	if err := svc.validate.Struct(us); err != nil {
		return Student{}, err
	}
	st, err := svc.repo.GetStudent(ctx, schoolID, id)
	if err != nil {
		return Student{}, err
	}
	if err := svc.checkStudentRefs(ctx, schoolID, us.ClassID, us.ParentID); err != nil {
		return Student{}, err
	}

	if us.ClassID != "" {
		st.ClassID = us.ClassID
	}
	if us.ParentID != "" {
		st.ParentID = us.ParentID
	}
	if us.IsActive != nil {
		st.IsActive = *us.IsActive
	}
	st.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *Service) checkStudentRefs(ctx context.Context, schoolID, classID, parentID string) error {
	if classID != "" {
		if _, err := svc.repo.GetClass(ctx, schoolID, classID); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
			}
			return errors.Wrap(err, "finding class")
		}
	}
	if parentID != "" {
		if _, err := svc.repo.GetMember(ctx, MemberParent, schoolID, parentID); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(err, core.FieldError{Field: "parent_id", Error: err.Error()})
			}
			return errors.Wrap(err, "finding parent")
		}
	}
	return nil
}

func (svc *Service) GetStudent(ctx context.Context, schoolID, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, schoolID, id)
}

func (svc *Service) ListStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter)
}

// ActiveStudents returns the active students of a school.
func (svc *Service) ActiveStudents(ctx context.Context, schoolID string) ([]Student, error) {
	active := true
	return svc.repo.QueryStudents(ctx, StudentFilter{SchoolID: schoolID, IsActive: &active})
}

// StudentsOfParent returns the students whose parent is `parentID`.
func (svc *Service) StudentsOfParent(ctx context.Context, schoolID, parentID string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, StudentFilter{SchoolID: schoolID, ParentID: parentID})
}

// FindProfileID returns the id of the teacher, parent or student profile linked to `userID`.
func (svc *Service) FindProfileID(ctx context.Context, kind user.Kind, userID string) (string, error) {
	switch kind {
	case user.KindTeacher:
		m, err := svc.repo.GetMemberByUser(ctx, MemberTeacher, userID)
		return m.ID, err
	case user.KindParent:
		m, err := svc.repo.GetMemberByUser(ctx, MemberParent, userID)
		return m.ID, err
	case user.KindStudent:
		st, err := svc.repo.GetStudentByUser(ctx, userID)
		return st.ID, err
	}
	return "", errors.Errorf("no profile for kind %q", kind)
}

// StudentScope returns the ids of the students visible to `p`.
// all is true when every student of p's school is visible.
func (svc *Service) StudentScope(ctx context.Context, p user.Principal) (ids []string, all bool, err error) {
	switch p := p.(type) {
	case user.Admin, user.Teacher:
		return nil, true, nil
	case user.Parent:
		students, err := svc.StudentsOfParent(ctx, p.SchoolID, p.ParentID)
		if err != nil {
			return nil, false, errors.Wrap(err, "querying parent's students")
		}
		ids = make([]string, 0, len(students))
		for _, st := range students {
			ids = append(ids, st.ID)
		}
		return ids, false, nil
	case user.Student:
		return []string{p.StudentID}, false, nil
	}
	return nil, false, core.ErrPermissionDenied
}

// CanSeeStudent reports whether `p` may read the records of student `studentID`.
func (svc *Service) CanSeeStudent(ctx context.Context, p user.Principal, studentID string) (bool, error) {
	ids, all, err := svc.StudentScope(ctx, p)
	if err != nil {
		return false, err
	}
	if all {
		return true, nil
	}
	for _, id := range ids {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}
