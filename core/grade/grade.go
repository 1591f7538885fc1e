// Package grade keeps the per subject and trimester grades of students, the source of bulletins.
package grade

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

var ErrNotFound = core.NewNotFoundError("grade")

// Grade holds the control and synthesis grades (out of 20) of a student in a subject for a trimester.
// There is at most one Grade per student, subject, trimester and academic year.
type Grade struct {
	ID            string    `json:"id"`
	SchoolID      string    `json:"school_id"`
	StudentID     string    `json:"student_id"`
	SubjectID     string    `json:"subject_id"`
	Trimester     int       `json:"trimester"`
	AcademicYear  string    `json:"academic_year"`
	ControleGrade float64   `json:"controle_grade"`
	SyntheseGrade float64   `json:"synthese_grade"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type NewGrade struct {
	StudentID     string   `json:"student_id" validate:"required,uuid"`
	SubjectID     string   `json:"subject_id" validate:"required,uuid"`
	Trimester     int      `json:"trimester" validate:"required,trimester"`
	AcademicYear  string   `json:"academic_year" validate:"required,academic_year"`
	ControleGrade *float64 `json:"controle_grade" validate:"required,min=0,max=20"`
	SyntheseGrade *float64 `json:"synthese_grade" validate:"required,min=0,max=20"`
}

type Filter struct {
	SchoolID     string   `query:"-"`
	StudentID    string   `query:"student_id"`
	StudentIDs   []string `query:"-"`
	SubjectID    string   `query:"subject_id"`
	Trimester    int      `query:"trimester"`
	AcademicYear string   `query:"academic_year"`
}

type (
	Repository interface {
		// UpsertGrade creates the grade or updates the one of the same student, subject, trimester and academic year.
		UpsertGrade(ctx context.Context, g Grade) (Grade, error)
		QueryGrades(ctx context.Context, filter Filter) ([]Grade, error)
		DeleteGrade(ctx context.Context, schoolID, id string) error
	}

	Directory interface {
		GetStudent(ctx context.Context, schoolID, id string) (school.Student, error)
		GetSubject(ctx context.Context, schoolID, id string) (school.Subject, error)
		StudentScope(ctx context.Context, p user.Principal) (ids []string, all bool, err error)
	}

	Service struct {
		repo     Repository
		dir      Directory
		validate *validator.Validate
	}
)

func NewService(repo Repository, dir Directory, validate *validator.Validate) *Service {
	return &Service{repo: repo, dir: dir, validate: validate}
}

// Save creates or replaces a grade; admins and teachers only.
func (svc *Service) Save(ctx context.Context, p user.Principal, ng NewGrade) (Grade, error) {
	switch p.Kind() {
	case user.KindAdmin, user.KindTeacher:
	default:
		return Grade{}, core.ErrPermissionDenied
	}
	if err := svc.validate.Struct(ng); err != nil {
		return Grade{}, err
	}

	schoolID := p.Ident().SchoolID
	if _, err := svc.dir.GetStudent(ctx, schoolID, ng.StudentID); err != nil {
		if core.IsNotFound(err) {
			return Grade{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Grade{}, errors.Wrap(err, "finding student")
	}
	if _, err := svc.dir.GetSubject(ctx, schoolID, ng.SubjectID); err != nil {
		if core.IsNotFound(err) {
			return Grade{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return Grade{}, errors.Wrap(err, "finding subject")
	}

	now := core.NowFunc()
	return svc.repo.UpsertGrade(ctx, Grade{
		SchoolID:      schoolID,
		StudentID:     ng.StudentID,
		SubjectID:     ng.SubjectID,
		Trimester:     ng.Trimester,
		AcademicYear:  ng.AcademicYear,
		ControleGrade: *ng.ControleGrade,
		SyntheseGrade: *ng.SyntheseGrade,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// Query returns the grades visible to `p`.
func (svc *Service) Query(ctx context.Context, p user.Principal, filter Filter) ([]Grade, error) {
	ids, all, err := svc.dir.StudentScope(ctx, p)
	if err != nil {
		return nil, err
	}
	filter.SchoolID = p.Ident().SchoolID
	if !all {
		if len(ids) == 0 {
			return []Grade{}, nil
		}
		filter.StudentIDs = ids
	}
	return svc.repo.QueryGrades(ctx, filter)
}

// StudentGrades returns the grades of a student for a trimester.
func (svc *Service) StudentGrades(ctx context.Context, schoolID, studentID string, trimester int) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, Filter{SchoolID: schoolID, StudentID: studentID, Trimester: trimester})
}

func (svc *Service) Delete(ctx context.Context, p user.Principal, id string) error {
	if p.Kind() != user.KindAdmin {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteGrade(ctx, p.Ident().SchoolID, id)
}
