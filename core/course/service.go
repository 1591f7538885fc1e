package course

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("course")

	timeRangeTag  = "timerange"
	timeRangeText = "{0} must be after start_time"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, schoolID, id string) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		// FindConflicting returns the courses of candidate's school and day overlapping its slot
		// and sharing its teacher, classroom or class. excludeID is ignored when empty.
		FindConflicting(ctx context.Context, candidate Course, excludeID string) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, schoolID, id string) error
	}

	// Directory resolves the school resources a course refers to.
	Directory interface {
		GetClass(ctx context.Context, schoolID, id string) (school.Class, error)
		GetSubject(ctx context.Context, schoolID, id string) (school.Subject, error)
		GetTeacher(ctx context.Context, schoolID, id string) (school.Member, error)
		GetClassroom(ctx context.Context, schoolID, id string) (school.Classroom, error)
	}

	Service struct {
		repo     Repository
		dir      Directory
		locker   core.Locker
		validate *validator.Validate
	}
)

func NewService(repo Repository, dir Directory, locker core.Locker, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		dir:      dir,
		locker:   locker,
		validate: validate,
	}
}

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(courseStructValidation, NewCourse{})
	_ = validate.RegisterTranslation(
		timeRangeTag, translator,
		func(t ut.Translator) error { return t.Add(timeRangeTag, timeRangeText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(timeRangeTag, fe.Field())
			return s
		},
	)
}

func courseStructValidation(sl validator.StructLevel) {
	if nc, ok := sl.Current().Interface().(NewCourse); ok {
		if nc.StartTime != "" && nc.EndTime != "" && nc.EndTime <= nc.StartTime {
			sl.ReportError(nc.EndTime, "end_time", "EndTime", timeRangeTag, "")
		}
	}
}

func scheduleLockKey(schoolID, day string) string {
	return "schedule:" + schoolID + ":" + day
}

// FindConflicts returns the existing courses conflicting with `candidate`, ignoring `excludeID`.
func (svc *Service) FindConflicts(ctx context.Context, candidate Course, excludeID string) ([]Conflict, error) {
	existing, err := svc.repo.FindConflicting(ctx, candidate, excludeID)
	if err != nil {
		return nil, errors.Wrap(err, "finding conflicting courses")
	}
	conflicts := make([]Conflict, 0, len(existing))
	for _, c := range existing {
		if c.ID == excludeID || !Conflicts(candidate, c) {
			continue
		}
		conflicts = append(conflicts, Conflict{Course: c, Dimensions: SharedDimensions(candidate, c)})
	}
	return conflicts, nil
}

// HasConflict reports whether `candidate` overlaps an existing course of the same teacher, classroom or class.
func (svc *Service) HasConflict(ctx context.Context, candidate Course, excludeID string) (bool, error) {
	conflicts, err := svc.FindConflicts(ctx, candidate, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// book runs `save` under the schedule lock of candidate's school and day, once no conflict is found.
func (svc *Service) book(ctx context.Context, candidate Course, excludeID string, save func(Course) (Course, error)) (Course, error) {
	start := time.Now()
	unlock, err := svc.locker.Lock(ctx, scheduleLockKey(candidate.SchoolID, candidate.Day))
	if err != nil {
		return Course{}, errors.Wrap(err, "acquiring schedule lock")
	}
	defer unlock()
	lockWaitSeconds.Observe(time.Since(start).Seconds())

	conflicts, err := svc.FindConflicts(ctx, candidate, excludeID)
	if err != nil {
		return Course{}, err
	}
	if len(conflicts) > 0 {
		for _, c := range conflicts {
			for _, d := range c.Dimensions {
				conflictsTotal.WithLabelValues(string(d)).Inc()
			}
		}
		return Course{}, &ConflictError{Candidate: candidate, Conflicts: conflicts}
	}
	return save(candidate)
}

// checkRefs ensures the class, subject, teacher and classroom all belong to the school.
func (svc *Service) checkRefs(ctx context.Context, c Course) error {
	refs := []struct {
		field string
		get   func() error
	}{
		{"class_id", func() error { _, err := svc.dir.GetClass(ctx, c.SchoolID, c.ClassID); return err }},
		{"subject_id", func() error { _, err := svc.dir.GetSubject(ctx, c.SchoolID, c.SubjectID); return err }},
		{"teacher_id", func() error { _, err := svc.dir.GetTeacher(ctx, c.SchoolID, c.TeacherID); return err }},
		{"classroom_id", func() error { _, err := svc.dir.GetClassroom(ctx, c.SchoolID, c.ClassroomID); return err }},
	}
	var fields []core.FieldError
	for _, ref := range refs {
		if err := ref.get(); err != nil {
			if !core.IsNotFound(err) {
				return errors.Wrapf(err, "checking %s", ref.field)
			}
			fields = append(fields, core.FieldError{Field: ref.field, Error: err.Error()})
		}
	}
	if len(fields) > 0 {
		return core.NewValidationError(nil, fields...)
	}
	return nil
}

// canManage reports whether `p` may create or modify `c`: admins of the school, or its teacher.
func canManage(p user.Principal, c Course) bool {
	if p.Ident().SchoolID != c.SchoolID {
		return false
	}
	switch p := p.(type) {
	case user.Admin:
		return true
	case user.Teacher:
		return p.TeacherID == c.TeacherID
	}
	return false
}

func (svc *Service) Create(ctx context.Context, p user.Principal, nc NewCourse) (Course, error) {
	if t, ok := p.(user.Teacher); ok && nc.TeacherID == "" {
		nc.TeacherID = t.TeacherID
	}
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Course{}, err
	}

	now := core.NowFunc()
	candidate := Course{
		SchoolID:    p.Ident().SchoolID,
		ClassID:     nc.ClassID,
		SubjectID:   nc.SubjectID,
		TeacherID:   nc.TeacherID,
		ClassroomID: nc.ClassroomID,
		Day:         nc.Day,
		StartTime:   nc.StartTime,
		EndTime:     nc.EndTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !canManage(p, candidate) {
		return Course{}, core.ErrPermissionDenied
	}
	if err := svc.checkRefs(ctx, candidate); err != nil {
		return Course{}, err
	}

	return svc.book(ctx, candidate, "", func(c Course) (Course, error) {
		crs, err := svc.repo.CreateCourse(ctx, c)
		return crs, errors.Wrap(err, "creating course")
	})
}

// Update modifies a course; the course itself is excluded from the conflict check.
func (svc *Service) Update(ctx context.Context, p user.Principal, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.Get(ctx, p, id)
	if err != nil {
		return Course{}, err
	}
	if !canManage(p, orig) {
		return Course{}, core.ErrPermissionDenied
	}

	uc.Clean()
	if err := svc.validate.Struct(uc); err != nil {
		return Course{}, err
	}
	updated := uc.apply(orig)
	// re-validate the merged slot
	merged := NewCourse{
		ClassID:     updated.ClassID,
		SubjectID:   updated.SubjectID,
		TeacherID:   updated.TeacherID,
		ClassroomID: updated.ClassroomID,
		Day:         updated.Day,
		StartTime:   updated.StartTime,
		EndTime:     updated.EndTime,
	}
	if err := svc.validate.Struct(merged); err != nil {
		return Course{}, err
	}
	if !canManage(p, updated) {
		return Course{}, core.ErrPermissionDenied
	}
	if err := svc.checkRefs(ctx, updated); err != nil {
		return Course{}, err
	}
	updated.UpdatedAt = core.NowFunc()

	return svc.book(ctx, updated, orig.ID, func(c Course) (Course, error) {
		crs, err := svc.repo.UpdateCourse(ctx, c)
		return crs, errors.Wrap(err, "updating course")
	})
}

// Get returns a course of the caller's school.
func (svc *Service) Get(ctx context.Context, p user.Principal, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, p.Ident().SchoolID, id)
}

// Query returns the courses of the caller's school matching `filter`.
func (svc *Service) Query(ctx context.Context, p user.Principal, filter QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	filter.SchoolID = p.Ident().SchoolID
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter, core.CleanOrderings(ordering, OrderingFields))
}

func (svc *Service) Delete(ctx context.Context, p user.Principal, id string) error {
	crs, err := svc.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if !canManage(p, crs) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteCourse(ctx, crs.SchoolID, crs.ID)
}
