package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
)

var courseColumns = []string{
	"id", "school_id", "class_id", "subject_id", "teacher_id", "classroom_id",
	"day", "start_time", "end_time", "created_at", "updated_at",
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("course").Columns(courseColumns...).Values(
		c.ID, c.SchoolID, c.ClassID, c.SubjectID, c.TeacherID, c.ClassroomID,
		c.Day, c.StartTime, c.EndTime, c.CreatedAt, c.UpdatedAt,
	))
	return c, errors.Wrap(err, "inserting course")
}

func (repo *courseRepository) GetCourse(ctx context.Context, schoolID, id string) (course.Course, error) {
	var c course.Course
	err := get(ctx, repo.db, &c, psql.Select(courseColumns...).From("course").Where(sq.Eq{"school_id": schoolID, "id": id}))
	return c, notFound(err, course.ErrNotFound)
}

// dayOrder sorts the day column through the week, Monday first.
var dayOrder = "array_position(ARRAY['" + strings.Join(core.Weekdays, "','") + "']::text[], day::text)"

// courseOrderings orders days with dayOrder.
func courseOrderings(ordering []core.DBOrdering) []core.DBOrdering {
	res := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if ord.Field == "day" {
			ord.Field = dayOrder
		}
		res = append(res, ord)
	}
	return res
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	where := sq.Eq{"school_id": filter.SchoolID}
	if filter.ClassID != "" {
		where["class_id"] = filter.ClassID
	}
	if filter.TeacherID != "" {
		where["teacher_id"] = filter.TeacherID
	}
	if filter.ClassroomID != "" {
		where["classroom_id"] = filter.ClassroomID
	}
	if filter.Day != "" {
		where["day"] = filter.Day
	}
	b := orderBy(psql.Select(courseColumns...).From("course").Where(where), courseOrderings(ordering), dayOrder+", start_time")

	courses := make([]course.Course, 0)
	err := selectAll(ctx, repo.db, &courses, b)
	return courses, errors.Wrap(err, "querying courses")
}

// FindConflicting relies on "HH:MM" strings ordering like the times they denote.
func (repo *courseRepository) FindConflicting(ctx context.Context, candidate course.Course, excludeID string) ([]course.Course, error) {
	b := psql.Select(courseColumns...).From("course").
		Where(sq.Eq{"school_id": candidate.SchoolID, "day": candidate.Day}).
		Where(sq.Lt{"start_time": candidate.EndTime}).
		Where(sq.Gt{"end_time": candidate.StartTime}).
		Where(sq.Or{
			sq.Eq{"teacher_id": candidate.TeacherID},
			sq.Eq{"classroom_id": candidate.ClassroomID},
			sq.Eq{"class_id": candidate.ClassID},
		}).
		OrderBy("start_time")
	if excludeID != "" {
		b = b.Where(sq.NotEq{"id": excludeID})
	}

	courses := make([]course.Course, 0)
	err := selectAll(ctx, repo.db, &courses, b)
	return courses, errors.Wrap(err, "querying conflicting courses")
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	n, err := exec(ctx, repo.db, psql.Update("course").SetMap(map[string]interface{}{
		"class_id":     c.ClassID,
		"subject_id":   c.SubjectID,
		"teacher_id":   c.TeacherID,
		"classroom_id": c.ClassroomID,
		"day":          c.Day,
		"start_time":   c.StartTime,
		"end_time":     c.EndTime,
		"updated_at":   c.UpdatedAt,
	}).Where(sq.Eq{"school_id": c.SchoolID, "id": c.ID}))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, schoolID, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("course").Where(sq.Eq{"school_id": schoolID, "id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}
