package dummydb

import (
	"context"
	"sort"
	"strconv"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	c.ID = newID()
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, schoolID, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if c, ok := repo.db.courses[id]; ok && c.SchoolID == schoolID {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		switch {
		case c.SchoolID != filter.SchoolID:
		case filter.ClassID != "" && c.ClassID != filter.ClassID:
		case filter.TeacherID != "" && c.TeacherID != filter.TeacherID:
		case filter.ClassroomID != "" && c.ClassroomID != filter.ClassroomID:
		case filter.Day != "" && c.Day != filter.Day:
		default:
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := courseField(courses[i], ord.Field), courseField(courses[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		if di, dj := course.WeekdayIndex(courses[i].Day), course.WeekdayIndex(courses[j].Day); di != dj {
			return di < dj
		}
		return courses[i].StartTime < courses[j].StartTime
	})
	return courses, nil
}

func courseField(c course.Course, field string) string {
	switch field {
	case "day":
		return strconv.Itoa(course.WeekdayIndex(c.Day))
	case "start_time":
		return c.StartTime
	case "end_time":
		return c.EndTime
	}
	return c.CreatedAt.Format("2006-01-02T15:04:05.000000000")
}

func (repo *courseRepository) FindConflicting(_ context.Context, candidate course.Course, excludeID string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		if course.Conflicts(candidate, c) {
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].StartTime < courses[j].StartTime })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.courses[c.ID]
	if !ok || orig.SchoolID != c.SchoolID {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if c, ok := repo.db.courses[id]; ok && c.SchoolID == schoolID {
		delete(repo.db.courses, id)
		return nil
	}
	return course.ErrNotFound
}
