package course

import (
	"strings"
	"time"

	"github.com/trezcool/shule/core"
)

// Course is a weekly timetable slot of a subject, taught by a teacher to a class in a classroom.
// StartTime and EndTime are zero-padded "HH:MM" strings; the slot is [StartTime, EndTime).
type Course struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id"`
	ClassID     string    `json:"class_id"`
	SubjectID   string    `json:"subject_id"`
	TeacherID   string    `json:"teacher_id"`
	ClassroomID string    `json:"classroom_id"`
	Day         string    `json:"day"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c Course) Slot() Slot {
	return Slot{Day: c.Day, Start: c.StartTime, End: c.EndTime}
}

// NewCourse contains information needed to create a new Course.
// TeacherID defaults to the caller when the caller is a teacher.
type NewCourse struct {
	ClassID     string `json:"class_id" validate:"required,uuid"`
	SubjectID   string `json:"subject_id" validate:"required,uuid"`
	TeacherID   string `json:"teacher_id" validate:"required,uuid"`
	ClassroomID string `json:"classroom_id" validate:"required,uuid"`
	Day         string `json:"day" validate:"required,weekday"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	EndTime     string `json:"end_time" validate:"required,hhmm"`
}

func (nc *NewCourse) Clean() {
	nc.Day = normalizeDay(nc.Day)
	nc.StartTime = core.CleanString(nc.StartTime)
	nc.EndTime = core.CleanString(nc.EndTime)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Empty fields keep their current value.
type UpdateCourse struct {
	ClassID     string `json:"class_id" validate:"omitempty,uuid"`
	SubjectID   string `json:"subject_id" validate:"omitempty,uuid"`
	TeacherID   string `json:"teacher_id" validate:"omitempty,uuid"`
	ClassroomID string `json:"classroom_id" validate:"omitempty,uuid"`
	Day         string `json:"day" validate:"omitempty,weekday"`
	StartTime   string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime     string `json:"end_time" validate:"omitempty,hhmm"`
}

func (uc *UpdateCourse) Clean() {
	uc.Day = normalizeDay(uc.Day)
	uc.StartTime = core.CleanString(uc.StartTime)
	uc.EndTime = core.CleanString(uc.EndTime)
}

// apply returns `c` updated with the non empty fields of `uc`.
func (uc UpdateCourse) apply(c Course) Course {
	if uc.ClassID != "" {
		c.ClassID = uc.ClassID
	}
	if uc.SubjectID != "" {
		c.SubjectID = uc.SubjectID
	}
	if uc.TeacherID != "" {
		c.TeacherID = uc.TeacherID
	}
	if uc.ClassroomID != "" {
		c.ClassroomID = uc.ClassroomID
	}
	if uc.Day != "" {
		c.Day = uc.Day
	}
	if uc.StartTime != "" {
		c.StartTime = uc.StartTime
	}
	if uc.EndTime != "" {
		c.EndTime = uc.EndTime
	}
	return c
}

type QueryFilter struct {
	SchoolID    string `query:"-"`
	ClassID     string `query:"class_id"`
	TeacherID   string `query:"teacher_id"`
	ClassroomID string `query:"classroom_id"`
	Day         string `query:"day"`
}

func (qf *QueryFilter) Clean() {
	qf.Day = normalizeDay(qf.Day)
}

// OrderingFields maps the orderable API fields to their column names.
// Days are ordered through the week, not alphabetically.
var OrderingFields = map[string]string{
	"day":        "day",
	"start_time": "start_time",
	"end_time":   "end_time",
	"created_at": "created_at",
}

// WeekdayIndex is the position of `day` in the week, Monday first. Unknown days come last.
func WeekdayIndex(day string) int {
	for i, d := range core.Weekdays {
		if d == day {
			return i
		}
	}
	return len(core.Weekdays)
}

// normalizeDay title-cases a day name, "monday" -> "Monday".
func normalizeDay(day string) string {
	day = core.CleanString(day, true /* lower */)
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + day[1:]
}
