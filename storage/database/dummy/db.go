// Package dummydb implements the core repositories in memory, for tests and local runs.
package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// DB holds every table behind a single lock.
type DB struct {
	sync.RWMutex

	users      map[string]user.User
	schools    map[string]school.School
	classes    map[string]school.Class
	subjects   map[string]school.Subject
	classrooms map[string]school.Classroom
	members    map[string]school.Member
	students   map[string]school.Student
	courses    map[string]course.Course

	attendance map[string]attendance.Record
	grades     map[string]grade.Grade
	payments   map[string]payment.Payment

	attendanceReports  map[string]report.AttendanceReport  // {student: report}
	bulletins          map[string]report.Bulletin          // {student:trimester: bulletin}
	performanceReports map[string]report.PerformanceReport // {student: report}
	financialReports   map[string]report.FinancialReport

	notifications map[string]notification.Notification
}

func Open() *DB {
	return &DB{
		users:              make(map[string]user.User),
		schools:            make(map[string]school.School),
		classes:            make(map[string]school.Class),
		subjects:           make(map[string]school.Subject),
		classrooms:         make(map[string]school.Classroom),
		members:            make(map[string]school.Member),
		students:           make(map[string]school.Student),
		courses:            make(map[string]course.Course),
		attendance:         make(map[string]attendance.Record),
		grades:             make(map[string]grade.Grade),
		payments:           make(map[string]payment.Payment),
		attendanceReports:  make(map[string]report.AttendanceReport),
		bulletins:          make(map[string]report.Bulletin),
		performanceReports: make(map[string]report.PerformanceReport),
		financialReports:   make(map[string]report.FinancialReport),
		notifications:      make(map[string]notification.Notification),
	}
}

func newID() string {
	return uuid.NewString()
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// matchStudent filters on a single student, a set of students, or both.
func matchStudent(studentID string, studentIDs []string, id string) bool {
	if studentID != "" && studentID != id {
		return false
	}
	if studentIDs != nil && !contains(studentIDs, id) {
		return false
	}
	return true
}
