package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/payment"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(_ context.Context, r attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	r.ID = newID()
	repo.db.attendance[r.ID] = r
	return r, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	records := make([]attendance.Record, 0)
	for _, r := range repo.db.attendance {
		if r.SchoolID != filter.SchoolID || !matchStudent(filter.StudentID, filter.StudentIDs, r.StudentID) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (repo *attendanceRepository) DeleteRecord(_ context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if r, ok := repo.db.attendance[id]; ok && r.SchoolID == schoolID {
		delete(repo.db.attendance, id)
		return nil
	}
	return attendance.ErrNotFound
}

func (repo *attendanceRepository) CountByStatus(_ context.Context, studentID string) (map[attendance.Status]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	counts := make(map[attendance.Status]int)
	for _, r := range repo.db.attendance {
		if r.StudentID == studentID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) UpsertGrade(_ context.Context, g grade.Grade) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for id, existing := range repo.db.grades {
		if existing.StudentID == g.StudentID && existing.SubjectID == g.SubjectID &&
			existing.Trimester == g.Trimester && existing.AcademicYear == g.AcademicYear {
			existing.ControleGrade = g.ControleGrade
			existing.SyntheseGrade = g.SyntheseGrade
			existing.UpdatedAt = g.UpdatedAt
			repo.db.grades[id] = existing
			return existing, nil
		}
	}
	g.ID = newID()
	repo.db.grades[g.ID] = g
	return g, nil
}

func (repo *gradeRepository) QueryGrades(_ context.Context, filter grade.Filter) ([]grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	grades := make([]grade.Grade, 0)
	for _, g := range repo.db.grades {
		switch {
		case g.SchoolID != filter.SchoolID:
		case !matchStudent(filter.StudentID, filter.StudentIDs, g.StudentID):
		case filter.SubjectID != "" && g.SubjectID != filter.SubjectID:
		case filter.Trimester != 0 && g.Trimester != filter.Trimester:
		case filter.AcademicYear != "" && g.AcademicYear != filter.AcademicYear:
		default:
			grades = append(grades, g)
		}
	}
	sort.Slice(grades, func(i, j int) bool {
		a, b := grades[i], grades[j]
		if a.AcademicYear != b.AcademicYear {
			return a.AcademicYear > b.AcademicYear
		}
		if a.Trimester != b.Trimester {
			return a.Trimester < b.Trimester
		}
		return a.SubjectID < b.SubjectID
	})
	return grades, nil
}

func (repo *gradeRepository) DeleteGrade(_ context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if g, ok := repo.db.grades[id]; ok && g.SchoolID == schoolID {
		delete(repo.db.grades, id)
		return nil
	}
	return grade.ErrNotFound
}

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	p.ID = newID()
	repo.db.payments[p.ID] = p
	return p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.Filter) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.payments {
		switch {
		case p.SchoolID != filter.SchoolID:
		case !matchStudent(filter.StudentID, filter.StudentIDs, p.StudentID):
		case !filter.From.IsZero() && p.PaidAt.Before(filter.From):
		case !filter.To.IsZero() && p.PaidAt.After(filter.To):
		default:
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.Before(payments[j].PaidAt)
		}
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
	return payments, nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if p, ok := repo.db.payments[id]; ok && p.SchoolID == schoolID {
		delete(repo.db.payments, id)
		return nil
	}
	return payment.ErrNotFound
}
