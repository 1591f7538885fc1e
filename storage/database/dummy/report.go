package dummydb

import (
	"context"
	"fmt"
	"sort"

	"github.com/trezcool/shule/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func matchReport(filter report.Filter, schoolID, studentID string) bool {
	return schoolID == filter.SchoolID && matchStudent(filter.StudentID, filter.StudentIDs, studentID)
}

func bulletinKey(studentID string, trimester int) string {
	return fmt.Sprintf("%s:%d", studentID, trimester)
}

func (repo *reportRepository) ReplaceAttendanceReport(_ context.Context, r report.AttendanceReport) (report.AttendanceReport, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	r.ID = newID()
	repo.db.attendanceReports[r.StudentID] = r
	return r, nil
}

func (repo *reportRepository) QueryAttendanceReports(_ context.Context, filter report.Filter) ([]report.AttendanceReport, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	reports := make([]report.AttendanceReport, 0)
	for _, r := range repo.db.attendanceReports {
		if matchReport(filter, r.SchoolID, r.StudentID) {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].StudentID < reports[j].StudentID })
	return reports, nil
}

func (repo *reportRepository) DeleteAttendanceReports(_ context.Context, filter report.Filter) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	var n int
	for k, r := range repo.db.attendanceReports {
		if matchReport(filter, r.SchoolID, r.StudentID) {
			delete(repo.db.attendanceReports, k)
			n++
		}
	}
	return n, nil
}

func (repo *reportRepository) ReplaceBulletin(_ context.Context, b report.Bulletin) (report.Bulletin, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if b.Subjects == nil {
		b.Subjects = []report.BulletinSubject{}
	}
	b.ID = newID()
	repo.db.bulletins[bulletinKey(b.StudentID, b.Trimester)] = b
	return b, nil
}

func (repo *reportRepository) QueryBulletins(_ context.Context, filter report.Filter) ([]report.Bulletin, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	bulletins := make([]report.Bulletin, 0)
	for _, b := range repo.db.bulletins {
		if matchReport(filter, b.SchoolID, b.StudentID) && (filter.Trimester == 0 || b.Trimester == filter.Trimester) {
			bulletins = append(bulletins, b)
		}
	}
	sort.Slice(bulletins, func(i, j int) bool {
		if bulletins[i].StudentID != bulletins[j].StudentID {
			return bulletins[i].StudentID < bulletins[j].StudentID
		}
		return bulletins[i].Trimester < bulletins[j].Trimester
	})
	return bulletins, nil
}

func (repo *reportRepository) DeleteBulletins(_ context.Context, filter report.Filter) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	var n int
	for k, b := range repo.db.bulletins {
		if matchReport(filter, b.SchoolID, b.StudentID) && (filter.Trimester == 0 || b.Trimester == filter.Trimester) {
			delete(repo.db.bulletins, k)
			n++
		}
	}
	return n, nil
}

func (repo *reportRepository) ReplacePerformanceReport(_ context.Context, r report.PerformanceReport) (report.PerformanceReport, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	r.ID = newID()
	repo.db.performanceReports[r.StudentID] = r
	return r, nil
}

func (repo *reportRepository) QueryPerformanceReports(_ context.Context, filter report.Filter) ([]report.PerformanceReport, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	reports := make([]report.PerformanceReport, 0)
	for _, r := range repo.db.performanceReports {
		if matchReport(filter, r.SchoolID, r.StudentID) {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].StudentID < reports[j].StudentID })
	return reports, nil
}

func (repo *reportRepository) DeletePerformanceReports(_ context.Context, filter report.Filter) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	var n int
	for k, r := range repo.db.performanceReports {
		if matchReport(filter, r.SchoolID, r.StudentID) {
			delete(repo.db.performanceReports, k)
			n++
		}
	}
	return n, nil
}

func (repo *reportRepository) ReplaceFinancialReport(_ context.Context, r report.FinancialReport) (report.FinancialReport, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for id, existing := range repo.db.financialReports {
		if existing.SchoolID == r.SchoolID && existing.StartDate.Equal(r.StartDate) && existing.EndDate.Equal(r.EndDate) {
			delete(repo.db.financialReports, id)
		}
	}
	r.ID = newID()
	repo.db.financialReports[r.ID] = r
	return r, nil
}

func (repo *reportRepository) QueryFinancialReports(_ context.Context, schoolID string) ([]report.FinancialReport, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	reports := make([]report.FinancialReport, 0)
	for _, r := range repo.db.financialReports {
		if r.SchoolID == schoolID {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].StartDate.After(reports[j].StartDate) })
	return reports, nil
}

func (repo *reportRepository) GetFinancialReport(_ context.Context, schoolID, id string) (report.FinancialReport, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if r, ok := repo.db.financialReports[id]; ok && r.SchoolID == schoolID {
		return r, nil
	}
	return report.FinancialReport{}, report.ErrFinancialNotFound
}

func (repo *reportRepository) DeleteFinancialReport(_ context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if r, ok := repo.db.financialReports[id]; ok && r.SchoolID == schoolID {
		delete(repo.db.financialReports, id)
		return nil
	}
	return report.ErrFinancialNotFound
}
