package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/report"
)

type (
	bulletinRow struct {
		ID          string    `db:"id"`
		SchoolID    string    `db:"school_id"`
		StudentID   string    `db:"student_id"`
		Trimester   int       `db:"trimester"`
		Subjects    []byte    `db:"subjects"`
		Average     float64   `db:"average"`
		GeneratedAt time.Time `db:"generated_at"`
	}

	performanceRow struct {
		ID             string       `db:"id"`
		SchoolID       string       `db:"school_id"`
		StudentID      string       `db:"student_id"`
		OverallAverage null.Float64 `db:"overall_average"`
		PassedSubjects int          `db:"passed_subjects"`
		FailedSubjects int          `db:"failed_subjects"`
		GeneratedAt    time.Time    `db:"generated_at"`
	}

	financialRow struct {
		ID             string    `db:"id"`
		SchoolID       string    `db:"school_id"`
		StartDate      time.Time `db:"start_date"`
		EndDate        time.Time `db:"end_date"`
		TotalRevenue   float64   `db:"total_revenue"`
		PaymentCount   int       `db:"payment_count"`
		RevenueByMonth []byte    `db:"revenue_by_month"`
		GeneratedAt    time.Time `db:"generated_at"`
	}
)

var (
	attendanceReportColumns = []string{
		"id", "school_id", "student_id", "total_absences", "total_presences", "total_late", "generated_at",
	}
	bulletinColumns    = []string{"id", "school_id", "student_id", "trimester", "subjects", "average", "generated_at"}
	performanceColumns = []string{
		"id", "school_id", "student_id", "overall_average", "passed_subjects", "failed_subjects", "generated_at",
	}
	financialColumns = []string{
		"id", "school_id", "start_date", "end_date", "total_revenue", "payment_count", "revenue_by_month", "generated_at",
	}
)

func (r bulletinRow) bulletin() (report.Bulletin, error) {
	b := report.Bulletin{
		ID:          r.ID,
		SchoolID:    r.SchoolID,
		StudentID:   r.StudentID,
		Trimester:   r.Trimester,
		Average:     r.Average,
		GeneratedAt: r.GeneratedAt.UTC(),
	}
	if err := json.Unmarshal(r.Subjects, &b.Subjects); err != nil {
		return report.Bulletin{}, errors.Wrap(err, "decoding bulletin subjects")
	}
	return b, nil
}

func (r performanceRow) performance() report.PerformanceReport {
	return report.PerformanceReport{
		ID:             r.ID,
		SchoolID:       r.SchoolID,
		StudentID:      r.StudentID,
		OverallAverage: r.OverallAverage.Ptr(),
		PassedSubjects: r.PassedSubjects,
		FailedSubjects: r.FailedSubjects,
		GeneratedAt:    r.GeneratedAt.UTC(),
	}
}

func (r financialRow) financial() (report.FinancialReport, error) {
	f := report.FinancialReport{
		ID:           r.ID,
		SchoolID:     r.SchoolID,
		StartDate:    r.StartDate.UTC(),
		EndDate:      r.EndDate.UTC(),
		TotalRevenue: r.TotalRevenue,
		PaymentCount: r.PaymentCount,
		GeneratedAt:  r.GeneratedAt.UTC(),
	}
	if err := json.Unmarshal(r.RevenueByMonth, &f.RevenueByMonth); err != nil {
		return report.FinancialReport{}, errors.Wrap(err, "decoding revenue by month")
	}
	return f, nil
}

// reportWhere selects the reports of a school, narrowed to students when set.
func reportWhere(b sq.SelectBuilder, filter report.Filter) sq.SelectBuilder {
	return studentWhere(b.Where(sq.Eq{"school_id": filter.SchoolID}), filter.StudentID, filter.StudentIDs)
}

func reportDeleteWhere(table string, filter report.Filter) sq.DeleteBuilder {
	b := psql.Delete(table).Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.StudentIDs != nil {
		b = b.Where(sq.Eq{"student_id": filter.StudentIDs})
	}
	return b
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

// replace deletes the rows matching `key` then inserts `insert` in one transaction.
func (repo *reportRepository) replace(ctx context.Context, table string, key sq.Eq, insert sq.InsertBuilder) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, psql.Delete(table).Where(key)); err != nil {
			return errors.Wrapf(err, "deleting previous %s", table)
		}
		_, err := exec(ctx, tx, insert)
		return errors.Wrapf(err, "inserting %s", table)
	})
}

func (repo *reportRepository) ReplaceAttendanceReport(ctx context.Context, r report.AttendanceReport) (report.AttendanceReport, error) {
	r.ID = uuid.NewString()
	err := repo.replace(ctx, "attendance_report", sq.Eq{"student_id": r.StudentID},
		psql.Insert("attendance_report").Columns(attendanceReportColumns...).Values(
			r.ID, r.SchoolID, r.StudentID, r.TotalAbsences, r.TotalPresences, r.TotalLate, r.GeneratedAt,
		))
	return r, err
}

func (repo *reportRepository) QueryAttendanceReports(ctx context.Context, filter report.Filter) ([]report.AttendanceReport, error) {
	b := reportWhere(psql.Select(attendanceReportColumns...).From("attendance_report"), filter)
	reports := make([]report.AttendanceReport, 0)
	err := selectAll(ctx, repo.db, &reports, b.OrderBy("generated_at DESC"))
	return reports, errors.Wrap(err, "querying attendance reports")
}

func (repo *reportRepository) DeleteAttendanceReports(ctx context.Context, filter report.Filter) (int, error) {
	n, err := exec(ctx, repo.db, reportDeleteWhere("attendance_report", filter))
	return n, errors.Wrap(err, "deleting attendance reports")
}

func (repo *reportRepository) ReplaceBulletin(ctx context.Context, b report.Bulletin) (report.Bulletin, error) {
	if b.Subjects == nil {
		b.Subjects = []report.BulletinSubject{}
	}
	subjects, err := json.Marshal(b.Subjects)
	if err != nil {
		return report.Bulletin{}, errors.Wrap(err, "encoding bulletin subjects")
	}
	b.ID = uuid.NewString()
	err = repo.replace(ctx, "bulletin", sq.Eq{"student_id": b.StudentID, "trimester": b.Trimester},
		psql.Insert("bulletin").Columns(bulletinColumns...).Values(
			b.ID, b.SchoolID, b.StudentID, b.Trimester, subjects, b.Average, b.GeneratedAt,
		))
	return b, err
}

func (repo *reportRepository) QueryBulletins(ctx context.Context, filter report.Filter) ([]report.Bulletin, error) {
	q := reportWhere(psql.Select(bulletinColumns...).From("bulletin"), filter)
	if filter.Trimester != 0 {
		q = q.Where(sq.Eq{"trimester": filter.Trimester})
	}
	var rows []bulletinRow
	if err := selectAll(ctx, repo.db, &rows, q.OrderBy("student_id", "trimester")); err != nil {
		return nil, errors.Wrap(err, "querying bulletins")
	}
	bulletins := make([]report.Bulletin, 0, len(rows))
	for _, r := range rows {
		b, err := r.bulletin()
		if err != nil {
			return nil, err
		}
		bulletins = append(bulletins, b)
	}
	return bulletins, nil
}

func (repo *reportRepository) DeleteBulletins(ctx context.Context, filter report.Filter) (int, error) {
	b := reportDeleteWhere("bulletin", filter)
	if filter.Trimester != 0 {
		b = b.Where(sq.Eq{"trimester": filter.Trimester})
	}
	n, err := exec(ctx, repo.db, b)
	return n, errors.Wrap(err, "deleting bulletins")
}

func (repo *reportRepository) ReplacePerformanceReport(ctx context.Context, r report.PerformanceReport) (report.PerformanceReport, error) {
	r.ID = uuid.NewString()
	err := repo.replace(ctx, "performance_report", sq.Eq{"student_id": r.StudentID},
		psql.Insert("performance_report").Columns(performanceColumns...).Values(
			r.ID, r.SchoolID, r.StudentID, null.Float64FromPtr(r.OverallAverage),
			r.PassedSubjects, r.FailedSubjects, r.GeneratedAt,
		))
	return r, err
}

func (repo *reportRepository) QueryPerformanceReports(ctx context.Context, filter report.Filter) ([]report.PerformanceReport, error) {
	b := reportWhere(psql.Select(performanceColumns...).From("performance_report"), filter)
	var rows []performanceRow
	if err := selectAll(ctx, repo.db, &rows, b.OrderBy("generated_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying performance reports")
	}
	reports := make([]report.PerformanceReport, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, r.performance())
	}
	return reports, nil
}

func (repo *reportRepository) DeletePerformanceReports(ctx context.Context, filter report.Filter) (int, error) {
	n, err := exec(ctx, repo.db, reportDeleteWhere("performance_report", filter))
	return n, errors.Wrap(err, "deleting performance reports")
}

func (repo *reportRepository) ReplaceFinancialReport(ctx context.Context, r report.FinancialReport) (report.FinancialReport, error) {
	byMonth, err := json.Marshal(r.RevenueByMonth)
	if err != nil {
		return report.FinancialReport{}, errors.Wrap(err, "encoding revenue by month")
	}
	r.ID = uuid.NewString()
	err = repo.replace(ctx, "financial_report",
		sq.Eq{"school_id": r.SchoolID, "start_date": r.StartDate, "end_date": r.EndDate},
		psql.Insert("financial_report").Columns(financialColumns...).Values(
			r.ID, r.SchoolID, r.StartDate, r.EndDate, r.TotalRevenue, r.PaymentCount, byMonth, r.GeneratedAt,
		))
	return r, err
}

func (repo *reportRepository) QueryFinancialReports(ctx context.Context, schoolID string) ([]report.FinancialReport, error) {
	var rows []financialRow
	err := selectAll(ctx, repo.db, &rows, psql.Select(financialColumns...).From("financial_report").
		Where(sq.Eq{"school_id": schoolID}).OrderBy("start_date DESC", "end_date DESC"))
	if err != nil {
		return nil, errors.Wrap(err, "querying financial reports")
	}
	reports := make([]report.FinancialReport, 0, len(rows))
	for _, r := range rows {
		f, err := r.financial()
		if err != nil {
			return nil, err
		}
		reports = append(reports, f)
	}
	return reports, nil
}

func (repo *reportRepository) GetFinancialReport(ctx context.Context, schoolID, id string) (report.FinancialReport, error) {
	var row financialRow
	err := get(ctx, repo.db, &row, psql.Select(financialColumns...).From("financial_report").
		Where(sq.Eq{"school_id": schoolID, "id": id}))
	if err != nil {
		return report.FinancialReport{}, notFound(err, report.ErrFinancialNotFound)
	}
	return row.financial()
}

func (repo *reportRepository) DeleteFinancialReport(ctx context.Context, schoolID, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("financial_report").Where(sq.Eq{"school_id": schoolID, "id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting financial report")
	}
	if n == 0 {
		return report.ErrFinancialNotFound
	}
	return nil
}
