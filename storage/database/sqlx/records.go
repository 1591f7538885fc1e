package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/payment"
)

type attendanceRow struct {
	ID        string      `db:"id"`
	SchoolID  string      `db:"school_id"`
	StudentID string      `db:"student_id"`
	CourseID  null.String `db:"course_id"`
	Date      time.Time   `db:"date"`
	Status    string      `db:"status"`
	Note      string      `db:"note"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		StudentID: r.StudentID,
		CourseID:  r.CourseID.String,
		Date:      r.Date.UTC(),
		Status:    attendance.Status(r.Status),
		Note:      r.Note,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

var (
	attendanceColumns = []string{"id", "school_id", "student_id", "course_id", "date", "status", "note", "created_at"}
	gradeColumns      = []string{
		"id", "school_id", "student_id", "subject_id", "trimester", "academic_year",
		"controle_grade", "synthese_grade", "created_at", "updated_at",
	}
	paymentColumns = []string{"id", "school_id", "student_id", "amount", "paid_at", "method", "reference", "created_at"}
)

// studentWhere filters on a single student, a set of students, or both.
func studentWhere(b sq.SelectBuilder, studentID string, studentIDs []string) sq.SelectBuilder {
	if studentID != "" {
		b = b.Where(sq.Eq{"student_id": studentID})
	}
	if studentIDs != nil {
		b = b.Where(sq.Eq{"student_id": studentIDs})
	}
	return b
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	r.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("attendance").Columns(attendanceColumns...).Values(
		r.ID, r.SchoolID, r.StudentID, nullString(r.CourseID), r.Date, string(r.Status), r.Note, r.CreatedAt,
	))
	return r, errors.Wrap(err, "inserting attendance record")
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	b := psql.Select(attendanceColumns...).From("attendance").Where(sq.Eq{"school_id": filter.SchoolID})
	b = studentWhere(b, filter.StudentID, filter.StudentIDs)
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}

	var rows []attendanceRow
	if err := selectAll(ctx, repo.db, &rows, b.OrderBy("date DESC", "created_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, schoolID, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("attendance").Where(sq.Eq{"school_id": schoolID, "id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	if n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (repo *attendanceRepository) CountByStatus(ctx context.Context, studentID string) (map[attendance.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := selectAll(ctx, repo.db, &rows, psql.Select("status", "COUNT(*) AS count").From("attendance").
		Where(sq.Eq{"student_id": studentID}).GroupBy("status"))
	if err != nil {
		return nil, errors.Wrap(err, "counting attendance records")
	}
	counts := make(map[attendance.Status]int, len(rows))
	for _, r := range rows {
		counts[attendance.Status(r.Status)] = r.Count
	}
	return counts, nil
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) UpsertGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	b := psql.Insert("grade").Columns(gradeColumns...).Values(
		uuid.NewString(), g.SchoolID, g.StudentID, g.SubjectID, g.Trimester, g.AcademicYear,
		g.ControleGrade, g.SyntheseGrade, g.CreatedAt, g.UpdatedAt,
	).Suffix(`ON CONFLICT ON CONSTRAINT grade_key DO UPDATE SET
		controle_grade = EXCLUDED.controle_grade,
		synthese_grade = EXCLUDED.synthese_grade,
		updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`)

	q, args, err := b.ToSql()
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowxContext(ctx, q, args...).Scan(&g.ID, &g.CreatedAt); err != nil {
		return grade.Grade{}, errors.Wrap(err, "upserting grade")
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, filter grade.Filter) ([]grade.Grade, error) {
	b := psql.Select(gradeColumns...).From("grade").Where(sq.Eq{"school_id": filter.SchoolID})
	b = studentWhere(b, filter.StudentID, filter.StudentIDs)
	if filter.SubjectID != "" {
		b = b.Where(sq.Eq{"subject_id": filter.SubjectID})
	}
	if filter.Trimester != 0 {
		b = b.Where(sq.Eq{"trimester": filter.Trimester})
	}
	if filter.AcademicYear != "" {
		b = b.Where(sq.Eq{"academic_year": filter.AcademicYear})
	}

	grades := make([]grade.Grade, 0)
	err := selectAll(ctx, repo.db, &grades, b.OrderBy("academic_year DESC", "trimester", "subject_id"))
	return grades, errors.Wrap(err, "querying grades")
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, schoolID, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("grade").Where(sq.Eq{"school_id": schoolID, "id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if n == 0 {
		return grade.ErrNotFound
	}
	return nil
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	p.ID = uuid.NewString()
	_, err := exec(ctx, repo.db, psql.Insert("payment").Columns(paymentColumns...).Values(
		p.ID, p.SchoolID, p.StudentID, p.Amount, p.PaidAt, p.Method, p.Reference, p.CreatedAt,
	))
	return p, errors.Wrap(err, "inserting payment")
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.Filter) ([]payment.Payment, error) {
	b := psql.Select(paymentColumns...).From("payment").Where(sq.Eq{"school_id": filter.SchoolID})
	b = studentWhere(b, filter.StudentID, filter.StudentIDs)
	if !filter.From.IsZero() {
		b = b.Where(sq.GtOrEq{"paid_at": filter.From})
	}
	if !filter.To.IsZero() {
		b = b.Where(sq.LtOrEq{"paid_at": filter.To})
	}

	payments := make([]payment.Payment, 0)
	err := selectAll(ctx, repo.db, &payments, b.OrderBy("paid_at", "created_at"))
	return payments, errors.Wrap(err, "querying payments")
}

func (repo *paymentRepository) DeletePayment(ctx context.Context, schoolID, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("payment").Where(sq.Eq{"school_id": schoolID, "id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	if n == 0 {
		return payment.ErrNotFound
	}
	return nil
}
