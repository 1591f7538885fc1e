// Package report generates the attendance, bulletin, performance and financial reports
// from the school records, and serves them to the principals allowed to read them.
package report

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

var (
	ErrAttendanceNotFound  = core.NewNotFoundError("attendance report")
	ErrBulletinNotFound    = core.NewNotFoundError("bulletin")
	ErrPerformanceNotFound = core.NewNotFoundError("performance report")
	ErrFinancialNotFound   = core.NewNotFoundError("financial report")
)

const (
	reasonNoStudents = "no active students"
	reasonNoPayments = "no payments in range"
	dateLayout       = "2006-01-02"
)

type (
	Repository interface {
		// Replace* delete the report of the same key and insert the new one atomically.
		ReplaceAttendanceReport(ctx context.Context, r AttendanceReport) (AttendanceReport, error)
		QueryAttendanceReports(ctx context.Context, filter Filter) ([]AttendanceReport, error)
		DeleteAttendanceReports(ctx context.Context, filter Filter) (int, error)

		ReplaceBulletin(ctx context.Context, b Bulletin) (Bulletin, error)
		QueryBulletins(ctx context.Context, filter Filter) ([]Bulletin, error)
		DeleteBulletins(ctx context.Context, filter Filter) (int, error)

		ReplacePerformanceReport(ctx context.Context, r PerformanceReport) (PerformanceReport, error)
		QueryPerformanceReports(ctx context.Context, filter Filter) ([]PerformanceReport, error)
		DeletePerformanceReports(ctx context.Context, filter Filter) (int, error)

		ReplaceFinancialReport(ctx context.Context, r FinancialReport) (FinancialReport, error)
		QueryFinancialReports(ctx context.Context, schoolID string) ([]FinancialReport, error)
		GetFinancialReport(ctx context.Context, schoolID, id string) (FinancialReport, error)
		DeleteFinancialReport(ctx context.Context, schoolID, id string) error
	}

	Students interface {
		ActiveStudents(ctx context.Context, schoolID string) ([]school.Student, error)
		GetSubject(ctx context.Context, schoolID, id string) (school.Subject, error)
		GetParent(ctx context.Context, schoolID, id string) (school.Member, error)
		StudentScope(ctx context.Context, p user.Principal) (ids []string, all bool, err error)
	}

	Attendance interface {
		CountByStatus(ctx context.Context, studentID string) (map[attendance.Status]int, error)
	}

	Grades interface {
		StudentGrades(ctx context.Context, schoolID, studentID string, trimester int) ([]grade.Grade, error)
	}

	Payments interface {
		InRange(ctx context.Context, schoolID string, from, to time.Time) ([]payment.Payment, error)
	}

	Notifier interface {
		Notify(ctx context.Context, n notification.Notification, emails ...*core.EmailMessage) (notification.Notification, error)
	}

	Service struct {
		repo       Repository
		students   Students
		attendance Attendance
		grades     Grades
		payments   Payments
		notifier   Notifier
		validate   *validator.Validate
		logger     core.Logger
		group      singleflight.Group
	}
)

type Deps struct {
	Repo       Repository
	Students   Students
	Attendance Attendance
	Grades     Grades
	Payments   Payments
	Notifier   Notifier
	Validate   *validator.Validate
	Logger     core.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		repo:       deps.Repo,
		students:   deps.Students,
		attendance: deps.Attendance,
		grades:     deps.Grades,
		payments:   deps.Payments,
		notifier:   deps.Notifier,
		validate:   deps.Validate,
		logger:     deps.Logger,
	}
}

func adminSchool(p user.Principal) (string, error) {
	if p.Kind() != user.KindAdmin {
		return "", core.ErrPermissionDenied
	}
	return p.Ident().SchoolID, nil
}

// coalesce runs `run` once for concurrent calls of the same key and records its metrics.
// The run is shared, so it does not stop when the caller that started it goes away.
func (svc *Service) coalesce(ctx context.Context, kind Kind, key string, run func(ctx context.Context) (Outcome, error)) (Outcome, error) {
	runCtx := context.WithoutCancel(ctx)
	v, err, _ := svc.group.Do(string(kind)+":"+key, func() (interface{}, error) {
		start := time.Now()
		out, err := run(runCtx)
		generationSeconds.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
		status := out.status()
		if err != nil {
			status = "error"
		}
		generationsTotal.WithLabelValues(string(kind), status).Inc()
		return out, err
	})
	out, _ := v.(Outcome)
	return out, err
}

// forEachStudent runs `fn` sequentially on every active student of the school.
// A failing student is recorded in the outcome and the loop goes on.
func (svc *Service) forEachStudent(ctx context.Context, kind Kind, schoolID string, fn func(st school.Student) error) (Outcome, error) {
	out := Outcome{Kind: kind, Failures: []Failure{}}
	students, err := svc.students.ActiveStudents(ctx, schoolID)
	if err != nil {
		return out, errors.Wrap(err, "querying active students")
	}
	if len(students) == 0 {
		out.NothingToDo = true
		out.Reason = reasonNoStudents
		return out, nil
	}
	for _, st := range students {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrapf(err, "generating %s reports", kind)
		}
		if err := fn(st); err != nil {
			svc.logger.Warn(fmt.Sprintf("generating %s report of student %s", kind, st.ID), err)
			out.Failures = append(out.Failures, Failure{StudentID: st.ID, Error: err.Error()})
			continue
		}
		out.Generated++
	}
	return out, nil
}

func (svc *Service) notifySchool(ctx context.Context, schoolID string, out Outcome, emails ...*core.EmailMessage) {
	if out.Generated == 0 || svc.notifier == nil {
		return
	}
	kind := notification.KindReportGenerated
	if out.Kind == KindBulletin {
		kind = notification.KindBulletinReady
	}
	n := notification.Notification{
		SchoolID: schoolID,
		Kind:     kind,
		Title:    fmt.Sprintf("%s reports generated", out.Kind),
		Body:     fmt.Sprintf("%d %s reports generated, %d failed", out.Generated, out.Kind, len(out.Failures)),
	}
	if _, err := svc.notifier.Notify(ctx, n, emails...); err != nil {
		svc.logger.Error("notifying report generation", err)
	}
}

// GenerateAttendance builds the attendance report of each active student of the admin's school.
func (svc *Service) GenerateAttendance(ctx context.Context, p user.Principal) (Outcome, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return Outcome{}, err
	}
	return svc.coalesce(ctx, KindAttendance, schoolID, func(ctx context.Context) (Outcome, error) {
		out, err := svc.forEachStudent(ctx, KindAttendance, schoolID, func(st school.Student) error {
			counts, err := svc.attendance.CountByStatus(ctx, st.ID)
			if err != nil {
				return errors.Wrap(err, "counting attendance")
			}
			abs, pres, late := AttendanceTotals(counts)
			_, err = svc.repo.ReplaceAttendanceReport(ctx, AttendanceReport{
				SchoolID:       schoolID,
				StudentID:      st.ID,
				TotalAbsences:  abs,
				TotalPresences: pres,
				TotalLate:      late,
				GeneratedAt:    core.NowFunc(),
			})
			return errors.Wrap(err, "saving attendance report")
		})
		if err == nil {
			svc.notifySchool(ctx, schoolID, out)
		}
		return out, err
	})
}

type bulletinEmailData struct {
	ParentName  string
	StudentName string
	StudentID   string
	Trimester   int
	Average     float64
}

// GenerateBulletins builds the bulletin of each active student for `trimester` and emails the parents.
func (svc *Service) GenerateBulletins(ctx context.Context, p user.Principal, trimester int) (Outcome, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return Outcome{}, err
	}
	if trimester < 1 || trimester > 3 {
		return Outcome{}, core.NewValidationError(nil, core.FieldError{Field: "trimester", Error: "trimester must be 1, 2 or 3"})
	}

	key := fmt.Sprintf("%s:%d", schoolID, trimester)
	return svc.coalesce(ctx, KindBulletin, key, func(ctx context.Context) (Outcome, error) {
		var emails []*core.EmailMessage
		out, err := svc.forEachStudent(ctx, KindBulletin, schoolID, func(st school.Student) error {
			b, err := svc.bulletin(ctx, schoolID, st.ID, trimester)
			if err != nil {
				return err
			}
			if b, err = svc.repo.ReplaceBulletin(ctx, b); err != nil {
				return errors.Wrap(err, "saving bulletin")
			}
			if msg := svc.bulletinEmail(ctx, st, b); msg != nil {
				emails = append(emails, msg)
			}
			return nil
		})
		if err == nil {
			svc.notifySchool(ctx, schoolID, out, emails...)
		}
		return out, err
	})
}

func (svc *Service) bulletin(ctx context.Context, schoolID, studentID string, trimester int) (Bulletin, error) {
	grades, err := svc.grades.StudentGrades(ctx, schoolID, studentID, trimester)
	if err != nil {
		return Bulletin{}, errors.Wrap(err, "querying grades")
	}
	grades = LatestGrades(grades)
	subjects := make([]BulletinSubject, 0, len(grades))
	for _, g := range grades {
		subj, err := svc.students.GetSubject(ctx, schoolID, g.SubjectID)
		if err != nil {
			return Bulletin{}, errors.Wrapf(err, "finding subject %s", g.SubjectID)
		}
		subjects = append(subjects, BulletinSubject{
			SubjectID:       subj.ID,
			SubjectName:     subj.Name,
			ControleGrade:   g.ControleGrade,
			SyntheseGrade:   g.SyntheseGrade,
			Coefficient:     subj.Coefficient,
			WeightedAverage: WeightedAverage(g.ControleGrade, g.SyntheseGrade),
		})
	}
	return Bulletin{
		SchoolID:    schoolID,
		StudentID:   studentID,
		Trimester:   trimester,
		Subjects:    subjects,
		Average:     BulletinAverage(subjects),
		GeneratedAt: core.NowFunc(),
	}, nil
}

// bulletinEmail returns the email announcing `b` to the student's parent, nil when there is nobody to send it to.
func (svc *Service) bulletinEmail(ctx context.Context, st school.Student, b Bulletin) *core.EmailMessage {
	if st.ParentID == "" {
		return nil
	}
	parent, err := svc.students.GetParent(ctx, st.SchoolID, st.ParentID)
	if err != nil {
		svc.logger.Warn("finding parent of "+st.ID, err)
		return nil
	}
	if parent.Email == "" {
		return nil
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: parent.Name, Address: parent.Email}},
		Subject:      fmt.Sprintf("Bulletin of %s, trimester %d", st.FullName(), b.Trimester),
		TemplateName: "bulletin_ready",
		TemplateData: bulletinEmailData{
			ParentName:  parent.Name,
			StudentName: st.FullName(),
			StudentID:   st.ID,
			Trimester:   b.Trimester,
			Average:     b.Average,
		},
	}
}

// GeneratePerformance builds the performance report of each active student from their bulletins.
func (svc *Service) GeneratePerformance(ctx context.Context, p user.Principal) (Outcome, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return Outcome{}, err
	}
	return svc.coalesce(ctx, KindPerformance, schoolID, func(ctx context.Context) (Outcome, error) {
		out, err := svc.forEachStudent(ctx, KindPerformance, schoolID, func(st school.Student) error {
			bulletins, err := svc.repo.QueryBulletins(ctx, Filter{SchoolID: schoolID, StudentID: st.ID})
			if err != nil {
				return errors.Wrap(err, "querying bulletins")
			}
			avg, passed, failed := Performance(bulletins)
			_, err = svc.repo.ReplacePerformanceReport(ctx, PerformanceReport{
				SchoolID:       schoolID,
				StudentID:      st.ID,
				OverallAverage: avg,
				PassedSubjects: passed,
				FailedSubjects: failed,
				GeneratedAt:    core.NowFunc(),
			})
			return errors.Wrap(err, "saving performance report")
		})
		if err == nil {
			svc.notifySchool(ctx, schoolID, out)
		}
		return out, err
	})
}

// GenerateFinancial builds the financial report of the admin's school between two dates, both inclusive.
func (svc *Service) GenerateFinancial(ctx context.Context, p user.Principal, req FinancialRequest) (Outcome, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return Outcome{}, err
	}
	if err := svc.validate.Struct(req); err != nil {
		return Outcome{}, err
	}
	from, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return Outcome{}, core.NewValidationError(err, core.FieldError{Field: "start_date", Error: "invalid date"})
	}
	to, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return Outcome{}, core.NewValidationError(err, core.FieldError{Field: "end_date", Error: "invalid date"})
	}
	if to.Before(from) {
		return Outcome{}, core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end_date must not be before start_date"})
	}

	key := schoolID + ":" + req.StartDate + ":" + req.EndDate
	return svc.coalesce(ctx, KindFinancial, key, func(ctx context.Context) (Outcome, error) {
		out := Outcome{Kind: KindFinancial, Failures: []Failure{}}
		payments, err := svc.payments.InRange(ctx, schoolID, from, to)
		if err != nil {
			return out, errors.Wrap(err, "querying payments")
		}
		if len(payments) == 0 {
			out.NothingToDo = true
			out.Reason = reasonNoPayments
			return out, nil
		}
		total, count, byMonth := Financial(payments)
		if _, err := svc.repo.ReplaceFinancialReport(ctx, FinancialReport{
			SchoolID:       schoolID,
			StartDate:      from,
			EndDate:        to,
			TotalRevenue:   total,
			PaymentCount:   count,
			RevenueByMonth: byMonth,
			GeneratedAt:    core.NowFunc(),
		}); err != nil {
			return out, errors.Wrap(err, "saving financial report")
		}
		out.Generated = 1
		svc.notifySchool(ctx, schoolID, out)
		return out, nil
	})
}

// scope returns the students `p` may read reports of; all is true for the whole school.
// Teachers may read none.
func (svc *Service) scope(ctx context.Context, p user.Principal) (ids []string, all bool, err error) {
	if p.Kind() == user.KindTeacher {
		return nil, false, core.ErrPermissionDenied
	}
	return svc.students.StudentScope(ctx, p)
}

// readScope restricts `filter` to the students visible to `p`. ok is false when none is.
func (svc *Service) readScope(ctx context.Context, p user.Principal, filter Filter) (_ Filter, ok bool, err error) {
	ids, all, err := svc.scope(ctx, p)
	if err != nil {
		return filter, false, err
	}
	filter.SchoolID = p.Ident().SchoolID
	if all {
		return filter, true, nil
	}
	filter.StudentIDs = ids
	return filter, len(ids) > 0, nil
}

// canRead returns the filter selecting the reports of `studentID`, if `p` may read them.
func (svc *Service) canRead(ctx context.Context, p user.Principal, studentID string) (Filter, error) {
	filter := Filter{SchoolID: p.Ident().SchoolID, StudentID: studentID}
	ids, all, err := svc.scope(ctx, p)
	if err != nil || all {
		return filter, err
	}
	for _, id := range ids {
		if id == studentID {
			return filter, nil
		}
	}
	return filter, core.ErrPermissionDenied
}

func (svc *Service) ListAttendance(ctx context.Context, p user.Principal, filter Filter) ([]AttendanceReport, error) {
	filter, ok, err := svc.readScope(ctx, p, filter)
	if err != nil || !ok {
		return []AttendanceReport{}, err
	}
	return svc.repo.QueryAttendanceReports(ctx, filter)
}

func (svc *Service) AttendanceDetails(ctx context.Context, p user.Principal, studentID string) (AttendanceReport, error) {
	filter, err := svc.canRead(ctx, p, studentID)
	if err != nil {
		return AttendanceReport{}, err
	}
	reports, err := svc.repo.QueryAttendanceReports(ctx, filter)
	if err != nil {
		return AttendanceReport{}, err
	}
	if len(reports) == 0 {
		return AttendanceReport{}, ErrAttendanceNotFound
	}
	return reports[0], nil
}

func (svc *Service) DeleteAttendance(ctx context.Context, p user.Principal, filter Filter) (int, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return 0, err
	}
	filter.SchoolID = schoolID
	return svc.repo.DeleteAttendanceReports(ctx, filter)
}

func (svc *Service) ListBulletins(ctx context.Context, p user.Principal, filter Filter) ([]Bulletin, error) {
	filter, ok, err := svc.readScope(ctx, p, filter)
	if err != nil || !ok {
		return []Bulletin{}, err
	}
	return svc.repo.QueryBulletins(ctx, filter)
}

// BulletinDetails returns the bulletins of a student, of every trimester unless `trimester` is set.
func (svc *Service) BulletinDetails(ctx context.Context, p user.Principal, studentID string, trimester int) ([]Bulletin, error) {
	filter, err := svc.canRead(ctx, p, studentID)
	if err != nil {
		return nil, err
	}
	filter.Trimester = trimester
	bulletins, err := svc.repo.QueryBulletins(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(bulletins) == 0 {
		return nil, ErrBulletinNotFound
	}
	return bulletins, nil
}

func (svc *Service) DeleteBulletins(ctx context.Context, p user.Principal, filter Filter) (int, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return 0, err
	}
	filter.SchoolID = schoolID
	return svc.repo.DeleteBulletins(ctx, filter)
}

func (svc *Service) ListPerformance(ctx context.Context, p user.Principal, filter Filter) ([]PerformanceReport, error) {
	filter, ok, err := svc.readScope(ctx, p, filter)
	if err != nil || !ok {
		return []PerformanceReport{}, err
	}
	return svc.repo.QueryPerformanceReports(ctx, filter)
}

func (svc *Service) PerformanceDetails(ctx context.Context, p user.Principal, studentID string) (PerformanceReport, error) {
	filter, err := svc.canRead(ctx, p, studentID)
	if err != nil {
		return PerformanceReport{}, err
	}
	reports, err := svc.repo.QueryPerformanceReports(ctx, filter)
	if err != nil {
		return PerformanceReport{}, err
	}
	if len(reports) == 0 {
		return PerformanceReport{}, ErrPerformanceNotFound
	}
	return reports[0], nil
}

func (svc *Service) DeletePerformance(ctx context.Context, p user.Principal, filter Filter) (int, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return 0, err
	}
	filter.SchoolID = schoolID
	return svc.repo.DeletePerformanceReports(ctx, filter)
}

func (svc *Service) ListFinancial(ctx context.Context, p user.Principal) ([]FinancialReport, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryFinancialReports(ctx, schoolID)
}

func (svc *Service) FinancialDetails(ctx context.Context, p user.Principal, id string) (FinancialReport, error) {
	schoolID, err := adminSchool(p)
	if err != nil {
		return FinancialReport{}, err
	}
	return svc.repo.GetFinancialReport(ctx, schoolID, id)
}

func (svc *Service) DeleteFinancial(ctx context.Context, p user.Principal, id string) error {
	schoolID, err := adminSchool(p)
	if err != nil {
		return err
	}
	return svc.repo.DeleteFinancialReport(ctx, schoolID, id)
}
