package report_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

type fixture struct {
	env   *testutil.Env
	admin user.Admin
	st1   school.Student
	st2   school.Student
	maths school.Subject
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv()
	core.ParseEmailTemplates(env.Conf, env.Logger)

	sch := env.CreateSchool(t, "School")
	cls := env.CreateClass(t, sch.ID, "1A")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	parent, _ := env.CreateParent(t, sch.ID, "parent")
	return fixture{
		env:   env,
		admin: admin,
		st1:   env.CreateStudent(t, sch.ID, cls.ID, "", "One"),
		st2:   env.CreateStudent(t, sch.ID, cls.ID, parent.ID, "Two"),
		maths: env.CreateSubject(t, sch.ID, "Maths", 4),
	}
}

func (f fixture) upsertGrade(t *testing.T, st school.Student, subjectID string, controle, synthese float64) {
	now := time.Now()
	_, err := f.env.Repos.Grades.UpsertGrade(context.Background(), grade.Grade{
		SchoolID:      st.SchoolID,
		StudentID:     st.ID,
		SubjectID:     subjectID,
		Trimester:     1,
		AcademicYear:  testutil.AcademicYear,
		ControleGrade: controle,
		SyntheseGrade: synthese,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
}

func TestService_permissions(t *testing.T) {
	f := setup(t)
	svc := f.env.Svcs.Reports
	ctx := context.Background()
	_, teacher := f.env.CreateTeacher(t, f.admin.SchoolID, "teacher")

	_, err := svc.GenerateAttendance(ctx, teacher)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = svc.GenerateBulletins(ctx, teacher, 1)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = svc.GeneratePerformance(ctx, teacher)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = svc.GenerateFinancial(ctx, teacher, report.FinancialRequest{StartDate: "2025-09-01", EndDate: "2025-09-30"})
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestService_nothingToDo(t *testing.T) {
	env := testutil.NewEnv()
	sch := env.CreateSchool(t, "Empty")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	svc := env.Svcs.Reports

	out, err := svc.GenerateAttendance(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, out.NothingToDo)
	assert.Equal(t, "no active students", out.Reason)
	assert.NotNil(t, out.Failures)

	out, err = svc.GenerateFinancial(context.Background(), admin, report.FinancialRequest{StartDate: "2025-09-01", EndDate: "2025-09-30"})
	require.NoError(t, err)
	assert.True(t, out.NothingToDo)
	assert.Equal(t, "no payments in range", out.Reason)

	notifs, err := env.Svcs.Notifications.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Empty(t, notifs, "nothing generated, nobody notified")
}

func TestService_GenerateBulletins_partialFailure(t *testing.T) {
	f := setup(t)
	svc := f.env.Svcs.Reports
	ctx := context.Background()

	f.upsertGrade(t, f.st1, "unknown-subject", 10, 10)
	f.upsertGrade(t, f.st2, f.maths.ID, 12, 15)

	out, err := svc.GenerateBulletins(ctx, f.admin, 1)
	require.NoError(t, err)
	assert.Equal(t, report.KindBulletin, out.Kind)
	assert.False(t, out.NothingToDo)
	assert.Equal(t, 1, out.Generated)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, f.st1.ID, out.Failures[0].StudentID)
	assert.Contains(t, out.Failures[0].Error, "unknown-subject")

	bulletins, err := svc.BulletinDetails(ctx, f.admin, f.st2.ID, 1)
	require.NoError(t, err)
	require.Len(t, bulletins, 1)
	assert.InDelta(t, 14, bulletins[0].Average, 1e-9)

	notifs, err := f.env.Svcs.Notifications.List(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.KindBulletinReady, notifs[0].Kind)
	assert.Equal(t, "1 bulletin reports generated, 1 failed", notifs[0].Body)

	// only st2 has a parent to email
	sent := f.env.Mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "parent@test.cd", sent[0].To[0].Address)
	assert.True(t, strings.Contains(sent[0].TextContent, "Average: 14.00/20"), sent[0].TextContent)
}

func TestService_GenerateBulletins_trimester(t *testing.T) {
	f := setup(t)
	for _, trimester := range []int{0, 4, -1} {
		_, err := f.env.Svcs.Reports.GenerateBulletins(context.Background(), f.admin, trimester)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr, "trimester %d", trimester)
		assert.Equal(t, []core.FieldError{{Field: "trimester", Error: "trimester must be 1, 2 or 3"}}, vErr.Fields)
	}
}

func TestService_GenerateAttendance_concurrent(t *testing.T) {
	f := setup(t)
	svc := f.env.Svcs.Reports

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.GenerateAttendance(context.Background(), f.admin)
			assert.NoError(t, err)
			assert.Equal(t, 2, out.Generated)
		}()
	}
	wg.Wait()

	reports, err := svc.ListAttendance(context.Background(), f.admin, report.Filter{})
	require.NoError(t, err)
	assert.Len(t, reports, 2, "one report per student")
}

func TestService_GeneratePerformance(t *testing.T) {
	f := setup(t)
	svc := f.env.Svcs.Reports
	ctx := context.Background()

	f.upsertGrade(t, f.st2, f.maths.ID, 6, 9)
	_, err := svc.GenerateBulletins(ctx, f.admin, 1)
	require.NoError(t, err)

	out, err := svc.GeneratePerformance(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Generated)

	perf, err := svc.PerformanceDetails(ctx, f.admin, f.st2.ID)
	require.NoError(t, err)
	require.NotNil(t, perf.OverallAverage)
	assert.InDelta(t, 8, *perf.OverallAverage, 1e-9)
	assert.Equal(t, 0, perf.PassedSubjects)
	assert.Equal(t, 1, perf.FailedSubjects)

	perf, err = svc.PerformanceDetails(ctx, f.admin, f.st1.ID)
	require.NoError(t, err)
	assert.Nil(t, perf.OverallAverage)
}

func TestService_GenerateAttendance_callerGone(t *testing.T) {
	f := setup(t)
	svc := f.env.Svcs.Reports

	// the run is shared with other callers: the starting caller leaving does not abort it
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := svc.GenerateAttendance(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Generated)
	assert.Empty(t, out.Failures)

	reports, err := svc.ListAttendance(context.Background(), f.admin, report.Filter{})
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}
