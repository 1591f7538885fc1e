package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/payment"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		controle, synthese, want float64
	}{
		{0, 0, 0},
		{20, 20, 20},
		{10, 16, 14},
		{12, 15, 14},
		{9, 12, 11},
		{20, 5, 10},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, WeightedAverage(tc.controle, tc.synthese), 1e-9, "WeightedAverage(%v, %v)", tc.controle, tc.synthese)
	}
}

func TestBulletinAverage(t *testing.T) {
	assert.Equal(t, float64(0), BulletinAverage(nil))
	assert.Equal(t, float64(0), BulletinAverage([]BulletinSubject{{WeightedAverage: 15, Coefficient: 0}}))

	subjects := []BulletinSubject{
		{WeightedAverage: 14, Coefficient: 4},
		{WeightedAverage: 8, Coefficient: 2},
	}
	assert.InDelta(t, 12, BulletinAverage(subjects), 1e-9)

	// (14*2 + 10*3) / (2+3) = 58/5
	subjects = []BulletinSubject{
		{WeightedAverage: 14, Coefficient: 2},
		{WeightedAverage: 10, Coefficient: 3},
	}
	assert.InDelta(t, 11.6, BulletinAverage(subjects), 1e-9)
}

func TestPerformance(t *testing.T) {
	t.Run("no bulletins", func(t *testing.T) {
		avg, passed, failed := Performance(nil)
		assert.Nil(t, avg)
		assert.Zero(t, passed)
		assert.Zero(t, failed)
	})

	t.Run("empty bulletins", func(t *testing.T) {
		avg, _, _ := Performance([]Bulletin{{Trimester: 1}, {Trimester: 2}})
		assert.Nil(t, avg)
	})

	t.Run("across trimesters", func(t *testing.T) {
		bulletins := []Bulletin{
			{Trimester: 1, Subjects: []BulletinSubject{
				{WeightedAverage: 14, Coefficient: 4},
				{WeightedAverage: 8, Coefficient: 2},
			}},
			{Trimester: 2, Subjects: []BulletinSubject{
				{WeightedAverage: 10, Coefficient: 2},
			}},
		}
		avg, passed, failed := Performance(bulletins)
		require.NotNil(t, avg)
		assert.InDelta(t, 92.0/8.0, *avg, 1e-9)
		assert.Equal(t, 2, passed, "the pass mark is inclusive")
		assert.Equal(t, 1, failed)
	})
}

func TestAttendanceTotals(t *testing.T) {
	abs, pres, late := AttendanceTotals(map[attendance.Status]int{
		attendance.StatusAbsent: 3,
		attendance.StatusLate:   1,
	})
	assert.Equal(t, 3, abs)
	assert.Equal(t, 0, pres)
	assert.Equal(t, 1, late)

	abs, pres, late = AttendanceTotals(map[attendance.Status]int{
		attendance.StatusAbsent:  3,
		attendance.StatusPresent: 5,
		attendance.StatusLate:    2,
	})
	assert.Equal(t, 3, abs)
	assert.Equal(t, 5, pres)
	assert.Equal(t, 2, late)
}

func TestFinancial(t *testing.T) {
	day := func(month time.Month, d int) time.Time { return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC) }

	total, count, byMonth := Financial(nil)
	assert.Zero(t, total)
	assert.Zero(t, count)
	assert.Empty(t, byMonth)

	total, count, byMonth = Financial([]payment.Payment{
		{Amount: 100, PaidAt: day(time.September, 1)},
		{Amount: 50, PaidAt: day(time.September, 30)},
		{Amount: 75.5, PaidAt: day(time.October, 12)},
	})
	assert.InDelta(t, 225.5, total, 1e-9)
	assert.Equal(t, 3, count)
	assert.Equal(t, map[string]float64{"September": 150, "October": 75.5}, byMonth)
}

func TestLatestGrades(t *testing.T) {
	now := time.Now()
	grades := []grade.Grade{
		{ID: "1", SubjectID: "maths", UpdatedAt: now.Add(-time.Hour)},
		{ID: "2", SubjectID: "french", UpdatedAt: now},
		{ID: "3", SubjectID: "maths", UpdatedAt: now},
		{ID: "4", SubjectID: "maths", UpdatedAt: now.Add(-2 * time.Hour)},
	}

	latest := LatestGrades(grades)
	require.Len(t, latest, 2)
	assert.Equal(t, "2", latest[0].ID)
	assert.Equal(t, "3", latest[1].ID)

	assert.Empty(t, LatestGrades(nil))
}

func TestOutcome_status(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
		want string
	}{
		{"nothing to do", Outcome{NothingToDo: true}, "nothing_to_do"},
		{"generated", Outcome{Generated: 2, Failures: []Failure{}}, "generated"},
		{"partial", Outcome{Generated: 1, Failures: []Failure{{StudentID: "x"}}}, "partial"},
		{"failed", Outcome{Failures: []Failure{{StudentID: "x"}}}, "failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.out.status())
		})
	}
}
