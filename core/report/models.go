package report

import (
	"time"
)

// Kind names a report family.
type Kind string

const (
	KindAttendance  Kind = "attendance"
	KindBulletin    Kind = "bulletin"
	KindPerformance Kind = "performance"
	KindFinancial   Kind = "financial"
)

type AttendanceReport struct {
	ID             string    `json:"id"`
	SchoolID       string    `json:"school_id"`
	StudentID      string    `json:"student_id"`
	TotalAbsences  int       `json:"total_absences"`
	TotalPresences int       `json:"total_presences"`
	TotalLate      int       `json:"total_late"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type BulletinSubject struct {
	SubjectID       string  `json:"subject_id"`
	SubjectName     string  `json:"subject_name"`
	ControleGrade   float64 `json:"controle_grade"`
	SyntheseGrade   float64 `json:"synthese_grade"`
	Coefficient     float64 `json:"coefficient"`
	WeightedAverage float64 `json:"weighted_average"`
}

// Bulletin is keyed by student and trimester.
type Bulletin struct {
	ID          string            `json:"id"`
	SchoolID    string            `json:"school_id"`
	StudentID   string            `json:"student_id"`
	Trimester   int               `json:"trimester"`
	Subjects    []BulletinSubject `json:"subjects"`
	Average     float64           `json:"average"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type PerformanceReport struct {
	ID             string    `json:"id"`
	SchoolID       string    `json:"school_id"`
	StudentID      string    `json:"student_id"`
	OverallAverage *float64  `json:"overall_average"`
	PassedSubjects int       `json:"passed_subjects"`
	FailedSubjects int       `json:"failed_subjects"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// FinancialReport is keyed by school and date range.
type FinancialReport struct {
	ID             string             `json:"id"`
	SchoolID       string             `json:"school_id"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	TotalRevenue   float64            `json:"total_revenue"`
	PaymentCount   int                `json:"payment_count"`
	RevenueByMonth map[string]float64 `json:"revenue_by_month"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// Failure is a student whose report could not be generated.
type Failure struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

// Outcome summarizes a generate run.
type Outcome struct {
	Kind        Kind      `json:"kind"`
	Generated   int       `json:"generated"`
	NothingToDo bool      `json:"nothing_to_do"`
	Reason      string    `json:"reason,omitempty"`
	Failures    []Failure `json:"failures"`
}

func (o Outcome) status() string {
	switch {
	case o.NothingToDo:
		return "nothing_to_do"
	case len(o.Failures) > 0 && o.Generated == 0:
		return "failed"
	case len(o.Failures) > 0:
		return "partial"
	}
	return "generated"
}

// Filter selects student reports. Trimester only applies to bulletins.
type Filter struct {
	SchoolID   string   `query:"-"`
	StudentID  string   `query:"student_id"`
	StudentIDs []string `query:"-"`
	Trimester  int      `query:"trimester"`
}

type FinancialRequest struct {
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
}
