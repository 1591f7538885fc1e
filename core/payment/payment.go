// Package payment keeps the school fee payments, the source of financial reports.
package payment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

var ErrNotFound = core.NewNotFoundError("payment")

type Payment struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	StudentID string    `json:"student_id"`
	Amount    float64   `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NewPayment struct {
	StudentID string  `json:"student_id" validate:"required,uuid"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	PaidAt    string  `json:"paid_at" validate:"required,date"`
	Method    string  `json:"method" validate:"omitempty,oneof=cash bank mobile card"`
	Reference string  `json:"reference" validate:"omitempty,max=100"`
}

// Filter selects payments; From and To bound PaidAt, both inclusive, when set.
type Filter struct {
	SchoolID   string    `query:"-"`
	StudentID  string    `query:"student_id"`
	StudentIDs []string  `query:"-"`
	From       time.Time `query:"-"`
	To         time.Time `query:"-"`
}

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		QueryPayments(ctx context.Context, filter Filter) ([]Payment, error)
		DeletePayment(ctx context.Context, schoolID, id string) error
	}

	Students interface {
		GetStudent(ctx context.Context, schoolID, id string) (school.Student, error)
		StudentScope(ctx context.Context, p user.Principal) (ids []string, all bool, err error)
	}

	Service struct {
		repo     Repository
		students Students
		validate *validator.Validate
	}
)

func NewService(repo Repository, students Students, validate *validator.Validate) *Service {
	return &Service{repo: repo, students: students, validate: validate}
}

// Create records a payment; admins only.
func (svc *Service) Create(ctx context.Context, p user.Principal, np NewPayment) (Payment, error) {
	if p.Kind() != user.KindAdmin {
		return Payment{}, core.ErrPermissionDenied
	}
	if np.Method == "" {
		np.Method = "cash"
	}
	np.Reference = core.CleanString(np.Reference)
	if err := svc.validate.Struct(np); err != nil {
		return Payment{}, err
	}
	schoolID := p.Ident().SchoolID
	if _, err := svc.students.GetStudent(ctx, schoolID, np.StudentID); err != nil {
		if core.IsNotFound(err) {
			return Payment{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Payment{}, errors.Wrap(err, "finding student")
	}
	paidAt, err := time.Parse("2006-01-02", np.PaidAt)
	if err != nil {
		return Payment{}, core.NewValidationError(err, core.FieldError{Field: "paid_at", Error: "invalid date"})
	}

	return svc.repo.CreatePayment(ctx, Payment{
		SchoolID:  schoolID,
		StudentID: np.StudentID,
		Amount:    np.Amount,
		PaidAt:    paidAt,
		Method:    np.Method,
		Reference: np.Reference,
		CreatedAt: core.NowFunc(),
	})
}

// Query returns the payments visible to `p`. Teachers see none.
func (svc *Service) Query(ctx context.Context, p user.Principal, filter Filter) ([]Payment, error) {
	if p.Kind() == user.KindTeacher {
		return nil, core.ErrPermissionDenied
	}
	ids, all, err := svc.students.StudentScope(ctx, p)
	if err != nil {
		return nil, err
	}
	filter.SchoolID = p.Ident().SchoolID
	if !all {
		if len(ids) == 0 {
			return []Payment{}, nil
		}
		filter.StudentIDs = ids
	}
	return svc.repo.QueryPayments(ctx, filter)
}

// InRange returns the payments of a school paid between `from` and `to`, both inclusive.
func (svc *Service) InRange(ctx context.Context, schoolID string, from, to time.Time) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, Filter{SchoolID: schoolID, From: from, To: to})
}

func (svc *Service) Delete(ctx context.Context, p user.Principal, id string) error {
	if p.Kind() != user.KindAdmin {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeletePayment(ctx, p.Ident().SchoolID, id)
}
