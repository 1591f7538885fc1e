package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/payment"
)

// recordsApi serves the source records of reports: absences, grades and payments.
type recordsApi struct {
	attendance *attendance.Service
	grades     *grade.Service
	payments   *payment.Service
}

func registerRecordsAPI(g *echo.Group, jwt echo.MiddlewareFunc, att *attendance.Service, grd *grade.Service, pay *payment.Service) {
	api := recordsApi{attendance: att, grades: grd, payments: pay}

	ag := g.Group("", jwt)

	ag.POST("/absences", api.createAbsence)
	ag.GET("/absences", api.listAbsences)
	ag.DELETE("/absences/:id", api.deleteAbsence)

	ag.POST("/grades", api.saveGrade)
	ag.GET("/grades", api.listGrades)
	ag.DELETE("/grades/:id", api.deleteGrade)

	ag.POST("/payments", api.createPayment)
	ag.GET("/payments", api.listPayments)
	ag.DELETE("/payments/:id", api.deletePayment)
}

func (api *recordsApi) createAbsence(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewRecord
	if err := bind(ctx, &data, "NewRecord"); err != nil {
		return err
	}
	rec, err := api.attendance.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating attendance record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordsApi) listAbsences(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter attendance.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	records, err := api.attendance.Query(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *recordsApi) deleteAbsence(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.attendance.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *recordsApi) saveGrade(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data grade.NewGrade
	if err := bind(ctx, &data, "NewGrade"); err != nil {
		return err
	}
	g, err := api.grades.Save(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "saving grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *recordsApi) listGrades(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter grade.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []grade.Grade{})
	}
	grades, err := api.grades.Query(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *recordsApi) deleteGrade(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.grades.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *recordsApi) createPayment(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data payment.NewPayment
	if err := bind(ctx, &data, "NewPayment"); err != nil {
		return err
	}
	pay, err := api.payments.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, pay)
}

// listPayments accepts optional `from` and `to` dates (YYYY-MM-DD), both inclusive.
func (api *recordsApi) listPayments(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var filter payment.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	if filter.From, err = queryDate(ctx, "from"); err != nil {
		return err
	}
	if filter.To, err = queryDate(ctx, "to"); err != nil {
		return err
	}

	payments, err := api.payments.Query(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *recordsApi) deletePayment(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.payments.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func queryDate(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a date formatted as YYYY-MM-DD"})
	}
	return t, nil
}
