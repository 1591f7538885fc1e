package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt, generateLimit echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}
	admin := adminMiddleware()

	att := g.Group("/attendancereports", jwt)
	att.POST("/generate", api.generateAttendance, admin, generateLimit)
	att.GET("/list", api.listAttendance)
	att.GET("/details/:studentId", api.attendanceDetails)
	att.DELETE("/delete", api.deleteAttendance, admin)

	bul := g.Group("/bulletins", jwt)
	bul.POST("/generate", api.generateBulletins, admin, generateLimit)
	bul.GET("/list", api.listBulletins)
	bul.GET("/details/:studentId", api.bulletinDetails)
	bul.DELETE("/delete", api.deleteBulletins, admin)

	perf := g.Group("/performancereports", jwt)
	perf.POST("/generate", api.generatePerformance, admin, generateLimit)
	perf.GET("/list", api.listPerformance)
	perf.GET("/details/:studentId", api.performanceDetails)
	perf.DELETE("/delete", api.deletePerformance, admin)

	fin := g.Group("/financialreports", jwt, admin)
	fin.POST("/generate", api.generateFinancial, generateLimit)
	fin.GET("/list", api.listFinancial)
	fin.GET("/details/:id", api.financialDetails)
	fin.DELETE("/delete/:id", api.deleteFinancial)
}

// bindFilter reads the student report filter from the query string.
func bindFilter(ctx echo.Context) (report.Filter, error) {
	var filter report.Filter
	filter.StudentID = ctx.QueryParam("student_id")
	trimester, err := queryInt(ctx, "trimester")
	if err != nil {
		return filter, err
	}
	filter.Trimester = trimester
	return filter, nil
}

// Attendance

func (api *reportApi) generateAttendance(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	out, err := api.svc.GenerateAttendance(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "generating attendance reports")
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *reportApi) listAttendance(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	reports, err := api.svc.ListAttendance(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance reports")
	}
	if reports == nil {
		reports = []report.AttendanceReport{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) attendanceDetails(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.AttendanceDetails(ctx.Request().Context(), p, ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "finding attendance report")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) deleteAttendance(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.DeleteAttendance(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "deleting attendance reports")
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

// Bulletins

func (api *reportApi) generateBulletins(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	trimester, err := queryInt(ctx, "trimester")
	if err != nil {
		return err
	}
	out, err := api.svc.GenerateBulletins(ctx.Request().Context(), p, trimester)
	if err != nil {
		return errors.Wrap(err, "generating bulletins")
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *reportApi) listBulletins(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	bulletins, err := api.svc.ListBulletins(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying bulletins")
	}
	if bulletins == nil {
		bulletins = []report.Bulletin{}
	}
	return ctx.JSON(http.StatusOK, bulletins)
}

// bulletinDetails returns the bulletins of a student, of one trimester with `?trimester=`.
func (api *reportApi) bulletinDetails(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	trimester, err := queryInt(ctx, "trimester")
	if err != nil {
		return err
	}
	bulletins, err := api.svc.BulletinDetails(ctx.Request().Context(), p, ctx.Param("studentId"), trimester)
	if err != nil {
		return errors.Wrap(err, "finding bulletins")
	}
	return ctx.JSON(http.StatusOK, bulletins)
}

func (api *reportApi) deleteBulletins(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.DeleteBulletins(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "deleting bulletins")
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

// Performance

func (api *reportApi) generatePerformance(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	out, err := api.svc.GeneratePerformance(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "generating performance reports")
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *reportApi) listPerformance(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	reports, err := api.svc.ListPerformance(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying performance reports")
	}
	if reports == nil {
		reports = []report.PerformanceReport{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) performanceDetails(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.PerformanceDetails(ctx.Request().Context(), p, ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "finding performance report")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) deletePerformance(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.DeletePerformance(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "deleting performance reports")
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

// Financial

func (api *reportApi) generateFinancial(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data report.FinancialRequest
	if err := bind(ctx, &data, "FinancialRequest"); err != nil {
		return err
	}
	out, err := api.svc.GenerateFinancial(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "generating financial report")
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *reportApi) listFinancial(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	reports, err := api.svc.ListFinancial(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "querying financial reports")
	}
	if reports == nil {
		reports = []report.FinancialReport{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) financialDetails(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.FinancialDetails(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding financial report")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) deleteFinancial(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteFinancial(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting financial report")
	}
	return ctx.NoContent(http.StatusNoContent)
}
