package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/student"
	reportsvc "github.com/trezcool/hazira/services/report"
)

type studentApi struct {
	svc      student.Service
	attSvc   attendance.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, deps ServerDeps) {
	api := studentApi{
		svc:      deps.StudentSvc,
		attSvc:   deps.AttendanceSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id", ctxStudentMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.GET("/calendar", api.calendar)
	dg.GET("/report", api.report)
}

// Handlers

// query lists the roster along with every student's overall attendance percentage.
func (api *studentApi) query(ctx echo.Context) error {
	params, err := bindRosterParams(ctx)
	if err != nil {
		return err
	}

	entries, err := api.attSvc.Roster(ctx.Request().Context(), &params.Filter, params.Ordering)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

// retrieve returns the student with their per-course attendance.
func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	summary, err := api.attSvc.Summary(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	std, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.Delete(ctx.Request().Context(), std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) calendar(ctx echo.Context) error {
	std, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	cal, err := api.attSvc.Calendar(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "building calendar")
	}
	return ctx.JSON(http.StatusOK, cal)
}

// report downloads the attendance calendar as a spreadsheet (?format=xlsx|csv, xlsx by default).
func (api *studentApi) report(ctx echo.Context) error {
	std, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	format := ctx.QueryParam("format")
	if format == "" {
		format = reportsvc.FormatXLSX
	}
	if format, err = reportsvc.CheckFormat(format); err != nil {
		return err
	}

	cal, err := api.attSvc.Calendar(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "building calendar")
	}
	var buf bytes.Buffer
	if err = reportsvc.Write(&buf, cal, format); err != nil {
		return errors.Wrap(err, "writing report")
	}

	filename := fmt.Sprintf("attendance-%d.%s", std.ID, format)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Blob(http.StatusOK, reportsvc.ContentType(format), buf.Bytes())
}
