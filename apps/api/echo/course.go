package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/identity"
)

type courseApi struct {
	svc       attendance.Service
	gallery   *identity.Gallery
	tolerance float64
	validate  *validator.Validate
	logger    core.Logger
}

func registerCourseAPI(g *echo.Group, deps ServerDeps) {
	api := courseApi{
		svc:       deps.AttendanceSvc,
		gallery:   deps.Gallery,
		tolerance: deps.Conf.Identity.Tolerance,
		validate:  deps.Validate,
		logger:    deps.Logger,
	}

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create)

	dg := cg.Group("/:code")
	dg.POST("/enrollments", api.enroll)
	dg.GET("/columns", api.columns)
	dg.POST("/sessions", api.markSession)
	dg.POST("/sessions/recognize", api.recognizeSession)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.Courses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data attendance.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	course, err := api.svc.CreateCourse(ctx.Request().Context(), api.validate, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	code := ctx.Param("code")
	if err := api.svc.Enroll(ctx.Request().Context(), code, data.StudentIDs...); err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	return api.columns(ctx)
}

// columns returns the column view of the course: the session key column, then the enrolled student ids.
func (api *courseApi) columns(ctx echo.Context) error {
	cols, err := api.svc.CourseColumns(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "reading course columns")
	}
	return ctx.JSON(http.StatusOK, ColumnsResponse{Course: core.CleanCode(ctx.Param("code")), Columns: cols})
}

func (api *courseApi) markSession(ctx echo.Context) error {
	var data MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	key, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	sess, err := api.svc.MarkAttendance(ctx.Request().Context(), data.Present, ctx.Param("code"), key)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

// recognizeSession marks as present the students whose known encoding matches one of the captured encodings.
func (api *courseApi) recognizeSession(ctx echo.Context) error {
	if api.gallery == nil {
		return errRecognitionOff
	}

	var data RecognizeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecognizeRequest")
	}
	key, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	encs := make([]identity.Encoding, 0, len(data.Encodings))
	for _, enc := range data.Encodings {
		encs = append(encs, enc)
	}
	present, err := api.gallery.MatchAll(encs, api.tolerance)
	if err != nil {
		return err
	}
	if unknown := len(encs) - len(present); unknown > 0 {
		api.logger.Debug("faces not recognized", map[string]interface{}{"count": unknown, "session": key.String()})
	}

	sess, err := api.svc.MarkAttendance(ctx.Request().Context(), present, ctx.Param("code"), key)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, RecognizeResponse{Recognized: present, Session: sess})
}

type (
	EnrollRequest struct {
		StudentIDs []int `json:"student_ids" validate:"required,min=1,dive,gt=0"`
	}

	ColumnsResponse struct {
		Course  string   `json:"course"`
		Columns []string `json:"columns"`
	}

	MarkRequest struct {
		SessionKey string `json:"session_key" validate:"required,session_key"`
		Present    []int  `json:"present"`
	}

	RecognizeRequest struct {
		SessionKey string      `json:"session_key" validate:"required,session_key"`
		Encodings  [][]float64 `json:"encodings" validate:"required,min=1"`
	}

	RecognizeResponse struct {
		Recognized []int              `json:"recognized"`
		Session    attendance.Session `json:"session"`
	}
)

func (mr *MarkRequest) Validate(validate *validator.Validate) (attendance.SessionKey, error) {
	mr.SessionKey = core.CleanString(mr.SessionKey)
	if err := validate.Struct(mr); err != nil {
		return attendance.SessionKey{}, err
	}
	return attendance.ParseSessionKey(mr.SessionKey)
}

func (rr *RecognizeRequest) Validate(validate *validator.Validate) (attendance.SessionKey, error) {
	rr.SessionKey = core.CleanString(rr.SessionKey)
	if err := validate.Struct(rr); err != nil {
		return attendance.SessionKey{}, err
	}
	return attendance.ParseSessionKey(rr.SessionKey)
}
