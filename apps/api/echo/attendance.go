package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
)

type attendanceApi struct {
	svc      *attendance.Service
	classes  *classroom.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, deps *Deps) {
	api := attendanceApi{svc: deps.AttendanceSvc, classes: deps.ClassSvc, validate: deps.Validate}

	g.GET("/classrooms/:id/attendance", api.query)
	g.POST("/classrooms/:id/attendance", api.open)
	g.GET("/classrooms/:id/attendance/open", api.openSessions)

	sg := g.Group("/attendance/:id")
	sg.GET("", api.retrieve)
	sg.POST("/check-in", api.checkIn)
	sg.POST("/close", api.close)
}

// query returns the session summaries to managers and the caller's own statuses to students.
func (api *attendanceApi) query(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	c, err := api.classes.GetForMember(reqCtx, p, classID)
	if err != nil {
		return errors.Wrap(err, "getting classroom")
	}
	if c.CanManage(p) {
		sums, err := api.svc.Sessions(reqCtx, p, classID)
		if err != nil {
			return errors.Wrap(err, "listing sessions")
		}
		return ctx.JSON(http.StatusOK, sums)
	}

	statuses, err := api.svc.StudentView(reqCtx, p, classID)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	return ctx.JSON(http.StatusOK, statuses)
}

func (api *attendanceApi) open(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data attendance.OpenSession
	if err := bindJSON(ctx, &data, "OpenSession"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sum, err := api.svc.Open(ctx.Request().Context(), p, classID, data)
	if err != nil {
		return errors.Wrap(err, "opening session")
	}
	return ctx.JSON(http.StatusCreated, sum)
}

func (api *attendanceApi) openSessions(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	sessions, err := api.svc.OpenSessions(ctx.Request().Context(), p, classID)
	if err != nil {
		return errors.Wrap(err, "listing open sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	details, err := api.svc.Details(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *attendanceApi) checkIn(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	rec, err := api.svc.CheckIn(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) close(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	sess, err := api.svc.Close(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "closing session")
	}
	return ctx.JSON(http.StatusOK, sess)
}
