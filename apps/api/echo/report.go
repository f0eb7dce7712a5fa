package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/report"
)

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, deps *Deps) {
	api := reportApi{svc: deps.ReportSvc}

	g.GET("/classrooms/:id/report", api.gradeReport)
	g.GET("/classrooms/:id/report/xlsx", api.gradeReportXLSX)
	g.GET("/classrooms/:id/attendance/export", api.attendanceCSV)
	g.GET("/reports/roster", api.rosterCSV, adminMiddleware())
}

func (api *reportApi) gradeReport(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	r, err := api.svc.GradeReport(ctx.Request().Context(), p, classID)
	if err != nil {
		return errors.Wrap(err, "building grade report")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) gradeReportXLSX(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	r, err := api.svc.GradeReport(ctx.Request().Context(), p, classID)
	if err != nil {
		return errors.Wrap(err, "building grade report")
	}
	return sendFile(ctx, mimeXLSX, report.FileName(r.ClassRoom, "report", "xlsx"), func(w io.Writer) error {
		return report.WriteXLSX(r, w)
	})
}

func (api *reportApi) attendanceCSV(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	filename := report.FileName(classroom.ClassRoom{ID: classID}, "attendance", "csv")
	return sendFile(ctx, mimeCSV, filename, func(w io.Writer) error {
		return errors.Wrap(api.svc.WriteAttendanceCSV(reqCtx, p, classID, w), "exporting attendance")
	})
}

func (api *reportApi) rosterCSV(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	return sendFile(ctx, mimeCSV, "enrollments.csv", func(w io.Writer) error {
		return errors.Wrap(api.svc.WriteRosterCSV(reqCtx, p, w), "exporting roster")
	})
}
