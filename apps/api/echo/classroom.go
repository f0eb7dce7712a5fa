package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
)

type classRoomApi struct {
	svc      *classroom.Service
	validate *validator.Validate
}

func registerClassRoomAPI(g *echo.Group, deps *Deps) {
	api := classRoomApi{svc: deps.ClassSvc, validate: deps.Validate}

	cg := g.Group("/classrooms")
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.PUT("/:id/enrollment-password", api.setEnrollmentPassword)
	cg.POST("/:id/enroll", api.enroll)
	cg.GET("/:id/enrollments", api.enrollments)
	cg.GET("/:id/content", api.contentBlocks)
	cg.POST("/:id/content", api.addContentBlock)

	bg := g.Group("/content")
	bg.PUT("/:id", api.updateContentBlock)
	bg.DELETE("/:id", api.destroyContentBlock)
}

// query lists classrooms; `?mine=true` narrows them to the caller's own or enrolled ones.
func (api *classRoomApi) query(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	filter := new(classroom.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classroom.ClassRoom{})
	}
	filter.Clean()
	if mine, _ := strconv.ParseBool(ctx.QueryParam("mine")); mine {
		switch {
		case p.IsInstructor():
			filter.InstructorID = p.UserID
		case p.IsStudent():
			filter.StudentID = p.UserID
		}
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "title", "created_at")

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	if classes == nil {
		classes = []classroom.ClassRoom{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classRoomApi) create(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewClassRoom
	if err := bindJSON(ctx, &data, "NewClassRoom"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *classRoomApi) retrieve(ctx echo.Context) error {
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
		return errors.Wrap(err, "getting classroom details")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *classRoomApi) update(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data classroom.UpdateClassRoom
	if err := bindJSON(ctx, &data, "UpdateClassRoom"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating classroom")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classRoomApi) destroy(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classRoomApi) setEnrollmentPassword(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data classroom.SetEnrollmentPassword
	if err := bindJSON(ctx, &data, "SetEnrollmentPassword"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.SetEnrollmentPassword(ctx.Request().Context(), p, id, data.Password)
	if err != nil {
		return errors.Wrap(err, "setting enrollment password")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"classroom":               c,
		"has_enrollment_password": c.HasEnrollmentPassword(),
	})
}

func (api *classRoomApi) enroll(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data classroom.EnrollRequest
	if err := bindJSON(ctx, &data, "EnrollRequest"); err != nil {
		return err
	}

	res, err := api.svc.Enroll(ctx.Request().Context(), p, id, data.Password)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	code := http.StatusCreated
	if res.Status == classroom.StatusAlreadyEnrolled {
		code = http.StatusOK
	}
	return ctx.JSON(code, res)
}

func (api *classRoomApi) enrollments(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	enrs, err := api.svc.Enrollments(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *classRoomApi) contentBlocks(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	blocks, err := api.svc.ContentBlocks(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "listing content blocks")
	}
	return ctx.JSON(http.StatusOK, blocks)
}

func (api *classRoomApi) addContentBlock(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data classroom.ContentBlockForm
	if err := bindJSON(ctx, &data, "ContentBlockForm"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.AddContentBlock(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "adding content block")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *classRoomApi) updateContentBlock(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data classroom.ContentBlockForm
	if err := bindJSON(ctx, &data, "ContentBlockForm"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.UpdateContentBlock(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating content block")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *classRoomApi) destroyContentBlock(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := api.svc.DeleteContentBlock(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting content block")
	}
	return ctx.NoContent(http.StatusNoContent)
}
