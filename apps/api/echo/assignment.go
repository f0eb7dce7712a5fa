package echoapi

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
)

const mimeZip = "application/zip"

type assignmentApi struct {
	svc      *assignment.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, deps *Deps) {
	api := assignmentApi{svc: deps.AssignmentSvc, validate: deps.Validate}

	g.GET("/classrooms/:id/assignments", api.query)
	g.POST("/classrooms/:id/assignments", api.create)

	ag := g.Group("/assignments/:id")
	ag.GET("", api.retrieve)
	ag.PUT("", api.update)
	ag.DELETE("", api.destroy)
	ag.GET("/questions", api.questions)
	ag.POST("/questions", api.addQuestion)
	ag.POST("/questions/import", api.importQuestions)
	ag.GET("/submissions", api.submissions)
	ag.POST("/submissions", api.submit)
	ag.GET("/submissions/archive", api.archive)

	g.DELETE("/questions/:id", api.destroyQuestion)
	g.GET("/submissions/:id/file", api.downloadFile)
	g.PUT("/submissions/:id/grade", api.grade)
}

// AssignmentDetails is an assignment with its submission mode.
type AssignmentDetails struct {
	assignment.Assignment
	Mode      string `json:"mode"`
	CanManage bool   `json:"can_manage"`
}

// QuizAnswers is the JSON body of a quiz submission.
type QuizAnswers struct {
	Answers  map[int64][]string `json:"answers"`
	Comments string             `json:"comments"`
}

func (api *assignmentApi) query(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	as, err := api.svc.List(ctx.Request().Context(), p, classID)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	if as == nil {
		as = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assignment.NewAssignment
	if err := bindJSON(ctx, &data, "NewAssignment"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), p, classID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	a, c, err := api.svc.Get(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, AssignmentDetails{Assignment: a, Mode: a.Mode(), CanManage: c.CanManage(p)})
}

func (api *assignmentApi) update(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assignment.UpdateAssignment
	if err := bindJSON(ctx, &data, "UpdateAssignment"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) questions(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	qs, err := api.svc.Questions(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	if qs == nil {
		qs = []assignment.Question{}
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *assignmentApi) addQuestion(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assignment.NewQuestion
	if err := bindJSON(ctx, &data, "NewQuestion"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.AddQuestion(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *assignmentApi) importQuestions(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", "please select a file to import")
	}
	data, err := readFormFile(fh)
	if err != nil {
		return err
	}

	qs, err := api.svc.ImportQuestions(ctx.Request().Context(), p, id, fh.Filename, data)
	if err != nil {
		return errors.Wrap(err, "importing questions")
	}
	if qs == nil {
		qs = []assignment.Question{}
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"imported": len(qs), "questions": qs})
}

func (api *assignmentApi) destroyQuestion(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := api.svc.DeleteQuestion(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// submit takes a multipart form ("file", "comments") for file assignments
// and a QuizAnswers JSON body for quizzes.
func (api *assignmentApi) submit(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var form assignment.SubmissionForm
	if isMultipart(ctx) {
		form.Comments = ctx.FormValue("comments")
		if fh, err := ctx.FormFile("file"); err == nil {
			form.File = &assignment.Upload{
				Name: fh.Filename,
				Size: fh.Size,
				Open: func() (io.ReadCloser, error) { return fh.Open() },
			}
		}
	} else {
		var data QuizAnswers
		if err := bindJSON(ctx, &data, "QuizAnswers"); err != nil {
			return err
		}
		form.Answers = data.Answers
		form.Comments = data.Comments
	}

	res, err := api.svc.Submit(ctx.Request().Context(), p, id, form)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *assignmentApi) submissions(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	subs, err := api.svc.Submissions(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) archive(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	a, err := api.svc.WriteArchive(ctx.Request().Context(), p, id, &buf)
	if err != nil {
		return errors.Wrap(err, "writing submissions archive")
	}
	setAttachment(ctx, assignment.ArchiveName(a))
	return ctx.Blob(http.StatusOK, mimeZip, buf.Bytes())
}

func (api *assignmentApi) downloadFile(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	r, sub, err := api.svc.OpenSubmissionFile(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "opening submission file")
	}
	defer r.Close()

	contentType := mime.TypeByExtension(filepath.Ext(sub.FileName))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	setAttachment(ctx, sub.FileName)
	return ctx.Stream(http.StatusOK, contentType, r)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assignment.GradeSubmission
	if err := bindJSON(ctx, &data, "GradeSubmission"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening form file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return data, errors.Wrap(err, "reading form file")
}
