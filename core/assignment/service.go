package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = core.NewNotFoundError("assignment")
	ErrQuestionNotFound   = core.NewNotFoundError("question")
	ErrSubmissionNotFound = core.NewNotFoundError("submission")
	ErrFileNotFound       = core.NewNotFoundError("submission file")
	ErrNotEnrolled        = core.NewForbiddenError("you are not enrolled in this classroom")
	ErrStudentsOnly       = core.NewForbiddenError("only students can submit assignments")
	errQuizGraded         = core.NewValidationError(
		errors.New("quiz submissions are scored automatically"),
		core.FieldError{Field: "score", Error: "quiz submissions are scored automatically"},
	)
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		// GetAssignment returns the assignment with its QuestionCount.
		GetAssignment(ctx context.Context, id int64, exec ...core.DBExecutor) (Assignment, error)
		QueryAssignments(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int64, exec ...core.DBExecutor) error

		CreateQuestions(ctx context.Context, qs []Question, exec ...core.DBExecutor) ([]Question, error)
		GetQuestion(ctx context.Context, id int64, exec ...core.DBExecutor) (Question, error)
		QueryQuestions(ctx context.Context, assignmentID int64, exec ...core.DBExecutor) ([]Question, error)
		DeleteQuestion(ctx context.Context, id int64, exec ...core.DBExecutor) error

		CreateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, id int64, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions returns submissions with the student's name, newest first.
		QuerySubmissions(ctx context.Context, filter SubmissionFilter, exec ...core.DBExecutor) ([]Submission, error)
		UpdateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		// SubmissionFiles returns the stored file paths of an assignment's submissions.
		SubmissionFiles(ctx context.Context, assignmentID int64, exec ...core.DBExecutor) ([]string, error)
		// ClassRoomFiles returns the stored file paths of every submission of a classroom.
		ClassRoomFiles(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]string, error)
	}

	// ClassRooms resolves the classroom an assignment belongs to for a principal.
	ClassRooms interface {
		GetForMember(ctx context.Context, p user.Principal, id int64) (classroom.ClassRoom, error)
		GetForManager(ctx context.Context, p user.Principal, id int64) (classroom.ClassRoom, error)
		IsEnrolled(ctx context.Context, classID int64, studentID string, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		repo              Repository
		tx                core.TxRunner
		classes           ClassRooms
		users             classroom.UserGetter
		store             core.FileStore
		mailSvc           core.EmailService
		logger            core.Logger
		maxSubmissionSize int64
		allowedExtensions map[string]bool
	}
)

func NewService(
	repo Repository,
	tx core.TxRunner,
	classes ClassRooms,
	users classroom.UserGetter,
	store core.FileStore,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	exts := make(map[string]bool, len(conf.Uploads.AllowedExtensions))
	for _, ext := range conf.Uploads.AllowedExtensions {
		exts[core.CleanString(ext, true)] = true
	}
	return &Service{
		repo:              repo,
		tx:                tx,
		classes:           classes,
		users:             users,
		store:             store,
		mailSvc:           mailSvc,
		logger:            logger,
		maxSubmissionSize: conf.Uploads.MaxSubmissionSize,
		allowedExtensions: exts,
	}
}

func (svc *Service) Create(ctx context.Context, p user.Principal, classID int64, na NewAssignment) (Assignment, error) {
	if _, err := svc.classes.GetForManager(ctx, p, classID); err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.CreateAssignment(ctx, Assignment{
		ClassRoomID: classID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		CreatedAt:   NowFunc().UTC(),
	})
	return a, errors.Wrap(err, "creating assignment")
}

// List returns the assignments of a classroom the principal is a member of.
func (svc *Service) List(ctx context.Context, p user.Principal, classID int64) ([]Assignment, error) {
	if _, err := svc.classes.GetForMember(ctx, p, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignments(ctx, classID)
}

// Get returns an assignment together with its classroom, provided p is a member of it.
func (svc *Service) Get(ctx context.Context, p user.Principal, id int64) (Assignment, classroom.ClassRoom, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, classroom.ClassRoom{}, err
	}
	c, err := svc.classes.GetForMember(ctx, p, a.ClassRoomID)
	if err != nil {
		return Assignment{}, classroom.ClassRoom{}, err
	}
	return a, c, nil
}

func (svc *Service) getManaged(ctx context.Context, p user.Principal, id int64) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if _, err := svc.classes.GetForManager(ctx, p, a.ClassRoomID); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, p user.Principal, id int64, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.getManaged(ctx, p, id)
	if err != nil {
		return Assignment{}, err
	}
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Description != nil {
		a.Description = *ua.Description
	}
	if ua.DueDate != nil {
		a.DueDate = ua.DueDate
	}
	a, err = svc.repo.UpdateAssignment(ctx, a)
	return a, errors.Wrap(err, "updating assignment")
}

// Delete removes an assignment, its questions and submissions, then the submitted files.
func (svc *Service) Delete(ctx context.Context, p user.Principal, id int64) error {
	if _, err := svc.getManaged(ctx, p, id); err != nil {
		return err
	}

	var paths []string
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if paths, err = svc.repo.SubmissionFiles(ctx, id, exec); err != nil {
			return errors.Wrap(err, "listing submission files")
		}
		return errors.Wrap(svc.repo.DeleteAssignment(ctx, id, exec), "deleting assignment")
	})
	if err != nil {
		return err
	}

	for _, fp := range paths {
		svc.removeFile(fp)
	}
	return nil
}

// ClassRoomFiles lists the files stored for a classroom's submissions.
func (svc *Service) ClassRoomFiles(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]string, error) {
	return svc.repo.ClassRoomFiles(ctx, classID, exec...)
}

func (svc *Service) removeFile(fp string) {
	if err := svc.store.Remove(fp); err != nil {
		svc.logger.Warn(fmt.Sprintf("removing stored file %q: %v", fp, err), err)
	}
}

// AddQuestion adds one question; the assignment switches to quiz mode.
func (svc *Service) AddQuestion(ctx context.Context, p user.Principal, assignmentID int64, nq NewQuestion) (Question, error) {
	if _, err := svc.getManaged(ctx, p, assignmentID); err != nil {
		return Question{}, err
	}
	options := nq.Options
	if options == nil {
		options = []string{}
	}
	qs, err := svc.repo.CreateQuestions(ctx, []Question{{
		AssignmentID:   assignmentID,
		Content:        nq.Content,
		Options:        options,
		CorrectAnswers: nq.CorrectAnswers,
		AllowMultiple:  nq.AllowMultiple,
	}})
	if err != nil {
		return Question{}, errors.Wrap(err, "creating question")
	}
	return qs[0], nil
}

// ImportQuestions parses a CSV or spreadsheet file and stores every question it holds, or none.
func (svc *Service) ImportQuestions(ctx context.Context, p user.Principal, assignmentID int64, filename string, data []byte) ([]Question, error) {
	if _, err := svc.getManaged(ctx, p, assignmentID); err != nil {
		return nil, err
	}

	parsed, err := ParseQuestions(filename, data)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return parsed, nil
	}
	for i := range parsed {
		parsed[i].AssignmentID = assignmentID
	}

	var created []Question
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		created, err = svc.repo.CreateQuestions(ctx, parsed, exec)
		return errors.Wrap(err, "creating questions")
	})
	return created, err
}

// Questions lists the questions of an assignment. Correct answers are only shown to managers.
func (svc *Service) Questions(ctx context.Context, p user.Principal, assignmentID int64) ([]Question, error) {
	_, c, err := svc.Get(ctx, p, assignmentID)
	if err != nil {
		return nil, err
	}
	qs, err := svc.repo.QueryQuestions(ctx, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	if !c.CanManage(p) {
		for i := range qs {
			qs[i] = qs[i].Public()
		}
	}
	return qs, nil
}

func (svc *Service) DeleteQuestion(ctx context.Context, p user.Principal, questionID int64) error {
	q, err := svc.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if _, err := svc.getManaged(ctx, p, q.AssignmentID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteQuestion(ctx, questionID), "deleting question")
}
