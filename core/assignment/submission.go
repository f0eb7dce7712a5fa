package assignment

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

// Submit records a submission of the principal. Assignments without questions take a file,
// the others take quiz answers which are scored right away.
func (svc *Service) Submit(ctx context.Context, p user.Principal, assignmentID int64, form SubmissionForm) (SubmitResult, error) {
	if !p.IsStudent() {
		return SubmitResult{}, ErrStudentsOnly
	}

	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return SubmitResult{}, err
	}
	enrolled, err := svc.classes.IsEnrolled(ctx, a.ClassRoomID, p.UserID)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return SubmitResult{}, ErrNotEnrolled
	}

	questions, err := svc.repo.QueryQuestions(ctx, assignmentID)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "querying questions")
	}

	sub := Submission{
		AssignmentID: assignmentID,
		StudentID:    p.UserID,
		Comments:     core.CleanString(form.Comments),
		SubmittedAt:  NowFunc().UTC(),
	}
	if len(questions) == 0 {
		return svc.submitFile(ctx, sub, form.File)
	}

	quiz, err := ScoreQuiz(questions, form.Answers)
	if err != nil {
		return SubmitResult{}, err
	}
	score := quiz.Score
	sub.Comments = quiz.Summary()
	sub.Score = &score
	if sub, err = svc.repo.CreateSubmission(ctx, sub); err != nil {
		return SubmitResult{}, errors.Wrap(err, "creating submission")
	}
	return SubmitResult{Submission: sub, Quiz: &quiz}, nil
}

// uploadBaseName strips the directories of a client supplied file name, whichever separator the client uses.
func uploadBaseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return path.Base(name)
}

func (svc *Service) checkUpload(f *Upload) (string, error) {
	if f == nil || f.Size <= 0 || f.Open == nil {
		return "", core.NewFieldError("file", "please select a file to submit")
	}
	if svc.maxSubmissionSize > 0 && f.Size > svc.maxSubmissionSize {
		return "", core.NewFieldError("file", fmt.Sprintf("file size cannot exceed %d MB", svc.maxSubmissionSize>>20))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
	if !svc.allowedExtensions[ext] {
		return "", core.NewFieldError("file", "file type not allowed")
	}
	return ext, nil
}

func (svc *Service) submitFile(ctx context.Context, sub Submission, f *Upload) (SubmitResult, error) {
	ext, err := svc.checkUpload(f)
	if err != nil {
		return SubmitResult{}, err
	}

	r, err := f.Open()
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "opening upload")
	}
	fp, err := svc.store.Save(ctx, ext, r)
	_ = r.Close()
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "storing upload")
	}

	sub.FilePath = fp
	sub.FileName = uploadBaseName(f.Name)
	if sub, err = svc.repo.CreateSubmission(ctx, sub); err != nil {
		svc.removeFile(fp)
		return SubmitResult{}, errors.Wrap(err, "creating submission")
	}
	return SubmitResult{Submission: sub}, nil
}

// Submissions lists the submissions of an assignment: all of them for managers,
// the principal's own otherwise.
func (svc *Service) Submissions(ctx context.Context, p user.Principal, assignmentID int64) ([]Submission, error) {
	_, c, err := svc.Get(ctx, p, assignmentID)
	if err != nil {
		return nil, err
	}
	filter := SubmissionFilter{AssignmentID: assignmentID}
	if !c.CanManage(p) {
		filter.StudentID = p.UserID
	}
	return svc.repo.QuerySubmissions(ctx, filter)
}

// getVisibleSubmission returns a submission its author or a manager of its classroom may see.
func (svc *Service) getVisibleSubmission(ctx context.Context, p user.Principal, id int64) (Submission, Assignment, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, Assignment{}, err
	}
	a, c, err := svc.Get(ctx, p, sub.AssignmentID)
	if err != nil {
		return Submission{}, Assignment{}, err
	}
	if sub.StudentID != p.UserID && !c.CanManage(p) {
		return Submission{}, Assignment{}, core.NewForbiddenError("")
	}
	return sub, a, nil
}

// Grade sets the score of a file submission and notifies its author.
func (svc *Service) Grade(ctx context.Context, p user.Principal, submissionID int64, gs GradeSubmission) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	a, err := svc.getManaged(ctx, p, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	// a file submission stays gradable even if questions were added to the assignment later
	if !sub.HasFile() {
		return Submission{}, errQuizGraded
	}

	score := core.Round2(*gs.Score)
	sub.Score = &score
	if sub, err = svc.repo.UpdateSubmission(ctx, sub); err != nil {
		return Submission{}, errors.Wrap(err, "updating submission")
	}

	student, err := svc.users.GetByID(ctx, sub.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("finding student %s to notify: %v", sub.StudentID, err), err)
		return sub, nil
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.DisplayName(), Address: student.Email}},
		Subject:      "Your submission was graded",
		TemplateName: "submission_graded",
		TemplateData: struct {
			Name            string
			AssignmentTitle string
			Score           float64
		}{
			Name:            student.DisplayName(),
			AssignmentTitle: a.Title,
			Score:           score,
		},
	})
	return sub, nil
}

// OpenSubmissionFile opens the stored file of a submission for its author or a manager.
func (svc *Service) OpenSubmissionFile(ctx context.Context, p user.Principal, submissionID int64) (io.ReadCloser, Submission, error) {
	sub, _, err := svc.getVisibleSubmission(ctx, p, submissionID)
	if err != nil {
		return nil, Submission{}, err
	}
	if !sub.HasFile() {
		return nil, Submission{}, ErrFileNotFound
	}
	r, err := svc.store.Open(sub.FilePath)
	if err != nil {
		return nil, Submission{}, errors.Wrap(err, "opening submission file")
	}
	return r, sub, nil
}

// LatestSubmissions keeps the latest submission of each student, in the order first seen.
// subs must be sorted newest first.
func LatestSubmissions(subs []Submission) []Submission {
	seen := make(map[string]bool, len(subs))
	latest := make([]Submission, 0, len(subs))
	for _, s := range subs {
		if seen[s.StudentID] {
			continue
		}
		seen[s.StudentID] = true
		latest = append(latest, s)
	}
	return latest
}
