package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
)

const (
	assignmentSelect = `SELECT a.id, a.classroom_id, a.title, a.description, a.due_date, a.created_at,
	(SELECT COUNT(*) FROM question q WHERE q.assignment_id = a.id) AS question_count
	FROM assignment a`
	questionColumns  = `id, assignment_id, content, options, correct_answers, allow_multiple`
	submissionSelect = `SELECT s.id, s.assignment_id, s.student_id, s.file_path, s.file_name, s.comments, s.score,
	s.submitted_at, u.name AS student_name
	FROM submission s
	JOIN "user" u ON u.id = s.student_id`
)

type assignmentRow struct {
	ID            int64     `db:"id"`
	ClassRoomID   int64     `db:"classroom_id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	DueDate       null.Time `db:"due_date"`
	CreatedAt     time.Time `db:"created_at"`
	QuestionCount int       `db:"question_count"`
}

func (r assignmentRow) toAssignment() assignment.Assignment {
	a := assignment.Assignment{
		ID:            r.ID,
		ClassRoomID:   r.ClassRoomID,
		Title:         r.Title,
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.UTC(),
		QuestionCount: r.QuestionCount,
	}
	if r.DueDate.Valid {
		t := r.DueDate.Time.UTC()
		a.DueDate = &t
	}
	return a
}

type questionRow struct {
	ID             int64          `db:"id"`
	AssignmentID   int64          `db:"assignment_id"`
	Content        string         `db:"content"`
	Options        pq.StringArray `db:"options"`
	CorrectAnswers string         `db:"correct_answers"`
	AllowMultiple  bool           `db:"allow_multiple"`
}

func (r questionRow) toQuestion() assignment.Question {
	options := []string(r.Options)
	if options == nil {
		options = []string{}
	}
	return assignment.Question{
		ID:             r.ID,
		AssignmentID:   r.AssignmentID,
		Content:        r.Content,
		Options:        options,
		CorrectAnswers: r.CorrectAnswers,
		AllowMultiple:  r.AllowMultiple,
	}
}

type submissionRow struct {
	ID           int64        `db:"id"`
	AssignmentID int64        `db:"assignment_id"`
	StudentID    string       `db:"student_id"`
	StudentName  string       `db:"student_name"`
	FilePath     string       `db:"file_path"`
	FileName     string       `db:"file_name"`
	Comments     string       `db:"comments"`
	Score        null.Float64 `db:"score"`
	SubmittedAt  time.Time    `db:"submitted_at"`
}

func (r submissionRow) toSubmission() assignment.Submission {
	return assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		FilePath:     r.FilePath,
		FileName:     r.FileName,
		Comments:     r.Comments,
		Score:        r.Score.Ptr(),
		SubmittedAt:  r.SubmittedAt.UTC(),
	}
}

type assignmentRepository struct {
	baseRepository
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor) assignment.Repository {
	return &assignmentRepository{baseRepository{exec: exec}}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	var id int64
	exe := repo.getExec(exec)
	err := exe.GetContext(ctx, &id,
		`INSERT INTO assignment (classroom_id, title, description, due_date, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.ClassRoomID, a.Title, a.Description, null.TimeFromPtr(a.DueDate), a.CreatedAt.UTC())
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return repo.GetAssignment(ctx, id, exe)
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id int64, exec ...core.DBExecutor) (assignment.Assignment, error) {
	var r assignmentRow
	if err := repo.getExec(exec).GetContext(ctx, &r, assignmentSelect+` WHERE a.id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return r.toAssignment(), nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := repo.getExec(exec).SelectContext(ctx, &rows, assignmentSelect+` WHERE a.classroom_id = $1 ORDER BY a.created_at, a.id`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	as := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		as = append(as, r.toAssignment())
	}
	return as, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx,
		`UPDATE assignment SET title = $2, description = $3, due_date = $4 WHERE id = $1`,
		a.ID, a.Title, a.Description, null.TimeFromPtr(a.DueDate))
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return repo.GetAssignment(ctx, a.ID, exe)
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id)
	return errors.Wrap(err, "deleting assignment")
}

func (repo *assignmentRepository) CreateQuestions(ctx context.Context, qs []assignment.Question, exec ...core.DBExecutor) ([]assignment.Question, error) {
	exe := repo.getExec(exec)
	created := make([]assignment.Question, 0, len(qs))
	for _, q := range qs {
		options := q.Options
		if options == nil {
			options = []string{}
		}
		var r questionRow
		err := exe.GetContext(ctx, &r,
			`INSERT INTO question (assignment_id, content, options, correct_answers, allow_multiple)
			VALUES ($1, $2, $3, $4, $5) RETURNING `+questionColumns,
			q.AssignmentID, q.Content, pq.Array(options), q.CorrectAnswers, q.AllowMultiple)
		if err != nil {
			return nil, errors.Wrap(err, "inserting question")
		}
		created = append(created, r.toQuestion())
	}
	return created, nil
}

func (repo *assignmentRepository) GetQuestion(ctx context.Context, id int64, exec ...core.DBExecutor) (assignment.Question, error) {
	var r questionRow
	if err := repo.getExec(exec).GetContext(ctx, &r, `SELECT `+questionColumns+` FROM question WHERE id = $1`, id); err != nil {
		return assignment.Question{}, trapNoRowsErr(err, assignment.ErrQuestionNotFound, "finding question")
	}
	return r.toQuestion(), nil
}

func (repo *assignmentRepository) QueryQuestions(ctx context.Context, assignmentID int64, exec ...core.DBExecutor) ([]assignment.Question, error) {
	var rows []questionRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT `+questionColumns+` FROM question WHERE assignment_id = $1 ORDER BY id`, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	qs := make([]assignment.Question, 0, len(rows))
	for _, r := range rows {
		qs = append(qs, r.toQuestion())
	}
	return qs, nil
}

func (repo *assignmentRepository) DeleteQuestion(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM question WHERE id = $1`, id)
	return errors.Wrap(err, "deleting question")
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, s assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	var id int64
	exe := repo.getExec(exec)
	err := exe.GetContext(ctx, &id,
		`INSERT INTO submission (assignment_id, student_id, file_path, file_name, comments, score, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		s.AssignmentID, s.StudentID, s.FilePath, s.FileName, s.Comments, null.Float64FromPtr(s.Score), s.SubmittedAt.UTC())
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return repo.GetSubmission(ctx, id, exe)
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, id int64, exec ...core.DBExecutor) (assignment.Submission, error) {
	var r submissionRow
	if err := repo.getExec(exec).GetContext(ctx, &r, submissionSelect+` WHERE s.id = $1`, id); err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return r.toSubmission(), nil
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, filter assignment.SubmissionFilter, exec ...core.DBExecutor) ([]assignment.Submission, error) {
	var w where
	if filter.AssignmentID != 0 {
		w.add("s.assignment_id = ?", filter.AssignmentID)
	}
	if filter.ClassRoomID != 0 {
		w.add("s.assignment_id IN (SELECT id FROM assignment WHERE classroom_id = ?)", filter.ClassRoomID)
	}
	if filter.StudentID != "" {
		w.add("s.student_id::text = ?", filter.StudentID)
	}

	var rows []submissionRow
	q := submissionSelect + w.String() + ` ORDER BY s.submitted_at DESC, s.id DESC`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubmission())
	}
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, s assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx,
		`UPDATE submission SET comments = $2, score = $3 WHERE id = $1`,
		s.ID, s.Comments, null.Float64FromPtr(s.Score))
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return repo.GetSubmission(ctx, s.ID, exe)
}

func (repo *assignmentRepository) SubmissionFiles(ctx context.Context, assignmentID int64, exec ...core.DBExecutor) ([]string, error) {
	var paths []string
	err := repo.getExec(exec).SelectContext(ctx, &paths,
		`SELECT file_path FROM submission WHERE assignment_id = $1 AND file_path <> ''`, assignmentID)
	return paths, errors.Wrap(err, "listing submission files")
}

func (repo *assignmentRepository) ClassRoomFiles(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]string, error) {
	var paths []string
	err := repo.getExec(exec).SelectContext(ctx, &paths,
		`SELECT s.file_path FROM submission s JOIN assignment a ON a.id = s.assignment_id
		WHERE a.classroom_id = $1 AND s.file_path <> ''`, classID)
	return paths, errors.Wrap(err, "listing classroom files")
}
