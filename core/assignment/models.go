package assignment

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
)

// Submission modes
const (
	ModeFile = "file"
	ModeQuiz = "quiz"
)

// MaxScore is the score of a perfect submission.
const MaxScore = 10.0

type Assignment struct {
	ID            int64      `json:"id"`
	ClassRoomID   int64      `json:"classroom_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date"`
	CreatedAt     time.Time  `json:"created_at"`
	QuestionCount int        `json:"question_count"`
}

// Mode is ModeQuiz when the assignment has questions, ModeFile otherwise.
func (a Assignment) Mode() string {
	if a.QuestionCount > 0 {
		return ModeQuiz
	}
	return ModeFile
}

type Question struct {
	ID             int64    `json:"id"`
	AssignmentID   int64    `json:"assignment_id"`
	Content        string   `json:"content"`
	Options        []string `json:"options"`
	CorrectAnswers string   `json:"correct_answers,omitempty"`
	AllowMultiple  bool     `json:"allow_multiple"`
}

// Public returns the question without its correct answers.
func (q Question) Public() Question {
	q.CorrectAnswers = ""
	return q
}

type Submission struct {
	ID           int64     `json:"id"`
	AssignmentID int64     `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name,omitempty"`
	FilePath     string    `json:"-"`
	FileName     string    `json:"file_name"`
	Comments     string    `json:"comments"`
	Score        *float64  `json:"score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

func (s Submission) HasFile() bool {
	return s.FilePath != ""
}

// QuestionResult is the outcome of one quiz question.
type QuestionResult struct {
	QuestionID        int64    `json:"question_id"`
	Content           string   `json:"content"`
	Options           []string `json:"options"`
	CorrectAnswers    []int    `json:"correct_answers"`
	StudentAnswers    []int    `json:"student_answers"`
	IsCorrect         bool     `json:"is_correct"`
	PointsPerQuestion float64  `json:"points_per_question"`
}

// QuizResult is the outcome of a scored quiz.
type QuizResult struct {
	Score           float64          `json:"score"`
	MaxScore        float64          `json:"max_score"`
	TotalQuestions  int              `json:"total_questions"`
	CorrectAnswers  int              `json:"correct_answers"`
	QuestionResults []QuestionResult `json:"question_results"`
}

// SubmitResult is returned by Submit; Quiz is nil for file submissions.
type SubmitResult struct {
	Submission Submission  `json:"submission"`
	Quiz       *QuizResult `json:"quiz,omitempty"`
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=8000"`
	DueDate     *time.Time `json:"due_date"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// UpdateAssignment edits the title and description; an empty title keeps the current one.
type UpdateAssignment struct {
	Title       string     `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=8000"`
	DueDate     *time.Time `json:"due_date"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	if ua.Description != nil {
		d := core.CleanString(*ua.Description)
		ua.Description = &d
	}
	return validate.Struct(ua)
}

type NewQuestion struct {
	Content        string   `json:"content" validate:"required,notblank"`
	Options        []string `json:"options" validate:"dive,required"`
	CorrectAnswers string   `json:"correct_answers" validate:"required,notblank"`
	AllowMultiple  bool     `json:"allow_multiple"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Content = core.CleanString(nq.Content)
	nq.CorrectAnswers = core.CleanString(nq.CorrectAnswers)
	for i := range nq.Options {
		nq.Options[i] = core.CleanString(nq.Options[i])
	}
	return validate.Struct(nq)
}

// Upload is a file received from a client.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// SubmissionForm carries either a file or quiz answers keyed by question id.
type SubmissionForm struct {
	File     *Upload
	Comments string
	Answers  map[int64][]string
}

type GradeSubmission struct {
	Score *float64 `json:"score" validate:"required,min=0,max=10"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(gs)
}

type SubmissionFilter struct {
	AssignmentID int64
	ClassRoomID  int64
	StudentID    string
}
