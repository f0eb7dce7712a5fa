package echoapi_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/KhanhMinhDz/CourseHub-Project/apps/api/echo"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/testutil"
)

const quizCSV = "What is 2+2?,3,4,5,B,no\n" +
	"Pick the primes,2,4,5,\"A,C\",yes\n" +
	"Capital of France,Paris,Rome,0,false\n"

func createAssignment(t *testing.T, env *testEnv, f classFixture, title string) assignment.Assignment {
	t.Helper()
	a, err := env.assignmentSvc.Create(context.Background(), testutil.Principal(f.instructor), f.class.ID, assignment.NewAssignment{Title: title})
	require.NoError(t, err)
	return a
}

func assignmentPath(a assignment.Assignment, suffix ...string) string {
	p := fmt.Sprintf("/v1/assignments/%d", a.ID)
	if len(suffix) > 0 {
		p += suffix[0]
	}
	return p
}

func Test_assignmentApi_createAndList(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	path := classPath(f.class, "/assignments")

	runHTTPTests(t, env, []httpTest{
		{
			name: "student cannot create", method: http.MethodPost, path: path, body: []byte(`{"title": "HW"}`),
			token: env.token(t, f.student), wantCode: http.StatusForbidden,
		},
		{
			name: "title required", method: http.MethodPost, path: path, body: []byte(`{}`),
			token: env.token(t, f.instructor), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "created", method: http.MethodPost, path: path, body: []byte(`{"title": "HW 1", "description": "Read chapter 1"}`),
			token: env.token(t, f.instructor), wantCode: http.StatusCreated,
		},
		{name: "outsider cannot list", path: path, token: env.token(t, f.outsider), wantCode: http.StatusForbidden},
	})

	req, rec := newAuthRequest(http.MethodGet, path, env.token(t, f.student))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var as []assignment.Assignment
	unmarshal(t, rec, &as)
	require.Len(t, as, 1)
	assert.Equal(t, "HW 1", as[0].Title)
	assert.Equal(t, f.class.ID, as[0].ClassRoomID)

	req, rec = newAuthRequest(http.MethodGet, assignmentPath(as[0]), env.token(t, f.student))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var details AssignmentDetails
	unmarshal(t, rec, &details)
	assert.Equal(t, assignment.ModeFile, details.Mode)
	assert.False(t, details.CanManage)
}

func Test_assignmentApi_fileSubmission(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	a := createAssignment(t, env, f, "Essay")
	path := assignmentPath(a, "/submissions")
	studentToken := env.token(t, f.student)
	content := []byte("%PDF-1.4 my essay")

	t.Run("rejected uploads", func(t *testing.T) {
		tests := []struct {
			name     string
			token    string
			filename string
			wantCode int
		}{
			{"no file", studentToken, "", http.StatusBadRequest},
			{"extension not allowed", studentToken, "virus.exe", http.StatusBadRequest},
			{"not enrolled", env.token(t, f.outsider), "essay.pdf", http.StatusForbidden},
			{"not a student", env.token(t, f.instructor), "essay.pdf", http.StatusForbidden},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newUploadRequest(t, http.MethodPost, path, tt.token, "file", tt.filename, content, map[string]string{"comments": "hi"})
				env.serve(req, rec)
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			})
		}

		subs, err := env.assignmentSvc.Submissions(context.Background(), testutil.Principal(f.instructor), a.ID)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	var sub assignment.Submission
	t.Run("accepted", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, path, studentToken, "file", "essay.pdf", content, map[string]string{"comments": " first draft "})
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res assignment.SubmitResult
		unmarshal(t, rec, &res)
		assert.Nil(t, res.Quiz)
		sub = res.Submission
		assert.Equal(t, "essay.pdf", sub.FileName)
		assert.Equal(t, "first draft", sub.Comments)
		assert.Nil(t, sub.Score)
		assert.NotContains(t, rec.Body.String(), "submissions/")
	})

	t.Run("download", func(t *testing.T) {
		filePath := fmt.Sprintf("/v1/submissions/%d/file", sub.ID)

		req, rec := newAuthRequest(http.MethodGet, filePath, studentToken)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, content, rec.Body.Bytes())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=essay.pdf`)

		req, rec = newAuthRequest(http.MethodGet, filePath, env.token(t, f.instructor))
		env.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, filePath, env.token(t, f.outsider))
		env.serve(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("listing", func(t *testing.T) {
		// a resubmission keeps the history
		req, rec := newUploadRequest(t, http.MethodPost, path, studentToken, "file", "essay-v2.pdf", content, nil)
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, path, env.token(t, f.instructor))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var subs []assignment.Submission
		unmarshal(t, rec, &subs)
		require.Len(t, subs, 2)
		assert.Equal(t, "essay-v2.pdf", subs[0].FileName)
		assert.Equal(t, "Bob Student", subs[0].StudentName)
	})

	t.Run("grade", func(t *testing.T) {
		gradePath := fmt.Sprintf("/v1/submissions/%d/grade", sub.ID)
		runHTTPTests(t, env, []httpTest{
			{
				name: "student cannot grade", method: http.MethodPut, path: gradePath, body: []byte(`{"score": 10}`),
				token: studentToken, wantCode: http.StatusForbidden,
			},
			{
				name: "score out of range", method: http.MethodPut, path: gradePath, body: []byte(`{"score": 11}`),
				token: env.token(t, f.instructor), wantCode: http.StatusBadRequest,
			},
			{
				name: "score required", method: http.MethodPut, path: gradePath, body: []byte(`{}`),
				token: env.token(t, f.instructor), wantCode: http.StatusBadRequest,
			},
		})

		env.mailSvc.Reset()
		req, rec := newAuthRequest(http.MethodPut, gradePath, env.token(t, f.instructor), []byte(`{"score": 8.456}`))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var graded assignment.Submission
		unmarshal(t, rec, &graded)
		require.NotNil(t, graded.Score)
		assert.Equal(t, 8.46, *graded.Score)

		sent := env.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, f.student.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Essay")
	})

	t.Run("archive", func(t *testing.T) {
		archivePath := assignmentPath(a, "/submissions/archive")

		req, rec := newAuthRequest(http.MethodGet, archivePath, studentToken)
		env.serve(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, archivePath, env.token(t, f.instructor))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), assignment.ArchiveName(a))

		zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
		require.NoError(t, err)
		require.Len(t, zr.File, 1)
		assert.Equal(t, f.student.ID+"_essay-v2.pdf", zr.File[0].Name)

		r, err := zr.File[0].Open()
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})
}

func Test_assignmentApi_quiz(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	a := createAssignment(t, env, f, "Quiz 1")
	instructorToken := env.token(t, f.instructor)
	importPath := assignmentPath(a, "/questions/import")

	t.Run("import rejected", func(t *testing.T) {
		tests := []struct {
			name     string
			token    string
			filename string
			content  string
			wantCode int
		}{
			{"student", env.token(t, f.student), "q.csv", quizCSV, http.StatusForbidden},
			{"unsupported format", instructorToken, "q.txt", quizCSV, http.StatusBadRequest},
			{"malformed spreadsheet", instructorToken, "q.xlsx", "not a spreadsheet", http.StatusBadRequest},
			{"no file", instructorToken, "", "", http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newUploadRequest(t, http.MethodPost, importPath, tt.token, "file", tt.filename, []byte(tt.content), nil)
				env.serve(req, rec)
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			})
		}
	})

	t.Run("empty file", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, importPath, instructorToken, "file", "q.csv", nil, nil)
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"imported":0`)
	})

	var questions []assignment.Question
	t.Run("imported", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, importPath, instructorToken, "file", "q.csv", []byte(quizCSV), nil)
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res struct {
			Imported  int                   `json:"imported"`
			Questions []assignment.Question `json:"questions"`
		}
		unmarshal(t, rec, &res)
		assert.Equal(t, 3, res.Imported)
		questions = res.Questions
		require.Len(t, questions, 3)
		assert.Equal(t, []string{"2", "4", "5"}, questions[1].Options)
		assert.Equal(t, "A,C", questions[1].CorrectAnswers)
		assert.True(t, questions[1].AllowMultiple)
	})

	t.Run("students do not see answers", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, assignmentPath(a, "/questions"), env.token(t, f.student))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "correct_answers")

		req, rec = newAuthRequest(http.MethodGet, assignmentPath(a), env.token(t, f.student))
		env.serve(req, rec)
		var details AssignmentDetails
		unmarshal(t, rec, &details)
		assert.Equal(t, assignment.ModeQuiz, details.Mode)
		assert.Equal(t, 3, details.QuestionCount)
	})

	var sub assignment.Submission
	t.Run("submit", func(t *testing.T) {
		answers := QuizAnswers{Answers: map[int64][]string{
			questions[0].ID: {"B"},
			questions[1].ID: {"A", "C"},
			questions[2].ID: {"1"},
		}}
		req, rec := newAuthRequest(http.MethodPost, assignmentPath(a, "/submissions"), env.token(t, f.student), marchallObj(t, answers))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res assignment.SubmitResult
		unmarshal(t, rec, &res)
		require.NotNil(t, res.Quiz)
		assert.Equal(t, 6.67, res.Quiz.Score)
		assert.Equal(t, 2, res.Quiz.CorrectAnswers)
		assert.Equal(t, 3, res.Quiz.TotalQuestions)
		assert.Equal(t, []int{0, 2}, res.Quiz.QuestionResults[1].CorrectAnswers)
		assert.False(t, res.Quiz.QuestionResults[2].IsCorrect)

		sub = res.Submission
		require.NotNil(t, sub.Score)
		assert.Equal(t, 6.67, *sub.Score)
		assert.Equal(t, res.Quiz.Summary(), sub.Comments)
		assert.Empty(t, sub.FileName)
	})

	runHTTPTests(t, env, []httpTest{
		{
			name: "quizzes are not graded by hand", method: http.MethodPut, path: fmt.Sprintf("/v1/submissions/%d/grade", sub.ID),
			body: []byte(`{"score": 10}`), token: instructorToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"score": "quiz submissions are scored automatically"}),
		},
		{
			name: "no file to download", path: fmt.Sprintf("/v1/submissions/%d/file", sub.ID),
			token: instructorToken, wantCode: http.StatusNotFound,
		},
		{
			name: "student cannot delete a question", method: http.MethodDelete, path: fmt.Sprintf("/v1/questions/%d", questions[0].ID),
			token: env.token(t, f.student), wantCode: http.StatusForbidden,
		},
		{
			name: "instructor deletes a question", method: http.MethodDelete, path: fmt.Sprintf("/v1/questions/%d", questions[0].ID),
			token: instructorToken, wantCode: http.StatusNoContent,
		},
	})

	qs, err := env.assignmentSvc.Questions(context.Background(), testutil.Principal(f.instructor), a.ID)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func Test_assignmentApi_addQuestionAndDelete(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	a := createAssignment(t, env, f, "Quiz")
	instructorToken := env.token(t, f.instructor)

	runHTTPTests(t, env, []httpTest{
		{
			name: "content required", method: http.MethodPost, path: assignmentPath(a, "/questions"),
			body: []byte(`{"options": ["a", "b"], "correct_answers": "A"}`), token: instructorToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "added", method: http.MethodPost, path: assignmentPath(a, "/questions"),
			body:  marchallObj(t, assignment.NewQuestion{Content: "1+1?", Options: []string{"1", "2"}, CorrectAnswers: "B"}),
			token: instructorToken, wantCode: http.StatusCreated,
		},
		{
			name: "update", method: http.MethodPut, path: assignmentPath(a), body: []byte(`{"title": "Quiz (v2)"}`),
			token: instructorToken, wantCode: http.StatusOK,
		},
		{name: "student cannot delete", method: http.MethodDelete, path: assignmentPath(a), token: env.token(t, f.student), wantCode: http.StatusForbidden},
		{name: "deleted", method: http.MethodDelete, path: assignmentPath(a), token: instructorToken, wantCode: http.StatusNoContent},
		{name: "gone", path: assignmentPath(a), token: instructorToken, wantCode: http.StatusNotFound},
	})
}

func Test_assignmentApi_clientFileName(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	a := createAssignment(t, env, f, "Essay")

	req, rec := newUploadRequest(t, http.MethodPost, assignmentPath(a, "/submissions"), env.token(t, f.student),
		"file", `..\..\my "final".pdf`, []byte("%PDF-1.4"), nil)
	env.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res assignment.SubmitResult
	unmarshal(t, rec, &res)
	assert.Equal(t, `my "final".pdf`, res.Submission.FileName)

	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/submissions/%d/file", res.Submission.ID), env.token(t, f.student))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="my \"final\".pdf"`, rec.Header().Get("Content-Disposition"))

	req, rec = newAuthRequest(http.MethodGet, assignmentPath(a, "/submissions/archive"), env.token(t, f.instructor))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, f.student.ID+`_my "final".pdf`, zr.File[0].Name)
}
