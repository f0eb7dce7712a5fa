package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
	"github.com/KhanhMinhDz/CourseHub-Project/testutil"
)

// classFixture is a classroom owned by an instructor with one enrolled student.
type classFixture struct {
	admin, instructor, student, outsider user.User
	class                                classroom.ClassRoom
}

func newClassFixture(t *testing.T, env *testEnv, enrollmentPwd string) classFixture {
	t.Helper()
	f := classFixture{
		admin:      env.createUser(t, "Admin", "admin", "", user.RoleAdmin),
		instructor: env.createUser(t, "Ada Instructor", "ada", "", user.RoleInstructor),
		student:    env.createUser(t, "Bob Student", "bob", "", user.RoleStudent),
		outsider:   env.createUser(t, "Carl Student", "carl", "", user.RoleStudent),
	}

	ctx := context.Background()
	var err error
	f.class, err = env.classSvc.Create(ctx, testutil.Principal(f.instructor), classroom.NewClassRoom{
		Title:              "Go 101",
		Description:        "Learn Go",
		EnrollmentPassword: enrollmentPwd,
	})
	require.NoError(t, err)

	_, err = env.classSvc.Enroll(ctx, testutil.Principal(f.student), f.class.ID, enrollmentPwd)
	require.NoError(t, err)
	return f
}

func classPath(c classroom.ClassRoom, suffix ...string) string {
	p := fmt.Sprintf("/v1/classrooms/%d", c.ID)
	if len(suffix) > 0 {
		p += suffix[0]
	}
	return p
}

func Test_classRoomApi_create(t *testing.T) {
	env := setup(t)
	instructor := env.createUser(t, "Instructor", "instructor", "", user.RoleInstructor)
	student := env.createUser(t, "Student", "student", "", user.RoleStudent)

	runHTTPTests(t, env, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/classrooms", body: []byte(`{"title": "X"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "students cannot create", method: http.MethodPost, path: "/v1/classrooms", body: []byte(`{"title": "X"}`),
			token: env.token(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "title required", method: http.MethodPost, path: "/v1/classrooms", body: []byte(`{"title": "   "}`),
			token: env.token(t, instructor), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms", env.token(t, instructor),
		[]byte(`{"title": "  Go 101 ", "description": "Learn Go", "enrollment_password": "s3same"}`))
	env.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c classroom.ClassRoom
	unmarshal(t, rec, &c)
	assert.Equal(t, "Go 101", c.Title)
	assert.Equal(t, instructor.ID, c.InstructorID)
	assert.NotContains(t, rec.Body.String(), "s3same")
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func Test_classRoomApi_query(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	other, err := env.classSvc.Create(context.Background(), testutil.Principal(f.admin), classroom.NewClassRoom{Title: "Algebra"})
	require.NoError(t, err)

	runHTTPTests(t, env, []httpTest{
		{
			name: "all, newest first", path: "/v1/classrooms", token: env.token(t, f.outsider),
			wantCode: http.StatusOK, wantData: marchallList(t, other, f.class),
		},
		{
			name: "ordering", path: "/v1/classrooms?ordering=title", token: env.token(t, f.outsider),
			wantCode: http.StatusOK, wantData: marchallList(t, other, f.class),
		},
		{
			name: "search", path: "/v1/classrooms?search=go", token: env.token(t, f.outsider),
			wantCode: http.StatusOK, wantData: marchallList(t, f.class),
		},
		{
			name: "mine (student)", path: "/v1/classrooms?mine=true", token: env.token(t, f.student),
			wantCode: http.StatusOK, wantData: marchallList(t, f.class),
		},
		{
			name: "mine (not enrolled)", path: "/v1/classrooms?mine=true", token: env.token(t, f.outsider),
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "mine (instructor)", path: "/v1/classrooms?mine=true", token: env.token(t, f.instructor),
			wantCode: http.StatusOK, wantData: marchallList(t, f.class),
		},
	})
}

func Test_classRoomApi_retrieve(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")

	runHTTPTests(t, env, []httpTest{
		{name: "malformed id", path: "/v1/classrooms/abc", token: env.token(t, f.student), wantCode: http.StatusNotFound},
		{name: "unknown", path: "/v1/classrooms/999", token: env.token(t, f.student), wantCode: http.StatusNotFound},
		{
			name: "not a member", path: classPath(f.class), token: env.token(t, f.outsider),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "you are not a member of this classroom"}),
		},
		{
			name: "student", path: classPath(f.class), token: env.token(t, f.student), wantCode: http.StatusOK,
			wantData: marchallObj(t, classroom.Details{ClassRoom: f.class, IsEnrolled: true, ContentBlocks: []classroom.ContentBlock{}}),
		},
		{
			name: "instructor", path: classPath(f.class), token: env.token(t, f.instructor), wantCode: http.StatusOK,
			wantData: marchallObj(t, classroom.Details{ClassRoom: f.class, CanManage: true, ContentBlocks: []classroom.ContentBlock{}}),
		},
		{
			name: "admin", path: classPath(f.class), token: env.token(t, f.admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, classroom.Details{ClassRoom: f.class, CanManage: true, ContentBlocks: []classroom.ContentBlock{}}),
		},
	})
}

func Test_classRoomApi_updateAndDelete(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")

	updated := f.class
	updated.Title = "Go 102"

	runHTTPTests(t, env, []httpTest{
		{
			name: "student cannot update", method: http.MethodPut, path: classPath(f.class), body: []byte(`{"title": "Hacked"}`),
			token: env.token(t, f.student), wantCode: http.StatusForbidden,
		},
		{
			name: "instructor updates", method: http.MethodPut, path: classPath(f.class), body: []byte(`{"title": "Go 102"}`),
			token: env.token(t, f.instructor), wantCode: http.StatusOK, wantData: marchallObj(t, updated),
		},
		{
			name: "student cannot delete", method: http.MethodDelete, path: classPath(f.class),
			token: env.token(t, f.student), wantCode: http.StatusForbidden,
		},
		{
			name: "admin deletes", method: http.MethodDelete, path: classPath(f.class),
			token: env.token(t, f.admin), wantCode: http.StatusNoContent,
		},
		{name: "gone", path: classPath(f.class), token: env.token(t, f.admin), wantCode: http.StatusNotFound},
	})
}

func Test_classRoomApi_enroll(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "s3same")
	path := classPath(f.class, "/enroll")

	runHTTPTests(t, env, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: path, body: []byte(`{"password": "nope"}`),
			token: env.token(t, f.outsider), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "invalid enrollment password"}),
		},
		{
			name: "no password", method: http.MethodPost, path: path,
			token: env.token(t, f.outsider), wantCode: http.StatusBadRequest,
		},
		{
			name: "instructors cannot enroll", method: http.MethodPost, path: path, body: []byte(`{"password": "s3same"}`),
			token: env.token(t, f.instructor), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "only students can enroll in classrooms"}),
		},
		{
			name: "unknown classroom", method: http.MethodPost, path: "/v1/classrooms/999/enroll", body: []byte(`{}`),
			token: env.token(t, f.outsider), wantCode: http.StatusNotFound,
		},
	})

	t.Run("enrolled then idempotent", func(t *testing.T) {
		token := env.token(t, f.outsider)
		for i, want := range []struct {
			code   int
			status string
		}{
			{http.StatusCreated, classroom.StatusEnrolled},
			{http.StatusOK, classroom.StatusAlreadyEnrolled},
		} {
			req, rec := newAuthRequest(http.MethodPost, path, token, []byte(`{"password": "s3same"}`))
			env.serve(req, rec)
			require.Equal(t, want.code, rec.Code, "attempt %d: %s", i, rec.Body.String())

			var res classroom.EnrollResult
			unmarshal(t, rec, &res)
			assert.Equal(t, want.status, res.Status)
			assert.Equal(t, f.outsider.ID, res.Enrollment.StudentID)
		}

		enrs, err := env.classSvc.Enrollments(context.Background(), testutil.Principal(f.instructor), f.class.ID)
		require.NoError(t, err)
		assert.Len(t, enrs, 2)
	})
}

func Test_classRoomApi_enrollmentPassword(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	path := classPath(f.class, "/enrollment-password")

	runHTTPTests(t, env, []httpTest{
		{
			name: "only the instructor", method: http.MethodPut, path: path, body: []byte(`{"password": "x"}`),
			token: env.token(t, f.admin), wantCode: http.StatusForbidden,
		},
		{
			name: "set", method: http.MethodPut, path: path, body: []byte(`{"password": "s3same"}`),
			token: env.token(t, f.instructor), wantCode: http.StatusOK,
		},
		{
			name: "now required", method: http.MethodPost, path: classPath(f.class, "/enroll"), body: []byte(`{}`),
			token: env.token(t, f.outsider), wantCode: http.StatusBadRequest,
		},
		{
			name: "cleared", method: http.MethodPut, path: path, body: []byte(`{"password": ""}`),
			token: env.token(t, f.instructor), wantCode: http.StatusOK,
		},
		{
			name: "open again", method: http.MethodPost, path: classPath(f.class, "/enroll"), body: []byte(`{}`),
			token: env.token(t, f.outsider), wantCode: http.StatusCreated,
		},
	})
}

func Test_classRoomApi_enrollments(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")

	runHTTPTests(t, env, []httpTest{
		{name: "students cannot list", path: classPath(f.class, "/enrollments"), token: env.token(t, f.student), wantCode: http.StatusForbidden},
	})

	req, rec := newAuthRequest(http.MethodGet, classPath(f.class, "/enrollments"), env.token(t, f.instructor))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var enrs []classroom.Enrollment
	unmarshal(t, rec, &enrs)
	require.Len(t, enrs, 1)
	assert.Equal(t, f.student.ID, enrs[0].StudentID)
	assert.Equal(t, "Bob Student", enrs[0].StudentName)
	assert.Equal(t, "Go 101", enrs[0].ClassTitle)
}

func Test_classRoomApi_content(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	instructorToken := env.token(t, f.instructor)

	var blocks []classroom.ContentBlock
	for _, content := range []string{"Welcome", "Chapter 1"} {
		req, rec := newAuthRequest(http.MethodPost, classPath(f.class, "/content"), instructorToken, marchallObj(t, classroom.ContentBlockForm{Content: content}))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var b classroom.ContentBlock
		unmarshal(t, rec, &b)
		blocks = append(blocks, b)
	}
	assert.Equal(t, 1, blocks[0].Order)
	assert.Equal(t, 2, blocks[1].Order)

	blockPath := fmt.Sprintf("/v1/content/%d", blocks[0].ID)
	runHTTPTests(t, env, []httpTest{
		{
			name: "student cannot add", method: http.MethodPost, path: classPath(f.class, "/content"), body: []byte(`{"content": "x"}`),
			token: env.token(t, f.student), wantCode: http.StatusForbidden,
		},
		{
			name: "empty content", method: http.MethodPost, path: classPath(f.class, "/content"), body: []byte(`{"content": "  "}`),
			token: instructorToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "student lists in order", path: classPath(f.class, "/content"), token: env.token(t, f.student),
			wantCode: http.StatusOK, wantData: marchallList(t, blocks[0], blocks[1]),
		},
		{name: "outsider cannot list", path: classPath(f.class, "/content"), token: env.token(t, f.outsider), wantCode: http.StatusForbidden},
		{
			name: "student cannot edit", method: http.MethodPut, path: blockPath, body: []byte(`{"content": "x"}`),
			token: env.token(t, f.student), wantCode: http.StatusForbidden,
		},
		{
			name: "instructor edits", method: http.MethodPut, path: blockPath, body: []byte(`{"content": "Hello"}`),
			token: instructorToken, wantCode: http.StatusOK,
		},
		{name: "instructor deletes", method: http.MethodDelete, path: blockPath, token: instructorToken, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodDelete, path: blockPath, token: instructorToken, wantCode: http.StatusNotFound},
	})

	left, err := env.classSvc.ContentBlocks(context.Background(), testutil.Principal(f.student), f.class.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Chapter 1", left[0].Content)
}
