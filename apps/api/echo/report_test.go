package echoapi_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KhanhMinhDz/CourseHub-Project/core/report"
	"github.com/KhanhMinhDz/CourseHub-Project/testutil"
)

func Test_reportApi_gradeReport(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	sess := openSession(t, env, f, 30)
	_, err := env.attendanceSvc.CheckIn(context.Background(), testutil.Principal(f.student), sess.ID)
	require.NoError(t, err)
	a := createAssignment(t, env, f, "Homework 1")

	runHTTPTests(t, env, []httpTest{
		{name: "student", path: classPath(f.class, "/report"), token: env.token(t, f.student), wantCode: http.StatusForbidden},
		{name: "unknown classroom", path: "/v1/classrooms/999/report", token: env.token(t, f.admin), wantCode: http.StatusNotFound},
	})

	req, rec := newAuthRequest(http.MethodGet, classPath(f.class, "/report"), env.token(t, f.instructor))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var r report.GradeReport
	unmarshal(t, rec, &r)
	assert.Equal(t, f.class.ID, r.ClassRoom.ID)
	require.Len(t, r.Sessions, 1)
	require.Len(t, r.Assignments, 1)
	assert.Equal(t, a.ID, r.Assignments[0].ID)
	require.Len(t, r.Rows, 1)
	row := r.Rows[0]
	assert.Equal(t, f.student.ID, row.StudentID)
	assert.Equal(t, []string{report.Present}, row.Attendance)
	require.Len(t, row.Assignments, 1)
	assert.False(t, row.Assignments[0].Submitted)
	assert.Nil(t, row.Average)
}

func Test_reportApi_gradeReportXLSX(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	openSession(t, env, f, 30)
	createAssignment(t, env, f, "Homework 1")

	runHTTPTests(t, env, []httpTest{
		{name: "student", path: classPath(f.class, "/report/xlsx"), token: env.token(t, f.student), wantCode: http.StatusForbidden},
	})

	req, rec := newAuthRequest(http.MethodGet, classPath(f.class, "/report/xlsx"), env.token(t, f.admin))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		fmt.Sprintf(`attachment; filename=classroom_%d_report.xlsx`, f.class.ID),
		rec.Header().Get("Content-Disposition"),
	)

	xl, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows("Grades")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[0], 5)
	assert.Equal(t, "Student", rows[0][0])
	assert.Equal(t, "Email", rows[0][1])
	assert.Contains(t, rows[0][2], "Attendance ")
	assert.Equal(t, "Homework 1", rows[0][3])
	assert.Equal(t, "Average", rows[0][4])
	assert.Equal(t, "Bob Student", rows[1][0])
	assert.Equal(t, "bob@test.cd", rows[1][1])
	assert.Equal(t, report.Absent, rows[1][2])
}

func Test_reportApi_attendanceCSV(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")
	sess := openSession(t, env, f, 30)

	runHTTPTests(t, env, []httpTest{
		{name: "student", path: classPath(f.class, "/attendance/export"), token: env.token(t, f.student), wantCode: http.StatusForbidden},
	})

	req, rec := newAuthRequest(http.MethodGet, classPath(f.class, "/attendance/export"), env.token(t, f.instructor))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	lines, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Session", "Opened At", "Closes At", "State", "Students", "Present", "Absent"}, lines[0])
	assert.Equal(t, fmt.Sprint(sess.ID), lines[1][0])
	assert.Equal(t, []string{"open", "1", "0", "1"}, lines[1][3:])
}

func Test_reportApi_rosterCSV(t *testing.T) {
	env := setup(t)
	f := newClassFixture(t, env, "")

	runHTTPTests(t, env, []httpTest{
		{name: "admins only", path: "/v1/reports/roster", token: env.token(t, f.instructor), wantCode: http.StatusForbidden},
	})

	req, rec := newAuthRequest(http.MethodGet, "/v1/reports/roster", env.token(t, f.admin))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename=enrollments.csv`, rec.Header().Get("Content-Disposition"))

	lines, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Student", "Email", "Classroom", "Enrolled At"}, lines[0])
	assert.Equal(t, []string{"Bob Student", "bob@test.cd", "Go 101"}, lines[1][:3])
}
