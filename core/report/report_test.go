package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
)

func fp(f float64) *float64 { return &f }

func sampleReport() GradeReport {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := classroom.ClassRoom{ID: 1, Title: "Algebra"}
	enrs := []classroom.Enrollment{
		{StudentID: "s2", StudentName: "zoe", StudentEmail: "zoe@test.com"},
		{StudentID: "s1", StudentName: "Adam", StudentEmail: "adam@test.com"},
	}
	sessions := []attendance.Session{
		{ID: 11, ClassRoomID: 1, CreatedAt: t0.Add(24 * time.Hour)},
		{ID: 10, ClassRoomID: 1, CreatedAt: t0},
	}
	records := []attendance.Record{
		{SessionID: 10, StudentID: "s1", IsPresent: true},
		{SessionID: 10, StudentID: "s2", IsPresent: false},
		{SessionID: 11, StudentID: "s1", IsPresent: false},
	}
	assignments := []assignment.Assignment{
		{ID: 100, ClassRoomID: 1, Title: "Essay"},
		{ID: 101, ClassRoomID: 1, Title: "Quiz", QuestionCount: 3},
	}
	// newest first
	subs := []assignment.Submission{
		{ID: 4, AssignmentID: 101, StudentID: "s1", Score: fp(6)},
		{ID: 3, AssignmentID: 101, StudentID: "s1", Score: fp(3)},
		{ID: 2, AssignmentID: 100, StudentID: "s1", Score: fp(8), FilePath: "submissions/2024-03/a.pdf"},
		{ID: 1, AssignmentID: 100, StudentID: "s2", FilePath: "submissions/2024-03/b.pdf"},
	}
	return BuildGradeReport(c, enrs, sessions, records, assignments, subs)
}

func TestBuildGradeReport(t *testing.T) {
	r := sampleReport()

	require.Len(t, r.Sessions, 2)
	assert.Equal(t, int64(10), r.Sessions[0].ID, "sessions are oldest first")
	require.Len(t, r.Rows, 2)

	adam, zoe := r.Rows[0], r.Rows[1]
	assert.Equal(t, "s1", adam.StudentID, "rows are sorted by name")
	assert.Equal(t, []string{Present, Absent}, adam.Attendance)
	assert.Equal(t, []string{Absent, NoRecord}, zoe.Attendance)

	require.Len(t, adam.Assignments, 2)
	assert.Equal(t, 8.0, *adam.Assignments[0].Score)
	assert.False(t, adam.Assignments[0].IsQuiz)
	assert.Equal(t, 6.0, *adam.Assignments[1].Score, "latest submission wins")
	assert.True(t, adam.Assignments[1].IsQuiz)
	require.NotNil(t, adam.Average)
	assert.Equal(t, 7.0, *adam.Average)

	assert.True(t, zoe.Assignments[0].Submitted)
	assert.Nil(t, zoe.Assignments[0].Score)
	assert.False(t, zoe.Assignments[1].Submitted)
	assert.Nil(t, zoe.Average)
}

func TestBuildGradeReportFileOnQuizAssignment(t *testing.T) {
	c := classroom.ClassRoom{ID: 1}
	enrs := []classroom.Enrollment{{StudentID: "s1", StudentName: "Adam"}, {StudentID: "s2", StudentName: "Bea"}}
	// questions were added after s1 handed in a file
	assignments := []assignment.Assignment{{ID: 100, ClassRoomID: 1, QuestionCount: 2}}
	subs := []assignment.Submission{
		{ID: 2, AssignmentID: 100, StudentID: "s2", Score: fp(5)},
		{ID: 1, AssignmentID: 100, StudentID: "s1", FilePath: "submissions/2024-03/a.pdf"},
	}

	r := BuildGradeReport(c, enrs, nil, nil, assignments, subs)
	require.Len(t, r.Rows, 2)
	assert.False(t, r.Rows[0].Assignments[0].IsQuiz)
	assert.True(t, r.Rows[1].Assignments[0].IsQuiz)
}

func TestBuildGradeReportEmpty(t *testing.T) {
	r := BuildGradeReport(classroom.ClassRoom{ID: 1}, nil, nil, nil, nil, nil)
	assert.Empty(t, r.Rows)
	assert.NotNil(t, r.Rows)
	assert.NotNil(t, r.Sessions)
	assert.NotNil(t, r.Assignments)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(sampleReport(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, sheetName, f.GetSheetName(0))
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"Student", "Email", "Attendance 2024-03-01 09:00", "Attendance 2024-03-02 09:00", "Essay", "Quiz", "Average",
	}, rows[0])
	assert.Equal(t, []string{"Adam", "adam@test.com", Present, Absent, "8", "6", "7"}, rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 5)
	assert.Equal(t, []string{"zoe", "zoe@test.com", Absent, NoRecord, "submitted"}, rows[2][:5])

	presentStyle, err := f.GetCellStyle(sheetName, "C2")
	require.NoError(t, err)
	absentStyle, err := f.GetCellStyle(sheetName, "D2")
	require.NoError(t, err)
	assert.NotEqual(t, presentStyle, absentStyle)
}

func TestSessionLines(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := attendance.Session{ID: 3, CreatedAt: t0, CloseAt: t0.Add(15 * time.Minute), IsActive: true}
	sum := attendance.NewSummary(sess, []attendance.Record{{IsPresent: true}, {}, {}}, t0.Add(time.Hour))

	lines := sessionLines([]attendance.Summary{sum})
	require.Len(t, lines, 1)
	assert.Equal(t, &SessionLine{
		SessionID: 3,
		OpenedAt:  "2024-03-01T09:00:00Z",
		ClosesAt:  "2024-03-01T09:15:00Z",
		State:     attendance.StateExpired,
		Total:     3,
		Present:   1,
		Absent:    2,
	}, lines[0])
}
