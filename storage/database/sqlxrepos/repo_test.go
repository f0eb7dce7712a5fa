package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database/sqlxrepos"
	"github.com/KhanhMinhDz/CourseHub-Project/testutil"
)

type repos struct {
	db          *sqlx.DB
	users       user.Repository
	classes     classroom.Repository
	assignments assignment.Repository
	attendance  attendance.Repository

	instructor user.User
	student    user.User
	class      classroom.ClassRoom
}

// setup skips the test unless testutil.DatabaseURLEnv points to a disposable database.
func setup(t *testing.T) repos {
	t.Helper()
	db := testutil.PrepareDB(t)

	r := repos{
		db:          db,
		users:       sqlxrepos.NewUserRepository(db),
		classes:     sqlxrepos.NewClassRoomRepository(db),
		assignments: sqlxrepos.NewAssignmentRepository(db),
		attendance:  sqlxrepos.NewAttendanceRepository(db),
	}
	r.instructor = testutil.CreateUser(t, r.users, "Ada", "ada", "ada@test.cd", "", []string{user.RoleInstructor}, true)
	r.student = testutil.CreateUser(t, r.users, "Bob", "bob", "bob@test.cd", "", []string{user.RoleStudent}, true)

	c, err := r.classes.CreateClassRoom(context.Background(), classroom.ClassRoom{
		Title:        "Go 101",
		InstructorID: r.instructor.ID,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	r.class = c
	return r
}

func TestUserRepository_uniqueness(t *testing.T) {
	r := setup(t)

	_, err := r.users.CreateUser(context.Background(), user.User{
		Name: "Other Bob", Username: "bob", Email: "other@test.cd", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	assert.True(t, core.IsConflict(err), "got %v", err)
}

func TestClassRoomRepository_InsertEnrollment(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	enr, created, err := r.classes.InsertEnrollment(ctx, classroom.Enrollment{
		ClassRoomID: r.class.ID, StudentID: r.student.ID, EnrolledAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Bob", enr.StudentName)
	assert.Equal(t, "Go 101", enr.ClassTitle)

	again, created, err := r.classes.InsertEnrollment(ctx, classroom.Enrollment{
		ClassRoomID: r.class.ID, StudentID: r.student.ID, EnrolledAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, enr.ID, again.ID)

	enrolled, err := r.classes.IsEnrolled(ctx, r.class.ID, r.student.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	enrs, err := r.classes.QueryEnrollments(ctx, classroom.EnrollmentFilter{ClassRoomID: r.class.ID})
	require.NoError(t, err)
	assert.Len(t, enrs, 1)
}

func TestClassRoomRepository_contentOrder(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	max, err := r.classes.MaxContentOrder(ctx, r.class.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	for i, content := range []string{"Welcome", "Syllabus"} {
		_, err = r.classes.CreateContentBlock(ctx, classroom.ContentBlock{
			ClassRoomID: r.class.ID, Content: content, Order: i + 1, CreatedAt: time.Now(),
		})
		require.NoError(t, err)
	}
	max, err = r.classes.MaxContentOrder(ctx, r.class.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	_, err = r.classes.CreateContentBlock(ctx, classroom.ContentBlock{
		ClassRoomID: r.class.ID, Content: "Late", Order: 2, CreatedAt: time.Now(),
	})
	assert.True(t, core.IsConflict(err), "got %v", err)

	blocks, err := r.classes.QueryContentBlocks(ctx, r.class.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Welcome", blocks[0].Content)
	assert.Equal(t, "Syllabus", blocks[1].Content)
}

func TestAttendanceRepository_records(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess, err := r.attendance.CreateSession(ctx, attendance.Session{
		ClassRoomID: r.class.ID, CreatedAt: now, CloseAt: now.Add(15 * time.Minute), IsActive: true,
	})
	require.NoError(t, err)

	_, err = r.attendance.GetRecord(ctx, sess.ID, r.student.ID)
	assert.Equal(t, attendance.ErrRecordNotFound, errors.Cause(err))

	require.NoError(t, r.attendance.CreateRecords(ctx, []attendance.Record{{SessionID: sess.ID, StudentID: r.student.ID}}))

	err = r.attendance.CreateRecords(ctx, []attendance.Record{{SessionID: sess.ID, StudentID: r.student.ID}})
	assert.True(t, core.IsConflict(err), "got %v", err)
	_, err = r.attendance.CreateRecord(ctx, attendance.Record{SessionID: sess.ID, StudentID: r.student.ID, IsPresent: true})
	assert.True(t, core.IsConflict(err), "got %v", err)

	// check in the way the attendance service does, with the record locked
	err = database.NewTxRunner(r.db).RunInTx(ctx, func(exec core.DBExecutor) error {
		rec, err := r.attendance.GetRecord(ctx, sess.ID, r.student.ID, exec)
		if err != nil {
			return err
		}
		rec.IsPresent = true
		rec.AttendedAt = &now
		_, err = r.attendance.UpdateRecord(ctx, rec, exec)
		return err
	})
	require.NoError(t, err)

	rec, err := r.attendance.GetRecord(ctx, sess.ID, r.student.ID)
	require.NoError(t, err)
	assert.True(t, rec.IsPresent)
	require.NotNil(t, rec.AttendedAt)
	assert.Equal(t, "Bob", rec.StudentName)
}

func TestClassRoomRepository_DeleteClassRoomCascades(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := r.classes.InsertEnrollment(ctx, classroom.Enrollment{ClassRoomID: r.class.ID, StudentID: r.student.ID, EnrolledAt: now})
	require.NoError(t, err)
	_, err = r.classes.CreateContentBlock(ctx, classroom.ContentBlock{ClassRoomID: r.class.ID, Content: "Welcome", Order: 1, CreatedAt: now})
	require.NoError(t, err)

	a, err := r.assignments.CreateAssignment(ctx, assignment.Assignment{ClassRoomID: r.class.ID, Title: "Essay", CreatedAt: now})
	require.NoError(t, err)
	_, err = r.assignments.CreateQuestions(ctx, []assignment.Question{{AssignmentID: a.ID, Content: "2+2?", Options: []string{"3", "4"}, CorrectAnswers: "B"}})
	require.NoError(t, err)
	_, err = r.assignments.CreateSubmission(ctx, assignment.Submission{
		AssignmentID: a.ID, StudentID: r.student.ID, FilePath: "submissions/2024-03/a.pdf", FileName: "a.pdf", SubmittedAt: now,
	})
	require.NoError(t, err)

	sess, err := r.attendance.CreateSession(ctx, attendance.Session{ClassRoomID: r.class.ID, CreatedAt: now, CloseAt: now.Add(time.Minute), IsActive: true})
	require.NoError(t, err)
	require.NoError(t, r.attendance.CreateRecords(ctx, []attendance.Record{{SessionID: sess.ID, StudentID: r.student.ID}}))

	got, err := r.assignments.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.QuestionCount)

	files, err := r.assignments.SubmissionFiles(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"submissions/2024-03/a.pdf"}, files)
	files, err = r.assignments.ClassRoomFiles(ctx, r.class.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"submissions/2024-03/a.pdf"}, files)

	require.NoError(t, r.classes.DeleteClassRoom(ctx, r.class.ID))

	_, err = r.classes.GetClassRoom(ctx, r.class.ID)
	assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
	_, err = r.assignments.GetAssignment(ctx, a.ID)
	assert.Equal(t, assignment.ErrNotFound, errors.Cause(err))
	_, err = r.attendance.GetSession(ctx, sess.ID)
	assert.Equal(t, attendance.ErrNotFound, errors.Cause(err))

	enrs, err := r.classes.QueryEnrollments(ctx, classroom.EnrollmentFilter{StudentID: r.student.ID})
	require.NoError(t, err)
	assert.Empty(t, enrs)
	records, err := r.attendance.QueryRecords(ctx, attendance.RecordFilter{StudentID: r.student.ID})
	require.NoError(t, err)
	assert.Empty(t, records)
	subs, err := r.assignments.QuerySubmissions(ctx, assignment.SubmissionFilter{StudentID: r.student.ID})
	require.NoError(t, err)
	assert.Empty(t, subs)
	blocks, err := r.classes.QueryContentBlocks(ctx, r.class.ID)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
