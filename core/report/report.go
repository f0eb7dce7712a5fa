package report

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

// Attendance cell values
const (
	Present  = "present"
	Absent   = "absent"
	NoRecord = "no record"
)

type (
	AssignmentCell struct {
		AssignmentID int64    `json:"assignment_id"`
		Score        *float64 `json:"score"`
		Submitted    bool     `json:"submitted"`
		IsQuiz       bool     `json:"is_quiz"`
	}

	StudentRow struct {
		StudentID   string           `json:"student_id"`
		Name        string           `json:"name"`
		Email       string           `json:"email"`
		Attendance  []string         `json:"attendance"`
		Assignments []AssignmentCell `json:"assignments"`
		// Average of the graded scores, nil when nothing is graded yet.
		Average *float64 `json:"average"`
	}

	// GradeReport crosses the students of a classroom with its sessions and assignments.
	GradeReport struct {
		ClassRoom   classroom.ClassRoom     `json:"classroom"`
		Sessions    []attendance.Session    `json:"sessions"`
		Assignments []assignment.Assignment `json:"assignments"`
		Rows        []StudentRow            `json:"rows"`
	}
)

type (
	ClassRooms interface {
		GetForManager(ctx context.Context, p user.Principal, id int64) (classroom.ClassRoom, error)
		Enrollments(ctx context.Context, p user.Principal, classID int64) ([]classroom.Enrollment, error)
		AllEnrollments(ctx context.Context, p user.Principal) ([]classroom.Enrollment, error)
	}

	Attendance interface {
		ClassRoomSessions(ctx context.Context, classID int64) ([]attendance.Session, []attendance.Record, error)
		Sessions(ctx context.Context, p user.Principal, classID int64) ([]attendance.Summary, error)
	}

	// Assignments reads assignments and submissions without access checks.
	Assignments interface {
		QueryAssignments(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]assignment.Assignment, error)
		QuerySubmissions(ctx context.Context, filter assignment.SubmissionFilter, exec ...core.DBExecutor) ([]assignment.Submission, error)
	}

	Service struct {
		classes     ClassRooms
		attendance  Attendance
		assignments Assignments
	}
)

func NewService(classes ClassRooms, att Attendance, assignments Assignments) *Service {
	return &Service{classes: classes, attendance: att, assignments: assignments}
}

// GradeReport builds the report of a classroom for its instructor or an admin.
func (svc *Service) GradeReport(ctx context.Context, p user.Principal, classID int64) (GradeReport, error) {
	c, err := svc.classes.GetForManager(ctx, p, classID)
	if err != nil {
		return GradeReport{}, err
	}
	enrs, err := svc.classes.Enrollments(ctx, p, classID)
	if err != nil {
		return GradeReport{}, errors.Wrap(err, "querying enrollments")
	}
	sessions, records, err := svc.attendance.ClassRoomSessions(ctx, classID)
	if err != nil {
		return GradeReport{}, err
	}
	assignments, err := svc.assignments.QueryAssignments(ctx, classID)
	if err != nil {
		return GradeReport{}, errors.Wrap(err, "querying assignments")
	}
	subs, err := svc.assignments.QuerySubmissions(ctx, assignment.SubmissionFilter{ClassRoomID: classID})
	if err != nil {
		return GradeReport{}, errors.Wrap(err, "querying submissions")
	}
	return BuildGradeReport(c, enrs, sessions, records, assignments, subs), nil
}

// BuildGradeReport assembles a report. Sessions are listed oldest first, students by name.
// subs must be sorted newest first so that the latest submission of each student wins.
func BuildGradeReport(
	c classroom.ClassRoom,
	enrs []classroom.Enrollment,
	sessions []attendance.Session,
	records []attendance.Record,
	assignments []assignment.Assignment,
	subs []assignment.Submission,
) GradeReport {
	sorted := make([]attendance.Session, len(sessions))
	copy(sorted, sessions)
	sessions = sorted
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	type key struct {
		id      int64
		student string
	}
	presence := make(map[key]bool, len(records))
	for _, r := range records {
		presence[key{r.SessionID, r.StudentID}] = r.IsPresent
	}
	latest := make(map[key]assignment.Submission, len(subs))
	for _, s := range subs {
		k := key{s.AssignmentID, s.StudentID}
		if _, ok := latest[k]; !ok {
			latest[k] = s
		}
	}

	rows := make([]StudentRow, 0, len(enrs))
	for _, e := range enrs {
		row := StudentRow{
			StudentID:   e.StudentID,
			Name:        e.StudentName,
			Email:       e.StudentEmail,
			Attendance:  make([]string, 0, len(sessions)),
			Assignments: make([]AssignmentCell, 0, len(assignments)),
		}
		for _, s := range sessions {
			present, ok := presence[key{s.ID, e.StudentID}]
			switch {
			case !ok:
				row.Attendance = append(row.Attendance, NoRecord)
			case present:
				row.Attendance = append(row.Attendance, Present)
			default:
				row.Attendance = append(row.Attendance, Absent)
			}
		}

		var total float64
		var graded int
		for _, a := range assignments {
			cell := AssignmentCell{AssignmentID: a.ID, IsQuiz: a.Mode() == assignment.ModeQuiz}
			if sub, ok := latest[key{a.ID, e.StudentID}]; ok {
				cell.Submitted = true
				cell.IsQuiz = !sub.HasFile()
				cell.Score = sub.Score
				if sub.Score != nil {
					total += *sub.Score
					graded++
				}
			}
			row.Assignments = append(row.Assignments, cell)
		}
		if graded > 0 {
			avg := core.Round2(total / float64(graded))
			row.Average = &avg
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})

	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return GradeReport{ClassRoom: c, Sessions: sessions, Assignments: assignments, Rows: rows}
}
