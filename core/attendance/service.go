package attendance

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
	ErrNotFound         = core.NewNotFoundError("attendance session")
	ErrSessionClosed    = core.NewFieldError("session", "attendance session is closed")
	ErrNotEnrolled      = core.NewForbiddenError("you are not enrolled in this classroom")
	ErrStudentsOnly     = core.NewForbiddenError("only students can check in")
	ErrAlreadyCheckedIn = core.NewConflictError("you have already checked in")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		GetSession(ctx context.Context, id int64, exec ...core.DBExecutor) (Session, error)
		// QuerySessions returns a classroom's sessions, newest first.
		QuerySessions(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]Session, error)
		UpdateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)

		CreateRecords(ctx context.Context, rs []Record, exec ...core.DBExecutor) error
		// GetRecord returns ErrRecordNotFound when the student has no record in the session.
		GetRecord(ctx context.Context, sessionID int64, studentID string, exec ...core.DBExecutor) (Record, error)
		// CreateRecord fails with a ConflictError if the student already has a record in the session.
		CreateRecord(ctx context.Context, r Record, exec ...core.DBExecutor) (Record, error)
		UpdateRecord(ctx context.Context, r Record, exec ...core.DBExecutor) (Record, error)
		// QueryRecords returns records with the student's name and email, ordered by student name.
		QueryRecords(ctx context.Context, filter RecordFilter, exec ...core.DBExecutor) ([]Record, error)
	}

	// ClassRooms gives access to classrooms and their enrollments.
	ClassRooms interface {
		GetForMember(ctx context.Context, p user.Principal, id int64) (classroom.ClassRoom, error)
		GetForManager(ctx context.Context, p user.Principal, id int64) (classroom.ClassRoom, error)
		GetForOwner(ctx context.Context, p user.Principal, id int64) (classroom.ClassRoom, error)
		IsEnrolled(ctx context.Context, classID int64, studentID string, exec ...core.DBExecutor) (bool, error)
	}

	// Enrollments lists the current students of a classroom.
	Enrollments interface {
		QueryEnrollments(ctx context.Context, filter classroom.EnrollmentFilter, exec ...core.DBExecutor) ([]classroom.Enrollment, error)
	}

	Service struct {
		repo        Repository
		tx          core.TxRunner
		classes     ClassRooms
		enrollments Enrollments
	}
)

// ErrRecordNotFound is returned by repositories when a student has no record in a session.
var ErrRecordNotFound = core.NewNotFoundError("attendance record")

func NewService(repo Repository, tx core.TxRunner, classes ClassRooms, enrollments Enrollments) *Service {
	return &Service{
		repo:        repo,
		tx:          tx,
		classes:     classes,
		enrollments: enrollments,
	}
}

// Open starts a session of the given duration and records every enrolled student as absent.
// Only the instructor of the classroom may open one.
func (svc *Service) Open(ctx context.Context, p user.Principal, classID int64, form OpenSession) (Summary, error) {
	if _, err := svc.classes.GetForOwner(ctx, p, classID); err != nil {
		return Summary{}, err
	}
	minutes := form.DurationMinutes
	if minutes == 0 {
		minutes = DefaultDuration
	}
	if minutes < MinDuration || minutes > MaxDuration {
		return Summary{}, core.NewFieldError("duration_minutes", fmt.Sprintf("duration must be between %d and %d minutes", MinDuration, MaxDuration))
	}

	now := NowFunc().UTC()
	var sess Session
	var records []Record
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		sess, err = svc.repo.CreateSession(ctx, Session{
			ClassRoomID: classID,
			CreatedAt:   now,
			CloseAt:     now.Add(time.Duration(minutes) * time.Minute),
			IsActive:    true,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating session")
		}

		enrs, err := svc.enrollments.QueryEnrollments(ctx, classroom.EnrollmentFilter{ClassRoomID: classID}, exec)
		if err != nil {
			return errors.Wrap(err, "querying enrollments")
		}
		records = make([]Record, 0, len(enrs))
		for _, e := range enrs {
			records = append(records, Record{SessionID: sess.ID, StudentID: e.StudentID})
		}
		if len(records) == 0 {
			return nil
		}
		return errors.Wrap(svc.repo.CreateRecords(ctx, records, exec), "creating records")
	})
	if err != nil {
		return Summary{}, err
	}
	return NewSummary(sess, records, now), nil
}

// CheckIn marks the principal present in an open session.
func (svc *Service) CheckIn(ctx context.Context, p user.Principal, sessionID int64) (Record, error) {
	if !p.IsStudent() {
		return Record{}, ErrStudentsOnly
	}
	sess, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Record{}, err
	}
	now := NowFunc().UTC()
	if !sess.IsOpen(now) {
		return Record{}, ErrSessionClosed
	}

	var rec Record
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		enrolled, err := svc.classes.IsEnrolled(ctx, sess.ClassRoomID, p.UserID, exec)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return ErrNotEnrolled
		}

		rec, err = svc.repo.GetRecord(ctx, sessionID, p.UserID, exec)
		switch {
		case err == nil:
			if rec.IsPresent {
				return ErrAlreadyCheckedIn
			}
			rec.IsPresent = true
			rec.AttendedAt = &now
			rec, err = svc.repo.UpdateRecord(ctx, rec, exec)
			return errors.Wrap(err, "updating record")
		case errors.Cause(err) == ErrRecordNotFound:
			rec, err = svc.repo.CreateRecord(ctx, Record{
				SessionID:  sessionID,
				StudentID:  p.UserID,
				IsPresent:  true,
				AttendedAt: &now,
			}, exec)
			if core.IsConflict(err) {
				return ErrAlreadyCheckedIn
			}
			return errors.Wrap(err, "creating record")
		default:
			return errors.Wrap(err, "getting record")
		}
	})
	return rec, err
}

// Close ends a session for good. Closing a closed session does nothing.
func (svc *Service) Close(ctx context.Context, p user.Principal, sessionID int64) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if _, err := svc.classes.GetForOwner(ctx, p, sess.ClassRoomID); err != nil {
		return Session{}, err
	}
	if !sess.IsActive {
		return sess, nil
	}
	sess.IsActive = false
	sess, err = svc.repo.UpdateSession(ctx, sess)
	return sess, errors.Wrap(err, "closing session")
}

// Sessions lists the sessions of a classroom with their totals.
func (svc *Service) Sessions(ctx context.Context, p user.Principal, classID int64) ([]Summary, error) {
	if _, err := svc.classes.GetForManager(ctx, p, classID); err != nil {
		return nil, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{ClassRoomID: classID})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}

	bySession := make(map[int64][]Record, len(sessions))
	for _, r := range records {
		bySession[r.SessionID] = append(bySession[r.SessionID], r)
	}
	now := NowFunc().UTC()
	sums := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		sums = append(sums, NewSummary(s, bySession[s.ID], now))
	}
	return sums, nil
}

// Details returns a session with the records of its students.
func (svc *Service) Details(ctx context.Context, p user.Principal, sessionID int64) (SessionDetails, error) {
	sess, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return SessionDetails{}, err
	}
	if _, err := svc.classes.GetForManager(ctx, p, sess.ClassRoomID); err != nil {
		return SessionDetails{}, err
	}
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{SessionID: sessionID})
	if err != nil {
		return SessionDetails{}, errors.Wrap(err, "querying records")
	}
	return SessionDetails{
		Summary: NewSummary(sess, records, NowFunc().UTC()),
		Records: records,
	}, nil
}

// StudentView returns the principal's status in every session of a classroom, newest first.
func (svc *Service) StudentView(ctx context.Context, p user.Principal, classID int64) ([]StudentStatus, error) {
	if _, err := svc.classes.GetForMember(ctx, p, classID); err != nil {
		return nil, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{ClassRoomID: classID, StudentID: p.UserID})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}

	bySession := make(map[int64]Record, len(records))
	for _, r := range records {
		bySession[r.SessionID] = r
	}
	now := NowFunc().UTC()
	statuses := make([]StudentStatus, 0, len(sessions))
	for _, s := range sessions {
		st := StudentStatus{Session: s, State: s.State(now)}
		if r, ok := bySession[s.ID]; ok {
			st.Record = &r
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// OpenSessions returns the sessions of a classroom students may check in to now.
func (svc *Service) OpenSessions(ctx context.Context, p user.Principal, classID int64) ([]Session, error) {
	if _, err := svc.classes.GetForMember(ctx, p, classID); err != nil {
		return nil, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	now := NowFunc().UTC()
	open := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.IsOpen(now) {
			open = append(open, s)
		}
	}
	return open, nil
}

// ClassRoomSessions returns every session of a classroom and all their records. Used by reports.
func (svc *Service) ClassRoomSessions(ctx context.Context, classID int64) ([]Session, []Record, error) {
	sessions, err := svc.repo.QuerySessions(ctx, classID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying sessions")
	}
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{ClassRoomID: classID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying records")
	}
	return sessions, records, nil
}
