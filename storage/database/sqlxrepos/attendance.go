package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
)

const (
	sessionColumns = `id, classroom_id, created_at, close_at, is_active`
	recordSelect   = `SELECT r.id, r.session_id, r.student_id, r.is_present, r.attended_at,
	u.name AS student_name, COALESCE(u.email, '') AS student_email
	FROM attendance_record r
	JOIN "user" u ON u.id = r.student_id`
)

type sessionRow struct {
	ID          int64     `db:"id"`
	ClassRoomID int64     `db:"classroom_id"`
	CreatedAt   time.Time `db:"created_at"`
	CloseAt     time.Time `db:"close_at"`
	IsActive    bool      `db:"is_active"`
}

func (r sessionRow) toSession() attendance.Session {
	return attendance.Session{
		ID:          r.ID,
		ClassRoomID: r.ClassRoomID,
		CreatedAt:   r.CreatedAt.UTC(),
		CloseAt:     r.CloseAt.UTC(),
		IsActive:    r.IsActive,
	}
}

type recordRow struct {
	ID           int64     `db:"id"`
	SessionID    int64     `db:"session_id"`
	StudentID    string    `db:"student_id"`
	StudentName  string    `db:"student_name"`
	StudentEmail string    `db:"student_email"`
	IsPresent    bool      `db:"is_present"`
	AttendedAt   null.Time `db:"attended_at"`
}

func (r recordRow) toRecord() attendance.Record {
	rec := attendance.Record{
		ID:           r.ID,
		SessionID:    r.SessionID,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		StudentEmail: r.StudentEmail,
		IsPresent:    r.IsPresent,
	}
	if r.AttendedAt.Valid {
		t := r.AttendedAt.Time.UTC()
		rec.AttendedAt = &t
	}
	return rec
}

type attendanceRepository struct {
	baseRepository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) attendance.Repository {
	return &attendanceRepository{baseRepository{exec: exec}}
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	var r sessionRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		`INSERT INTO attendance_session (classroom_id, created_at, close_at, is_active) VALUES ($1, $2, $3, $4)
		RETURNING `+sessionColumns,
		s.ClassRoomID, s.CreatedAt.UTC(), s.CloseAt.UTC(), s.IsActive)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "inserting session")
	}
	return r.toSession(), nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, id int64, exec ...core.DBExecutor) (attendance.Session, error) {
	var r sessionRow
	err := repo.getExec(exec).GetContext(ctx, &r, `SELECT `+sessionColumns+` FROM attendance_session WHERE id = $1`, id)
	if err != nil {
		return attendance.Session{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding session")
	}
	return r.toSession(), nil
}

func (repo *attendanceRepository) QuerySessions(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]attendance.Session, error) {
	var rows []sessionRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT `+sessionColumns+` FROM attendance_session WHERE classroom_id = $1 ORDER BY created_at DESC, id DESC`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]attendance.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.toSession())
	}
	return sessions, nil
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	var r sessionRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		`UPDATE attendance_session SET close_at = $2, is_active = $3 WHERE id = $1 RETURNING `+sessionColumns,
		s.ID, s.CloseAt.UTC(), s.IsActive)
	if err != nil {
		return attendance.Session{}, trapNoRowsErr(err, attendance.ErrNotFound, "updating session")
	}
	return r.toSession(), nil
}

func (repo *attendanceRepository) CreateRecords(ctx context.Context, rs []attendance.Record, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	for _, r := range rs {
		_, err := exe.ExecContext(ctx,
			`INSERT INTO attendance_record (session_id, student_id, is_present, attended_at) VALUES ($1, $2, $3, $4)`,
			r.SessionID, r.StudentID, r.IsPresent, null.TimeFromPtr(r.AttendedAt))
		if err != nil {
			return trapUniqueErr(err, "attendance record already exists", "inserting attendance record")
		}
	}
	return nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, sessionID int64, studentID string, exec ...core.DBExecutor) (attendance.Record, error) {
	var r recordRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		recordSelect+` WHERE r.session_id = $1 AND r.student_id::text = $2 FOR UPDATE OF r`, sessionID, studentID)
	if err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrRecordNotFound, "finding attendance record")
	}
	return r.toRecord(), nil
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx,
		`INSERT INTO attendance_record (session_id, student_id, is_present, attended_at) VALUES ($1, $2, $3, $4)`,
		rec.SessionID, rec.StudentID, rec.IsPresent, null.TimeFromPtr(rec.AttendedAt))
	if err != nil {
		return attendance.Record{}, trapUniqueErr(err, "attendance record already exists", "inserting attendance record")
	}
	return repo.GetRecord(ctx, rec.SessionID, rec.StudentID, exe)
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx,
		`UPDATE attendance_record SET is_present = $2, attended_at = $3 WHERE id = $1`,
		rec.ID, rec.IsPresent, null.TimeFromPtr(rec.AttendedAt))
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return repo.GetRecord(ctx, rec.SessionID, rec.StudentID, exe)
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.RecordFilter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	var w where
	if filter.SessionID != 0 {
		w.add("r.session_id = ?", filter.SessionID)
	}
	if filter.ClassRoomID != 0 {
		w.add("r.session_id IN (SELECT id FROM attendance_session WHERE classroom_id = ?)", filter.ClassRoomID)
	}
	if filter.StudentID != "" {
		w.add("r.student_id::text = ?", filter.StudentID)
	}

	var rows []recordRow
	q := recordSelect + w.String() + ` ORDER BY u.name, r.id`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}
