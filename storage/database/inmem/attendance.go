package inmemdb

import (
	"context"
	"sort"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	defer repo.db.lock(exec)()

	s.ID = repo.db.nextID()
	repo.db.t.sessions[s.ID] = s
	return s, nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, id int64, _ ...core.DBExecutor) (attendance.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.sessions[id]; ok {
		return s, nil
	}
	return attendance.Session{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QuerySessions(ctx context.Context, classID int64, _ ...core.DBExecutor) ([]attendance.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]attendance.Session, 0)
	for _, s := range repo.db.t.sessions {
		if s.ClassRoomID == classID {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.sessions[s.ID]; !ok {
		return attendance.Session{}, attendance.ErrNotFound
	}
	repo.db.t.sessions[s.ID] = s
	return s, nil
}

// findRecord must be called with mu held.
func (repo *attendanceRepository) findRecord(sessionID int64, studentID string) (attendance.Record, bool) {
	for _, r := range repo.db.t.records {
		if r.SessionID == sessionID && r.StudentID == studentID {
			return r, true
		}
	}
	return attendance.Record{}, false
}

// insertRecord must be called with mu held.
func (repo *attendanceRepository) insertRecord(r attendance.Record) (attendance.Record, error) {
	if _, exists := repo.findRecord(r.SessionID, r.StudentID); exists {
		return attendance.Record{}, core.NewConflictError("attendance record already exists")
	}
	r.ID = repo.db.nextID()
	r.StudentName, r.StudentEmail = "", ""
	repo.db.t.records[r.ID] = r
	return repo.joinRecord(r), nil
}

// joinRecord must be called with mu held.
func (repo *attendanceRepository) joinRecord(r attendance.Record) attendance.Record {
	if usr, ok := repo.db.t.users[r.StudentID]; ok {
		r.StudentName = usr.Name
		r.StudentEmail = usr.Email
	}
	return r
}

func (repo *attendanceRepository) CreateRecords(ctx context.Context, rs []attendance.Record, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	for _, r := range rs {
		if _, err := repo.insertRecord(r); err != nil {
			return err
		}
	}
	return nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, sessionID int64, studentID string, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.findRecord(sessionID, studentID); ok {
		return repo.joinRecord(r), nil
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, r attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	defer repo.db.lock(exec)()
	return repo.insertRecord(r)
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, r attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.records[r.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	orig.IsPresent = r.IsPresent
	orig.AttendedAt = r.AttendedAt
	repo.db.t.records[r.ID] = orig
	return repo.joinRecord(orig), nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.RecordFilter, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Record, 0)
	for _, r := range repo.db.t.records {
		if filter.SessionID != 0 && r.SessionID != filter.SessionID {
			continue
		}
		if filter.ClassRoomID != 0 && repo.db.t.sessions[r.SessionID].ClassRoomID != filter.ClassRoomID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		records = append(records, repo.joinRecord(r))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].StudentName != records[j].StudentName {
			return records[i].StudentName < records[j].StudentName
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}
