package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
)

type classRoomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classRoomRepository)(nil) // interface compliance check

func NewClassRoomRepository(db *DB) classroom.Repository {
	return &classRoomRepository{db: db}
}

func (repo *classRoomRepository) CreateClassRoom(ctx context.Context, c classroom.ClassRoom, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	defer repo.db.lock(exec)()

	c.ID = repo.db.nextID()
	repo.db.t.classrooms[c.ID] = c
	return c, nil
}

func (repo *classRoomRepository) GetClassRoom(ctx context.Context, id int64, _ ...core.DBExecutor) (classroom.ClassRoom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.t.classrooms[id]; ok {
		return c, nil
	}
	return classroom.ClassRoom{}, classroom.ErrNotFound
}

func (repo *classRoomRepository) QueryClassRooms(ctx context.Context, filter *classroom.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]classroom.ClassRoom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]classroom.ClassRoom, 0, len(repo.db.t.classrooms))
	for _, c := range repo.db.t.classrooms {
		if filter != nil && !repo.matchClassRoom(c, filter) {
			continue
		}
		classes = append(classes, c)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(classes, func(i, j int) bool {
		for _, ord := range ordering {
			var c int
			if ord.Field == "title" {
				c = strings.Compare(classes[i].Title, classes[j].Title)
			} else {
				c = classes[i].CreatedAt.Compare(classes[j].CreatedAt)
			}
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return classes[i].ID > classes[j].ID
	})
	return classes, nil
}

// matchClassRoom must be called with mu held.
func (repo *classRoomRepository) matchClassRoom(c classroom.ClassRoom, filter *classroom.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(c.Title), s) || strings.Contains(strings.ToLower(c.Description), s)) {
			return false
		}
	}
	if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
		return false
	}
	if filter.StudentID != "" && !repo.isEnrolled(c.ID, filter.StudentID) {
		return false
	}
	return true
}

func (repo *classRoomRepository) UpdateClassRoom(ctx context.Context, c classroom.ClassRoom, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.classrooms[c.ID]; !ok {
		return classroom.ClassRoom{}, classroom.ErrNotFound
	}
	repo.db.t.classrooms[c.ID] = c
	return c, nil
}

// DeleteClassRoom deletes a classroom with everything it owns.
func (repo *classRoomRepository) DeleteClassRoom(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	t := &repo.db.t
	delete(t.classrooms, id)
	for k, e := range t.enrollments {
		if e.ClassRoomID == id {
			delete(t.enrollments, k)
		}
	}
	for k, b := range t.blocks {
		if b.ClassRoomID == id {
			delete(t.blocks, k)
		}
	}
	for k, a := range t.assignments {
		if a.ClassRoomID == id {
			deleteAssignment(t, k)
		}
	}
	for k, s := range t.sessions {
		if s.ClassRoomID == id {
			delete(t.sessions, k)
			for rk, r := range t.records {
				if r.SessionID == k {
					delete(t.records, rk)
				}
			}
		}
	}
	return nil
}

// isEnrolled must be called with mu held.
func (repo *classRoomRepository) isEnrolled(classID int64, studentID string) bool {
	for _, e := range repo.db.t.enrollments {
		if e.ClassRoomID == classID && e.StudentID == studentID {
			return true
		}
	}
	return false
}

// joinEnrollment must be called with mu held.
func (repo *classRoomRepository) joinEnrollment(e classroom.Enrollment) classroom.Enrollment {
	if usr, ok := repo.db.t.users[e.StudentID]; ok {
		e.StudentName = usr.Name
		e.StudentEmail = usr.Email
	}
	if c, ok := repo.db.t.classrooms[e.ClassRoomID]; ok {
		e.ClassTitle = c.Title
	}
	return e
}

func (repo *classRoomRepository) InsertEnrollment(ctx context.Context, e classroom.Enrollment, exec ...core.DBExecutor) (classroom.Enrollment, bool, error) {
	defer repo.db.lock(exec)()

	for _, existing := range repo.db.t.enrollments {
		if existing.ClassRoomID == e.ClassRoomID && existing.StudentID == e.StudentID {
			return repo.joinEnrollment(existing), false, nil
		}
	}
	e.ID = repo.db.nextID()
	repo.db.t.enrollments[e.ID] = e
	return repo.joinEnrollment(e), true, nil
}

func (repo *classRoomRepository) IsEnrolled(ctx context.Context, classID int64, studentID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.isEnrolled(classID, studentID), nil
}

func (repo *classRoomRepository) QueryEnrollments(ctx context.Context, filter classroom.EnrollmentFilter, _ ...core.DBExecutor) ([]classroom.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrs := make([]classroom.Enrollment, 0)
	for _, e := range repo.db.t.enrollments {
		if filter.ClassRoomID != 0 && e.ClassRoomID != filter.ClassRoomID {
			continue
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		enrs = append(enrs, repo.joinEnrollment(e))
	}
	sort.Slice(enrs, func(i, j int) bool {
		if enrs[i].ClassTitle != enrs[j].ClassTitle {
			return enrs[i].ClassTitle < enrs[j].ClassTitle
		}
		if enrs[i].StudentName != enrs[j].StudentName {
			return enrs[i].StudentName < enrs[j].StudentName
		}
		return enrs[i].ID < enrs[j].ID
	})
	return enrs, nil
}

func (repo *classRoomRepository) MaxContentOrder(ctx context.Context, classID int64, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var max int
	for _, b := range repo.db.t.blocks {
		if b.ClassRoomID == classID && b.Order > max {
			max = b.Order
		}
	}
	return max, nil
}

func (repo *classRoomRepository) CreateContentBlock(ctx context.Context, b classroom.ContentBlock, exec ...core.DBExecutor) (classroom.ContentBlock, error) {
	defer repo.db.lock(exec)()

	for _, existing := range repo.db.t.blocks {
		if existing.ClassRoomID == b.ClassRoomID && existing.Order == b.Order {
			return classroom.ContentBlock{}, core.NewConflictError("content was added concurrently, please retry")
		}
	}
	b.ID = repo.db.nextID()
	repo.db.t.blocks[b.ID] = b
	return b, nil
}

func (repo *classRoomRepository) GetContentBlock(ctx context.Context, id int64, _ ...core.DBExecutor) (classroom.ContentBlock, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if b, ok := repo.db.t.blocks[id]; ok {
		return b, nil
	}
	return classroom.ContentBlock{}, classroom.ErrContentBlockNotFound
}

func (repo *classRoomRepository) QueryContentBlocks(ctx context.Context, classID int64, _ ...core.DBExecutor) ([]classroom.ContentBlock, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	blocks := make([]classroom.ContentBlock, 0)
	for _, b := range repo.db.t.blocks {
		if b.ClassRoomID == classID {
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })
	return blocks, nil
}

func (repo *classRoomRepository) UpdateContentBlock(ctx context.Context, b classroom.ContentBlock, exec ...core.DBExecutor) (classroom.ContentBlock, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.blocks[b.ID]; !ok {
		return classroom.ContentBlock{}, classroom.ErrContentBlockNotFound
	}
	repo.db.t.blocks[b.ID] = b
	return b, nil
}

func (repo *classRoomRepository) DeleteContentBlock(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()
	delete(repo.db.t.blocks, id)
	return nil
}
