package inmemdb

import (
	"context"
	"sort"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

// withQuestionCount must be called with mu held.
func (repo *assignmentRepository) withQuestionCount(a assignment.Assignment) assignment.Assignment {
	a.QuestionCount = 0
	for _, q := range repo.db.t.questions {
		if q.AssignmentID == a.ID {
			a.QuestionCount++
		}
	}
	return a
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	defer repo.db.lock(exec)()

	a.ID = repo.db.nextID()
	a.QuestionCount = 0
	repo.db.t.assignments[a.ID] = a
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id int64, _ ...core.DBExecutor) (assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.t.assignments[id]; ok {
		return repo.withQuestionCount(a), nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, classID int64, _ ...core.DBExecutor) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	as := make([]assignment.Assignment, 0)
	for _, a := range repo.db.t.assignments {
		if a.ClassRoomID == classID {
			as = append(as, repo.withQuestionCount(a))
		}
	}
	sort.Slice(as, func(i, j int) bool {
		if !as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].CreatedAt.Before(as[j].CreatedAt)
		}
		return as[i].ID < as[j].ID
	})
	return as, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.assignments[a.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.t.assignments[a.ID] = a
	return repo.withQuestionCount(a), nil
}

// deleteAssignment removes an assignment with its questions and submissions.
func deleteAssignment(t *tables, id int64) {
	delete(t.assignments, id)
	for k, q := range t.questions {
		if q.AssignmentID == id {
			delete(t.questions, k)
		}
	}
	for k, s := range t.submissions {
		if s.AssignmentID == id {
			delete(t.submissions, k)
		}
	}
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()
	deleteAssignment(&repo.db.t, id)
	return nil
}

func (repo *assignmentRepository) CreateQuestions(ctx context.Context, qs []assignment.Question, exec ...core.DBExecutor) ([]assignment.Question, error) {
	defer repo.db.lock(exec)()

	for _, q := range qs {
		if _, ok := repo.db.t.assignments[q.AssignmentID]; !ok {
			return nil, assignment.ErrNotFound
		}
	}
	created := make([]assignment.Question, 0, len(qs))
	for _, q := range qs {
		q.ID = repo.db.nextID()
		repo.db.t.questions[q.ID] = q
		created = append(created, q)
	}
	return created, nil
}

func (repo *assignmentRepository) GetQuestion(ctx context.Context, id int64, _ ...core.DBExecutor) (assignment.Question, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if q, ok := repo.db.t.questions[id]; ok {
		return q, nil
	}
	return assignment.Question{}, assignment.ErrQuestionNotFound
}

func (repo *assignmentRepository) QueryQuestions(ctx context.Context, assignmentID int64, _ ...core.DBExecutor) ([]assignment.Question, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	qs := make([]assignment.Question, 0)
	for _, q := range repo.db.t.questions {
		if q.AssignmentID == assignmentID {
			qs = append(qs, q)
		}
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs, nil
}

func (repo *assignmentRepository) DeleteQuestion(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()
	delete(repo.db.t.questions, id)
	return nil
}

// joinSubmission must be called with mu held.
func (repo *assignmentRepository) joinSubmission(s assignment.Submission) assignment.Submission {
	if usr, ok := repo.db.t.users[s.StudentID]; ok {
		s.StudentName = usr.Name
	}
	return s
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, s assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.assignments[s.AssignmentID]; !ok {
		return assignment.Submission{}, assignment.ErrNotFound
	}
	s.ID = repo.db.nextID()
	s.StudentName = ""
	repo.db.t.submissions[s.ID] = s
	return repo.joinSubmission(s), nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, id int64, _ ...core.DBExecutor) (assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.submissions[id]; ok {
		return repo.joinSubmission(s), nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, filter assignment.SubmissionFilter, _ ...core.DBExecutor) ([]assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, s := range repo.db.t.submissions {
		if filter.AssignmentID != 0 && s.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.ClassRoomID != 0 && repo.db.t.assignments[s.AssignmentID].ClassRoomID != filter.ClassRoomID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		subs = append(subs, repo.joinSubmission(s))
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
		}
		return subs[i].ID > subs[j].ID
	})
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, s assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.submissions[s.ID]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	orig.Comments = s.Comments
	orig.Score = s.Score
	repo.db.t.submissions[s.ID] = orig
	return repo.joinSubmission(orig), nil
}

func (repo *assignmentRepository) SubmissionFiles(ctx context.Context, assignmentID int64, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var paths []string
	for _, s := range repo.db.t.submissions {
		if s.AssignmentID == assignmentID && s.HasFile() {
			paths = append(paths, s.FilePath)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (repo *assignmentRepository) ClassRoomFiles(ctx context.Context, classID int64, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var paths []string
	for _, s := range repo.db.t.submissions {
		if repo.db.t.assignments[s.AssignmentID].ClassRoomID == classID && s.HasFile() {
			paths = append(paths, s.FilePath)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
