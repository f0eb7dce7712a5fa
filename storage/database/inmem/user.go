package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.t.users {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	usr.ID = uuid.New().String()
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.t.users))
	for _, usr := range repo.db.t.users {
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, usr)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareUsers(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), s) ||
			strings.Contains(usr.Username, s) ||
			strings.Contains(usr.Email, s)) {
			return false
		}
	}
	if len(filter.Roles) > 0 && !user.HasAnyRole(usr.Roles, filter.Roles) {
		return false
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "last_login":
		return a.LastLogin.Compare(b.LastLogin)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.t.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	var uname, email string
	switch {
	case filter.Username != "":
		uname = filter.Username
	case filter.Email != "":
		email = filter.Email
	case len(filter.UsernameOrEmail) > 0:
		uname = filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) > 1 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
	}
	for _, usr := range repo.db.t.users {
		if (uname != "" && usr.Username == uname) || (email != "" && usr.Email == email) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

// DeleteUsersByID deletes users with the rows that reference them.
func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	defer repo.db.lock(exec)()

	t := &repo.db.t
	var cnt int
	for _, id := range ids {
		if _, ok := t.users[id]; !ok {
			continue
		}
		delete(t.users, id)
		cnt++

		for k, c := range t.classrooms {
			if c.InstructorID == id {
				c.InstructorID = ""
				t.classrooms[k] = c
			}
		}
		for k, e := range t.enrollments {
			if e.StudentID == id {
				delete(t.enrollments, k)
			}
		}
		for k, s := range t.submissions {
			if s.StudentID == id {
				delete(t.submissions, k)
			}
		}
		for k, r := range t.records {
			if r.StudentID == id {
				delete(t.records, k)
			}
		}
	}
	return cnt, nil
}
