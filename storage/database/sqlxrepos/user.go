package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.Active(),
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	usr.SetActive(r.IsActive)
	return usr
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var row struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	err := repo.getExec(exec).GetContext(ctx, &row,
		`SELECT username, email FROM "user" WHERE (username = $1 OR email = $2) AND NOT (id::text = ANY($3)) LIMIT 1`,
		username, email, pq.Array(ids))
	switch {
	case errors.Cause(err) == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking user uniqueness")
	case username != "" && row.Username.String == username:
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	r := toUserRow(usr)

	var created userRow
	err := repo.getExec(exec).GetContext(ctx, &created,
		`INSERT INTO "user" (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING `+userColumns,
		r.ID, r.Name, r.Username, r.Email, r.IsActive, r.Roles, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin)
	if err != nil {
		return user.User{}, trapUniqueErr(err, "a user with this username or email already exists", "inserting user")
	}
	return created.toUser(), nil
}

var userOrderFields = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		if len(filter.Roles) > 0 {
			w.add("roles && ?", pq.Array(filter.Roles))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM "user"` + w.String() + orderBy(ordering, userOrderFields, "created_at DESC")
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		uname, email := filter.UsernameOrEmail[0], ""
		if len(filter.UsernameOrEmail) > 1 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		w.add("(username = ? OR email = ?)", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	err := repo.getExec(exec).GetContext(ctx, &r, `SELECT `+userColumns+` FROM "user"`+w.String()+` LIMIT 1`, w.args...)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	r := toUserRow(usr)

	var updated userRow
	err := repo.getExec(exec).GetContext(ctx, &updated,
		`UPDATE "user" SET name = $2, username = $3, email = $4, is_active = $5, roles = $6, password_hash = $7,
			updated_at = $8, last_login = $9
		WHERE id = $1 RETURNING `+userColumns,
		r.ID, r.Name, r.Username, r.Email, r.IsActive, r.Roles, r.PasswordHash, r.UpdatedAt, r.LastLogin)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, trapUniqueErr(err, "a user with this username or email already exists", "updating user")
	}
	return updated.toUser(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM "user" WHERE id::text = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "counting deleted users")
}
