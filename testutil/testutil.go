// Package testutil holds the helpers shared by the test suites.
package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
	logsvc "github.com/KhanhMinhDz/CourseHub-Project/services/logger"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database"
)

// DatabaseURLEnv points the PostgreSQL repository tests to a disposable database.
const DatabaseURLEnv = "TEST_DATABASE_URL"

var tables = []string{
	"attendance_record", "attendance_session", "submission", "question", "assignment",
	"content_block", "enrollment", "classroom", `"user"`,
}

// NewLogger returns a core.Logger that discards its output.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
}

// PrepareDB opens the test database, migrates it and empties every table.
// The test is skipped when DatabaseURLEnv is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	url := os.Getenv(DatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}
	db, err := database.OpenURL(url)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE"); err != nil {
			t.Fatalf("ResetDB() failed: %v", err)
		}
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Principal returns the principal of usr.
func Principal(usr user.User) user.Principal {
	return user.NewPrincipal(usr)
}
