package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

func TestDB_RunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("rollback", func(t *testing.T) {
		db := Open()
		repo := NewUserRepository(db)

		err := db.RunInTx(ctx, func(exec core.DBExecutor) error {
			if _, err := repo.CreateUser(ctx, user.User{Username: "ghost"}, exec); err != nil {
				return err
			}
			return errors.New("boom")
		})
		require.Error(t, err)

		usrs, err := repo.QueryUsers(ctx, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, usrs)
	})

	t.Run("concurrent writes survive a rollback", func(t *testing.T) {
		db := Open()
		repo := NewUserRepository(db)

		written := make(chan error, 1)
		err := db.RunInTx(ctx, func(exec core.DBExecutor) error {
			if _, err := repo.CreateUser(ctx, user.User{Username: "ghost"}, exec); err != nil {
				return err
			}
			go func() {
				_, err := repo.CreateUser(ctx, user.User{Username: "ada"})
				written <- err
			}()
			time.Sleep(20 * time.Millisecond)
			return errors.New("boom")
		})
		require.Error(t, err)
		require.NoError(t, <-written)

		usrs, err := repo.QueryUsers(ctx, nil, nil)
		require.NoError(t, err)
		require.Len(t, usrs, 1)
		assert.Equal(t, "ada", usrs[0].Username)
	})
}
