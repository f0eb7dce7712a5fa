package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
)

func newStore(t *testing.T) *LocalStore {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Uploads.Root = filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(conf)
	require.NoError(t, err)
	return store
}

func TestLocalStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rel, err := store.Save(ctx, ".PDF", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "submissions/"), rel)
	assert.True(t, strings.HasSuffix(rel, ".pdf"), rel)

	other, err := store.Save(ctx, "pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, rel, other)

	r, err := store.Open(rel)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Remove(rel))
	require.NoError(t, store.Remove(rel), "removing twice")
	_, err = os.Stat(filepath.Join(store.root, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	_, err = store.Open(rel)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestLocalStore_resolve(t *testing.T) {
	store := newStore(t)

	for _, rel := range []string{"", "/", ".", "../"} {
		_, err := store.resolve(rel)
		assert.Equal(t, errInvalidPath, err, "path %q", rel)
	}

	full, err := store.resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.root, "etc", "passwd"), full)
}

func TestLocalStore_cancelled(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "pdf", strings.NewReader("hello"))
	assert.Equal(t, context.Canceled, err)
}
