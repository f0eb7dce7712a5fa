// Package files stores uploaded submission files on the local disk.
package files

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
)

var errInvalidPath = errors.New("invalid file path")

// LocalStore keeps files under root, in one directory per upload month.
type LocalStore struct {
	root string
}

var _ core.FileStore = (*LocalStore)(nil) // interface compliance check

func NewLocalStore(conf *core.Config) (*LocalStore, error) {
	root := conf.Uploads.Root
	if root == "" {
		root = filepath.Join(os.TempDir(), "coursehub-uploads")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating uploads root")
	}
	return &LocalStore{root: root}, nil
}

// Save copies r into a new file named after a random uuid and ext.
func (s *LocalStore) Save(ctx context.Context, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	name := uuid.New().String()
	if ext != "" {
		name += "." + ext
	}
	rel := path.Join("submissions", time.Now().UTC().Format("2006-01"), name)

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", errors.Wrap(err, "creating upload directory")
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(full)
		return "", errors.Wrap(err, "closing file")
	}
	return rel, nil
}

func (s *LocalStore) Open(rel string) (io.ReadCloser, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewNotFoundError("file")
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

// Remove deletes the file; a missing file is not an error.
func (s *LocalStore) Remove(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err = os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

// resolve maps a stored path to the disk, refusing paths that leave the root.
func (s *LocalStore) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if rel == "" || clean == "/" {
		return "", errInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
