// Package uploads persists submission files on the local filesystem under a
// configured directory.
package uploads

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/assignment"
)

type Store struct {
	dir string
}

var _ assignment.FileStore = (*Store)(nil) // interface compliance check

// NewStore creates the upload directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	// names are sanitized upstream; Base guards against path traversal anyway
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *Store) Save(name string, src io.Reader) error {
	dst, err := os.Create(s.path(name))
	if err != nil {
		return errors.Wrap(err, "creating upload file")
	}
	defer func() { _ = dst.Close() }()

	if _, err = io.Copy(dst, src); err != nil {
		return errors.Wrap(err, "writing upload file")
	}
	return nil
}

func (s *Store) Remove(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing upload file")
	}
	return nil
}

func (s *Store) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, errors.Wrap(err, "opening upload file")
	}
	return f, nil
}
