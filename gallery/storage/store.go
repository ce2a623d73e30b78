// Package storage keeps image bytes on the filesystem under a single root:
// originals/ for uploaded files and thumbs/ for derived thumbnails, each
// file named by the picture's opaque id.
package storage

import (
	"os"
	"path/filepath"

	"github.com/hojun-song/wkfbox/gallery/domain"
)

var _ domain.ImageStore = (*FileStore)(nil)

const (
	originalsDir = "originals"
	thumbsDir    = "thumbs"
)

// FileStore implements domain.ImageStore on a local directory tree.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at root. The root's writability is
// checked at startup by the config loader, not here.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) originalPath(id string) string {
	return filepath.Join(s.root, originalsDir, id)
}

func (s *FileStore) thumbPath(id string) string {
	return filepath.Join(s.root, thumbsDir, id)
}

// Put writes the original bytes for id and returns the path written.
func (s *FileStore) Put(id string, data []byte) (string, error) {
	path := s.originalPath(id)
	if err := s.write(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// PutThumbnail writes the thumbnail bytes for id.
func (s *FileStore) PutThumbnail(id string, data []byte) error {
	return s.write(s.thumbPath(id), data)
}

func (s *FileStore) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &domain.StorageError{Op: "mkdir", Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &domain.StorageError{Op: "write", Err: err}
	}
	return nil
}

// Get returns the original bytes for id.
func (s *FileStore) Get(id string) ([]byte, error) {
	return s.read(s.originalPath(id))
}

// GetThumbnail returns the thumbnail bytes for id.
func (s *FileStore) GetThumbnail(id string) ([]byte, error) {
	return s.read(s.thumbPath(id))
}

func (s *FileStore) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read", Err: err}
	}
	return data, nil
}

// Delete removes the original and the thumbnail for id. Files already
// absent are not an error.
func (s *FileStore) Delete(id string) error {
	for _, path := range []string{s.originalPath(id), s.thumbPath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return &domain.StorageError{Op: "remove", Err: err}
		}
	}
	return nil
}
