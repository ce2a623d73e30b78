package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hojun-song/wkfbox/gallery/domain"
)

func TestFileStore_PutAndGet(t *testing.T) {
	store := NewFileStore(t.TempDir())

	original := []byte("original bytes")
	path, err := store.Put("pic-1", original)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Put reported path %s but stat failed: %v", path, err)
	}

	got, err := store.Get("pic-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("Get = %q, want %q", got, original)
	}
}

func TestFileStore_Thumbnail(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if err := store.PutThumbnail("pic-1", []byte("thumb bytes")); err != nil {
		t.Fatalf("PutThumbnail failed: %v", err)
	}

	got, err := store.GetThumbnail("pic-1")
	if err != nil {
		t.Fatalf("GetThumbnail failed: %v", err)
	}
	if string(got) != "thumb bytes" {
		t.Errorf("GetThumbnail = %q, want %q", got, "thumb bytes")
	}

	// The original namespace stays untouched.
	if _, err := store.Get("pic-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if _, err := store.Get("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetThumbnail("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetThumbnail error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_Delete(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	if _, err := store.Put("pic-1", []byte("original")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.PutThumbnail("pic-1", []byte("thumb")); err != nil {
		t.Fatalf("PutThumbnail failed: %v", err)
	}

	if err := store.Delete("pic-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get("pic-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if _, err := store.GetThumbnail("pic-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetThumbnail after delete = %v, want ErrNotFound", err)
	}

	// Deleting again is a no-op.
	if err := store.Delete("pic-1"); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}

	if _, err := os.Stat(filepath.Join(root, originalsDir, "pic-1")); !os.IsNotExist(err) {
		t.Error("original file should be gone from disk")
	}
}

func TestFileStore_DisjointIDs(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if _, err := store.Put("a", []byte("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Put("b", []byte("second")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := store.Get("b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get = %q, want %q", got, "second")
	}
}
