package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStorage keeps objects as files under a root directory.
type FileStorage struct {
	Root string
}

func NewFileStorage(root string) (*FileStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", root, err)
	}
	return &FileStorage{Root: root}, nil
}

func (f *FileStorage) path(objectName string) string {
	return filepath.Join(f.Root, filepath.FromSlash(objectName))
}

// UploadFile writes to a temp file and renames it into place, so readers
// never observe a partially written object.
func (f *FileStorage) UploadFile(_ context.Context, objectName string, data io.Reader) error {
	dst := f.path(objectName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for '%s': %w", objectName, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", objectName, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write '%s': %w", objectName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync '%s': %w", objectName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", objectName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("failed to move '%s' into place: %w", objectName, err)
	}
	return nil
}

func (f *FileStorage) DownloadFile(_ context.Context, objectName string) (io.ReadCloser, error) {
	file, err := os.Open(f.path(objectName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s': %w", objectName, err)
	}
	return file, nil
}

func (f *FileStorage) Exists(_ context.Context, objectName string) (bool, error) {
	_, err := os.Stat(f.path(objectName))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat '%s': %w", objectName, err)
	}
	return true, nil
}
