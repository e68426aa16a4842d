package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by DownloadFile when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Storage is an interface for persisting named documents.
type Storage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader) error
	DownloadFile(ctx context.Context, objectName string) (io.ReadCloser, error)
	Exists(ctx context.Context, objectName string) (bool, error)
}
