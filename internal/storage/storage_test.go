package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	exists, err := fs.Exists(ctx, "reports/a.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = fs.DownloadFile(ctx, "reports/a.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, fs.UploadFile(ctx, "reports/a.json", strings.NewReader(`{"ok":true}`)))

	exists, err = fs.Exists(ctx, "reports/a.json")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := fs.DownloadFile(ctx, "reports/a.json")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))

	// No temp files are left next to the object.
	entries, err := os.ReadDir(filepath.Join(fs.Root, "reports"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestFileStorageFailedUploadLeavesNothing(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	err = fs.UploadFile(ctx, "cache.json", failingReader{})
	require.Error(t, err)

	exists, err := fs.Exists(ctx, "cache.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTxCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	cache := NewTxCache(fs, "")
	assert.Equal(t, DefaultCacheObject, cache.ObjectName())

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	capture := models.TxCapture{
		"terra1bot": {
			models.RawTransaction(`{"txhash":"A","logs":[]}`),
			models.RawTransaction(`{"txhash":"B","logs":[]}`),
		},
		"terra1other": {},
	}
	require.NoError(t, cache.Save(ctx, capture))

	loaded, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 2)
	require.Len(t, loaded["terra1bot"], 2)
	assert.JSONEq(t, `{"txhash":"A","logs":[]}`, string(loaded["terra1bot"][0]))
	assert.JSONEq(t, `{"txhash":"B","logs":[]}`, string(loaded["terra1bot"][1]))
	assert.Empty(t, loaded["terra1other"])
}

func TestTxCacheCorruptDocument(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.UploadFile(ctx, DefaultCacheObject, strings.NewReader(`{"terra1bot": [`)))

	_, _, err = NewTxCache(fs, "").Load(ctx)
	assert.Error(t, err)
}
