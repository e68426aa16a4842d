package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/estensen/mint-profit-pipeline/internal/metrics"
	"github.com/estensen/mint-profit-pipeline/internal/models"
)

const DefaultCacheObject = "all-transactions.json"

// TxCache persists a complete TxCapture as a single document. It is written
// once per cold run and only read afterwards.
type TxCache struct {
	store      Storage
	objectName string
}

func NewTxCache(store Storage, objectName string) *TxCache {
	if objectName == "" {
		objectName = DefaultCacheObject
	}
	return &TxCache{store: store, objectName: objectName}
}

func (c *TxCache) ObjectName() string {
	return c.objectName
}

// Load returns the cached capture, or ok=false when nothing is cached.
func (c *TxCache) Load(ctx context.Context) (models.TxCapture, bool, error) {
	exists, err := c.store.Exists(ctx, c.objectName)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		metrics.CacheReads.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	rc, err := c.store.DownloadFile(ctx, c.objectName)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	var capture models.TxCapture
	if err := json.NewDecoder(rc).Decode(&capture); err != nil {
		return nil, false, fmt.Errorf("decoding tx cache %s: %w", c.objectName, err)
	}
	metrics.CacheReads.WithLabelValues("hit").Inc()
	return capture, true, nil
}

// Save encodes the whole capture in memory before handing it to the store,
// so an encoding failure never leaves a partial document behind.
func (c *TxCache) Save(ctx context.Context, capture models.TxCapture) error {
	data, err := json.MarshalIndent(capture, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tx cache: %w", err)
	}
	if err := c.store.UploadFile(ctx, c.objectName, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing tx cache %s: %w", c.objectName, err)
	}
	return nil
}
