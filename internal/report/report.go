// Package report writes finished reports to their destinations.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/models"
	"github.com/estensen/mint-profit-pipeline/internal/storage"
)

// Encode renders r as an indented document. Map keys come out sorted, so
// equal reports encode to equal bytes.
func Encode(r *models.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}

func WriteJSON(w io.Writer, r *models.Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ArchiveObject is the object name a run's report is archived under.
func ArchiveObject(runID string) string {
	return fmt.Sprintf("reports/report-%s.json", runID)
}

// Sink stores a report in an analytics database.
type Sink interface {
	Store(ctx context.Context, runID string, createdAt time.Time, r *models.Report) error
}

// Publisher sends a finished report to the output file and, when
// configured, to the archive store and the analytics sink.
type Publisher struct {
	output     storage.Storage
	outputName string
	archive    storage.Storage
	sink       Sink
	logger     *zap.Logger
}

type Option func(*Publisher)

func WithArchive(store storage.Storage) Option {
	return func(p *Publisher) { p.archive = store }
}

func WithSink(sink Sink) Option {
	return func(p *Publisher) { p.sink = sink }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher writes the report to outputPath on the local filesystem.
func NewPublisher(outputPath string, opts ...Option) (*Publisher, error) {
	dir, name := filepath.Split(outputPath)
	if dir == "" {
		dir = "."
	}
	output, err := storage.NewFileStorage(dir)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		output:     output,
		outputName: name,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("report")
	return p, nil
}

func (p *Publisher) Publish(ctx context.Context, runID string, createdAt time.Time, r *models.Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}

	if err := p.output.UploadFile(ctx, p.outputName, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	p.logger.Info("report written", zap.String("run_id", runID), zap.String("path", p.outputName))

	if p.archive != nil {
		object := ArchiveObject(runID)
		if err := p.archive.UploadFile(ctx, object, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("archiving report: %w", err)
		}
		p.logger.Info("report archived", zap.String("object", object))
	}

	if p.sink != nil {
		if err := p.sink.Store(ctx, runID, createdAt, r); err != nil {
			return fmt.Errorf("storing report: %w", err)
		}
		p.logger.Info("report stored", zap.String("run_id", runID))
	}

	return nil
}
