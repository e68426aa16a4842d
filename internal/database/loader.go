package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

// ClickHouseLoader loads per-collection report rows into ClickHouse.
type ClickHouseLoader struct {
	Conn clickhouse.Conn
}

func NewClickHouseLoader(conn clickhouse.Conn) *ClickHouseLoader {
	return &ClickHouseLoader{
		Conn: conn,
	}
}

// Load inserts the per-collection summaries of one run.
func (l *ClickHouseLoader) Load(ctx context.Context, runID string, data []models.CollectionSummary) error {
	batch, err := l.Conn.PrepareBatch(ctx, "INSERT INTO mint_profit_collections (run_id, collection, minted_count, ust_spent, sold_count, ust_earned, profit_in_ust)")
	if err != nil {
		return fmt.Errorf("error preparing ClickHouse batch: %w", err)
	}

	for _, record := range data {
		if err := batch.Append(collectionRow(runID, record)...); err != nil {
			return fmt.Errorf("error appending to ClickHouse batch: %w", err)
		}
	}

	return batch.Send()
}

func collectionRow(runID string, s models.CollectionSummary) []any {
	return []any{
		runID,
		s.Collection,
		uint64(s.MintedCount),
		s.Spent,
		uint64(s.SoldCount),
		s.Earned,
		s.Profit,
	}
}

// ReportSink stores a full report as one run row plus its collection rows.
type ReportSink struct {
	runs        *RunBatch
	collections *ClickHouseLoader
}

func NewReportSink(conn clickhouse.Conn) *ReportSink {
	return &ReportSink{
		runs:        NewRunBatch(conn),
		collections: NewClickHouseLoader(conn),
	}
}

func (s *ReportSink) Store(ctx context.Context, runID string, createdAt time.Time, report *models.Report) error {
	if err := s.runs.Insert(ctx, runID, createdAt, report.FinalReport); err != nil {
		return err
	}
	if err := s.collections.Load(ctx, runID, report.ReportPerCollection); err != nil {
		return fmt.Errorf("loading collections of run %s: %w", runID, err)
	}
	return nil
}
