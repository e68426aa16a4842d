package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

// RunBatch records the headline numbers of one pipeline run.
type RunBatch struct {
	Conn clickhouse.Conn
}

func NewRunBatch(conn clickhouse.Conn) *RunBatch {
	return &RunBatch{Conn: conn}
}

// Insert appends a run row unless the run id was already stored.
func (b *RunBatch) Insert(ctx context.Context, runID string, createdAt time.Time, final models.FinalReport) error {
	var count uint64
	if err := b.Conn.QueryRow(ctx, "SELECT COUNT(*) FROM mint_profit_runs WHERE run_id = ?", runID).Scan(&count); err != nil {
		return fmt.Errorf("error querying ClickHouse: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("run %s already stored, skipping batch insertion", runID)
	}

	batch, err := b.Conn.PrepareBatch(ctx, "INSERT INTO mint_profit_runs (run_id, created_at, total_ust_spent, total_ust_earned, total_nfts_minted, sold_nfts_count, total_profit_in_ust)")
	if err != nil {
		return fmt.Errorf("error preparing ClickHouse batch: %w", err)
	}
	if err := batch.Append(runRow(runID, createdAt, final)...); err != nil {
		return fmt.Errorf("error appending to ClickHouse batch: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("error sending batch to ClickHouse: %w", err)
	}
	return nil
}

func runRow(runID string, createdAt time.Time, final models.FinalReport) []any {
	return []any{
		runID,
		createdAt.UTC(),
		final.TotalSpent,
		final.TotalEarned,
		uint64(final.TotalNFTsMinted),
		uint64(final.SoldNFTsCount),
		final.Profit,
	}
}
