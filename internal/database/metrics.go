package database

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

type collectionRecord struct {
	Collection  string          `ch:"collection"`
	MintedCount uint64          `ch:"minted_count"`
	Spent       decimal.Decimal `ch:"ust_spent"`
	SoldCount   uint64          `ch:"sold_count"`
	Earned      decimal.Decimal `ch:"ust_earned"`
	Profit      decimal.Decimal `ch:"profit_in_ust"`
}

func (r collectionRecord) summary() models.CollectionSummary {
	return models.CollectionSummary{
		Collection:  r.Collection,
		MintedCount: int(r.MintedCount),
		Spent:       r.Spent,
		SoldCount:   int(r.SoldCount),
		Earned:      r.Earned,
		Profit:      r.Profit,
	}
}

// FetchCollectionMetrics retrieves the per-collection rows stored for runID.
func FetchCollectionMetrics(ctx context.Context, conn clickhouse.Conn, runID string) ([]models.CollectionSummary, error) {
	var records []collectionRecord
	query := `
        SELECT
            collection,
            minted_count,
            ust_spent,
            sold_count,
            ust_earned,
            profit_in_ust
        FROM mint_profit_collections
        WHERE run_id = ?
        ORDER BY collection
        `

	if err := conn.Select(ctx, &records, query, runID); err != nil {
		return nil, fmt.Errorf("error executing query '%s': %w", query, err)
	}

	summaries := make([]models.CollectionSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, r.summary())
	}
	return summaries, nil
}

// FetchLatestRunID returns the id of the most recently stored run.
func FetchLatestRunID(ctx context.Context, conn clickhouse.Conn) (string, error) {
	var runID string
	err := conn.QueryRow(ctx, "SELECT run_id FROM mint_profit_runs ORDER BY created_at DESC LIMIT 1").Scan(&runID)
	if err != nil {
		return "", fmt.Errorf("error fetching latest run: %w", err)
	}
	return runID, nil
}

// CollectionReader serves stored per-collection rows to the read API.
type CollectionReader struct {
	Conn clickhouse.Conn
}

func (r *CollectionReader) FetchCollections(ctx context.Context, runID string) ([]models.CollectionSummary, error) {
	return FetchCollectionMetrics(ctx, r.Conn, runID)
}

func (r *CollectionReader) LatestRunID(ctx context.Context) (string, error) {
	return FetchLatestRunID(ctx, r.Conn)
}
