package database

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// NewClickHouseConnection opens and pings a ClickHouse connection.
func NewClickHouseConnection(ctx context.Context, opts Options, logger *zap.Logger) (clickhouse.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ClickHouse ping failed: %w", err)
	}

	logger.Info("connected to ClickHouse", zap.String("addr", opts.Addr))
	return conn, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS mint_profit_runs (
		run_id String,
		created_at DateTime64(3, 'UTC'),
		total_ust_spent Decimal(38, 6),
		total_ust_earned Decimal(38, 6),
		total_nfts_minted UInt64,
		sold_nfts_count UInt64,
		total_profit_in_ust Decimal(38, 6)
	) ENGINE = MergeTree ORDER BY (created_at, run_id)`,
	`CREATE TABLE IF NOT EXISTS mint_profit_collections (
		run_id String,
		collection String,
		minted_count UInt64,
		ust_spent Decimal(38, 6),
		sold_count UInt64,
		ust_earned Decimal(38, 6),
		profit_in_ust Decimal(38, 6)
	) ENGINE = MergeTree ORDER BY (run_id, collection)`,
}

// EnsureSchema creates the report tables when they are missing.
func EnsureSchema(ctx context.Context, conn clickhouse.Conn) error {
	for _, stmt := range schema {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("error creating report tables: %w", err)
		}
	}
	return nil
}
