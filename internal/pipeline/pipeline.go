// Package pipeline runs the mint-and-profit analysis end to end.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/aggregator"
	"github.com/estensen/mint-profit-pipeline/internal/loader"
	"github.com/estensen/mint-profit-pipeline/internal/models"
	"github.com/estensen/mint-profit-pipeline/internal/registry"
)

type Pipeline struct {
	loader     *loader.HistoryLoader
	cache      loader.Cache
	registry   *registry.Registry
	extractor  aggregator.Extractor
	correlator *aggregator.Correlator
	logger     *zap.Logger
}

func New(l *loader.HistoryLoader, cache loader.Cache, reg *registry.Registry, ex aggregator.Extractor, c *aggregator.Correlator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		loader:     l,
		cache:      cache,
		registry:   reg,
		extractor:  ex,
		correlator: c,
		logger:     logger.Named("pipeline"),
	}
}

// Run produces one report. Any failure aborts the run and no partial report
// is returned.
func (p *Pipeline) Run(ctx context.Context) (*models.Report, error) {
	start := time.Now()

	capture, err := p.loader.GetAllTransactions(ctx, p.cache, p.registry.AllAddresses())
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	bots, err := aggregator.BuildBotsMintingReport(ctx, p.extractor, p.registry, capture, p.logger)
	if err != nil {
		return nil, fmt.Errorf("building bots minting report: %w", err)
	}

	sales, err := p.correlator.BuildMarketplaceSalesReport(ctx, p.extractor, p.registry, capture, bots)
	if err != nil {
		return nil, fmt.Errorf("building marketplace sales report: %w", err)
	}

	report := &models.Report{
		BotsMintingReport:      bots,
		MarketplaceSalesReport: sales,
		ReportPerCollection:    aggregator.PerCollection(bots, sales),
		FinalReport:            aggregator.Rollup(bots, sales),
	}

	p.logger.Info("report ready",
		zap.Int("minted", report.FinalReport.TotalNFTsMinted),
		zap.Int("sold", report.FinalReport.SoldNFTsCount),
		zap.String("profit_ust", report.FinalReport.Profit.String()),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}
