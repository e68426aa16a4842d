package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/metrics"
	"github.com/estensen/mint-profit-pipeline/internal/models"
	"github.com/estensen/mint-profit-pipeline/internal/price"
	"github.com/estensen/mint-profit-pipeline/internal/token"
)

// Correlator attributes marketplace sales to items the bots minted.
type Correlator struct {
	oracle price.Oracle
	logger *zap.Logger
}

func NewCorrelator(oracle price.Oracle, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{
		oracle: oracle,
		logger: logger.Named("sales"),
	}
}

// stableValue converts a sale amount into UST at the time of sale.
func (c *Correlator) stableValue(ctx context.Context, rec models.SaleRecord) (decimal.Decimal, error) {
	if token.IsStable(rec.Denom) {
		return rec.Amount, nil
	}
	unitPrice, err := c.oracle.PriceAt(ctx, rec.Denom, time.UnixMilli(rec.TimestampMs).UTC())
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing sale tx %s in %s: %w", rec.TxHash, rec.Denom, err)
	}
	return rec.Amount.Mul(unitPrice), nil
}

func mintedByBots(botReports map[string]models.BotMintReport, collection, tokenID string) bool {
	for _, r := range botReports {
		if r.HasToken(collection, tokenID) {
			return true
		}
	}
	return false
}

// Correlate builds one address's sale report. Sales of items that no bot
// minted are dropped.
func (c *Correlator) Correlate(ctx context.Context, records []models.SaleRecord, botReports map[string]models.BotMintReport) (models.SaleReport, error) {
	report := models.SaleReport{
		SoldNFTs:    make(map[string]*models.CollectionSales),
		TotalEarned: decimal.Zero,
	}

	for _, rec := range records {
		if !mintedByBots(botReports, rec.Collection, rec.TokenID) {
			metrics.SalesCorrelated.WithLabelValues("false").Inc()
			c.logger.Debug("sale not minted by bots",
				zap.String("tx", rec.TxHash),
				zap.String("collection", rec.Collection),
				zap.String("token_id", rec.TokenID))
			continue
		}
		metrics.SalesCorrelated.WithLabelValues("true").Inc()

		earned, err := c.stableValue(ctx, rec)
		if err != nil {
			return models.SaleReport{}, err
		}

		entry, ok := report.SoldNFTs[rec.Collection]
		if !ok {
			entry = &models.CollectionSales{Earned: decimal.Zero, SoldTokenIDs: []string{}}
			report.SoldNFTs[rec.Collection] = entry
		}
		entry.Earned = entry.Earned.Add(earned)
		entry.SoldCount++
		entry.SoldTokenIDs = append(entry.SoldTokenIDs, rec.TokenID)

		report.SoldNFTsCount++
		report.TotalEarned = report.TotalEarned.Add(earned)
	}

	return report, nil
}

// BuildMarketplaceSalesReport extracts the sales of every tracked address and
// correlates them against the bots' combined inventory.
func (c *Correlator) BuildMarketplaceSalesReport(ctx context.Context, ex Extractor, book AddressBook, capture models.TxCapture, botReports map[string]models.BotMintReport) (map[string]models.SaleReport, error) {
	reports := make(map[string]models.SaleReport, len(book.AllAddresses()))

	for _, address := range book.AllAddresses() {
		var records []models.SaleRecord
		for _, raw := range capture[address] {
			dec, err := ex.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("classifying tx of %s: %w", address, err)
			}
			if dec.Kind() != models.KindSale {
				continue
			}
			metrics.TransactionsClassified.WithLabelValues(dec.Kind().String()).Inc()

			rec, err := ex.SaleFrom(dec)
			if err != nil {
				return nil, fmt.Errorf("address %s: %w", address, err)
			}
			records = append(records, rec)
		}

		report, err := c.Correlate(ctx, records, botReports)
		if err != nil {
			return nil, fmt.Errorf("address %s: %w", address, err)
		}
		c.logger.Debug("sales report",
			zap.String("address", address),
			zap.Int("sold", report.SoldNFTsCount),
			zap.String("earned", report.TotalEarned.String()))
		reports[address] = report
	}

	return reports, nil
}
