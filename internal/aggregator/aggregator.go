package aggregator

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/metrics"
	"github.com/estensen/mint-profit-pipeline/internal/models"
	"github.com/estensen/mint-profit-pipeline/internal/parser"
)

// Extractor decodes and classifies a raw transaction once, then pulls mint
// and sale records out of the decoded form.
type Extractor interface {
	Decode(raw models.RawTransaction) (*parser.Decoded, error)
	MintFrom(d *parser.Decoded) (models.MintRecord, error)
	SaleFrom(d *parser.Decoded) (models.SaleRecord, error)
}

// AddressBook lists the tracked addresses.
type AddressBook interface {
	BotAddresses() []string
	AllAddresses() []string
}

// AggregateMints folds mint records into one bot's inventory. Token ids are
// appended in record order and never de-duplicated.
func AggregateMints(records []models.MintRecord) models.BotMintReport {
	report := models.BotMintReport{
		MintedNFTs: make(map[string]*models.CollectionMint),
		TotalSpent: decimal.Zero,
	}

	for _, rec := range records {
		entry, ok := report.MintedNFTs[rec.Collection]
		if !ok {
			entry = &models.CollectionMint{
				ContractAddress: rec.ContractAddress,
				TokenIDs:        []string{},
				Spent:           decimal.Zero,
			}
			report.MintedNFTs[rec.Collection] = entry
		}
		entry.TokenIDs = append(entry.TokenIDs, rec.TokenIDs...)
		entry.MintedCount += rec.MintedCount
		entry.Spent = entry.Spent.Add(rec.Spent)

		report.MintedNFTsCount += rec.MintedCount
		report.TotalSpent = report.TotalSpent.Add(rec.Spent)
	}

	return report
}

// BuildBotsMintingReport extracts and aggregates the mints of every bot address.
// Mint transactions of non-bot addresses are never looked at.
func BuildBotsMintingReport(ctx context.Context, ex Extractor, book AddressBook, capture models.TxCapture, logger *zap.Logger) (map[string]models.BotMintReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mints")

	reports := make(map[string]models.BotMintReport, len(book.BotAddresses()))
	for _, bot := range book.BotAddresses() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var records []models.MintRecord
		for _, raw := range capture[bot] {
			dec, err := ex.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("classifying tx of bot %s: %w", bot, err)
			}
			if dec.Kind() != models.KindMint {
				continue
			}
			metrics.TransactionsClassified.WithLabelValues(dec.Kind().String()).Inc()

			rec, err := ex.MintFrom(dec)
			if err != nil {
				return nil, fmt.Errorf("bot %s: %w", bot, err)
			}
			records = append(records, rec)
		}

		report := AggregateMints(records)
		logger.Debug("bot minting report",
			zap.String("bot", bot),
			zap.Int("minted", report.MintedNFTsCount),
			zap.String("spent", report.TotalSpent.String()))
		reports[bot] = report
	}

	return reports, nil
}

// Rollup sums every bot's spend and every address's attributed earnings.
func Rollup(botReports map[string]models.BotMintReport, saleReports map[string]models.SaleReport) models.FinalReport {
	final := models.FinalReport{
		TotalSpent:  decimal.Zero,
		TotalEarned: decimal.Zero,
	}

	for _, r := range botReports {
		final.TotalSpent = final.TotalSpent.Add(r.TotalSpent)
		final.TotalNFTsMinted += r.MintedNFTsCount
	}
	for _, r := range saleReports {
		final.TotalEarned = final.TotalEarned.Add(r.TotalEarned)
		final.SoldNFTsCount += r.SoldNFTsCount
	}
	final.Profit = final.TotalEarned.Sub(final.TotalSpent)

	return final
}

// PerCollection rolls mints and attributed sales up by collection name,
// sorted by name.
func PerCollection(botReports map[string]models.BotMintReport, saleReports map[string]models.SaleReport) []models.CollectionSummary {
	byName := make(map[string]*models.CollectionSummary)
	get := func(name string) *models.CollectionSummary {
		s, ok := byName[name]
		if !ok {
			s = &models.CollectionSummary{Collection: name, Spent: decimal.Zero, Earned: decimal.Zero}
			byName[name] = s
		}
		return s
	}

	for _, r := range botReports {
		for name, minted := range r.MintedNFTs {
			s := get(name)
			s.MintedCount += minted.MintedCount
			s.Spent = s.Spent.Add(minted.Spent)
		}
	}
	for _, r := range saleReports {
		for name, sold := range r.SoldNFTs {
			s := get(name)
			s.SoldCount += sold.SoldCount
			s.Earned = s.Earned.Add(sold.Earned)
		}
	}

	summaries := make([]models.CollectionSummary, 0, len(byName))
	for _, s := range byName {
		s.Profit = s.Earned.Sub(s.Spent)
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Collection < summaries[j].Collection
	})

	return summaries
}
