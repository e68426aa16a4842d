package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

func TestFormatUST(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0", "0.00"},
		{"120", "120.00"},
		{"0.000001", "0.00"},
		{"-115.555", "-115.56"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatUST(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}

func TestDisplayReport(t *testing.T) {
	r := &models.Report{
		BotsMintingReport: map[string]models.BotMintReport{
			"terra1bot": {
				MintedNFTs: map[string]*models.CollectionMint{
					"HellCats": {TokenIDs: []string{"7", "8"}, MintedCount: 2, Spent: decimal.NewFromInt(100)},
				},
				MintedNFTsCount: 2,
				TotalSpent:      decimal.NewFromInt(100),
			},
		},
		MarketplaceSalesReport: map[string]models.SaleReport{
			"terra1seller": {
				SoldNFTs: map[string]*models.CollectionSales{
					"HellCats": {Earned: decimal.NewFromInt(120), SoldCount: 1, SoldTokenIDs: []string{"7"}},
				},
				SoldNFTsCount: 1,
				TotalEarned:   decimal.NewFromInt(120),
			},
		},
		ReportPerCollection: []models.CollectionSummary{
			{Collection: "HellCats", MintedCount: 2, Spent: decimal.NewFromInt(100), SoldCount: 1, Earned: decimal.NewFromInt(120), Profit: decimal.NewFromInt(20)},
		},
		FinalReport: models.FinalReport{
			TotalSpent:      decimal.NewFromInt(100),
			TotalEarned:     decimal.NewFromInt(120),
			TotalNFTsMinted: 2,
			SoldNFTsCount:   1,
			Profit:          decimal.NewFromInt(20),
		},
	}

	var buf bytes.Buffer
	DisplayReport(&buf, r)
	out := strings.ToLower(buf.String())

	for _, want := range []string{"bots minting report", "terra1bot", "terra1seller", "hellcats", "120.00", "total profit in ust", "20.00"} {
		assert.True(t, strings.Contains(out, want), "missing %q in output", want)
	}

	buf.Reset()
	DisplayReport(&buf, nil)
	assert.Equal(t, "No report to display.\n", buf.String())
}
