package utils

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

// FormatUST renders an amount with two decimals.
func FormatUST(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newTable(w io.Writer, title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(header)
	return t
}

// DisplayReport prints the report as console tables.
func DisplayReport(w io.Writer, r *models.Report) {
	if r == nil {
		fmt.Fprintln(w, "No report to display.")
		return
	}

	bots := newTable(w, "Bots minting report", table.Row{"Bot", "Collection", "Minted", "UST Spent"})
	for _, bot := range SortedKeys(r.BotsMintingReport) {
		report := r.BotsMintingReport[bot]
		if len(report.MintedNFTs) == 0 {
			continue
		}
		for _, name := range SortedKeys(report.MintedNFTs) {
			minted := report.MintedNFTs[name]
			bots.AppendRow(table.Row{bot, name, minted.MintedCount, FormatUST(minted.Spent)})
		}
		bots.AppendSeparator()
	}
	bots.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 4, Align: text.AlignRight},
	})
	bots.Render()

	sales := newTable(w, "Marketplace sales report", table.Row{"Seller", "Collection", "Sold", "UST Earned"})
	for _, seller := range SortedKeys(r.MarketplaceSalesReport) {
		report := r.MarketplaceSalesReport[seller]
		if report.SoldNFTsCount == 0 {
			continue
		}
		for _, name := range SortedKeys(report.SoldNFTs) {
			sold := report.SoldNFTs[name]
			sales.AppendRow(table.Row{seller, name, sold.SoldCount, FormatUST(sold.Earned)})
		}
		sales.AppendSeparator()
	}
	sales.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 4, Align: text.AlignRight},
	})
	sales.Render()

	perCollection := newTable(w, "Report per collection", table.Row{"Collection", "Minted", "UST Spent", "Sold", "UST Earned", "Profit UST"})
	for _, s := range r.ReportPerCollection {
		perCollection.AppendRow(table.Row{s.Collection, s.MintedCount, FormatUST(s.Spent), s.SoldCount, FormatUST(s.Earned), FormatUST(s.Profit)})
	}
	perCollection.Render()

	final := newTable(w, "Final report", table.Row{"Metric", "Value"})
	final.AppendRows([]table.Row{
		{"Total UST spent", FormatUST(r.FinalReport.TotalSpent)},
		{"Total UST earned", FormatUST(r.FinalReport.TotalEarned)},
		{"Total NFTs minted", r.FinalReport.TotalNFTsMinted},
		{"Sold NFTs", r.FinalReport.SoldNFTsCount},
		{"Total profit in UST", FormatUST(r.FinalReport.Profit)},
	})
	final.Render()
}
