// Package token parses Terra coin strings and knows the decimal scale and
// price-feed identity of each supported denom.
package token

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

const (
	// StableDenom is the ledger's stable-asset unit. All report amounts are in it.
	StableDenom = "uusd"
	// Decimals is shared by uusd and uluna.
	Decimals = 6
)

type denomInfo struct {
	coinID string
	stable bool
}

var denoms = map[string]denomInfo{
	"uusd":  {coinID: "terrausd", stable: true},
	"uluna": {coinID: "terra-luna"},
}

// NormalizeDenom lower-cases and trims a denom like " UUSD".
func NormalizeDenom(denom string) string {
	return strings.ToLower(strings.TrimSpace(denom))
}

// IsStable reports whether denom is the stable unit.
func IsStable(denom string) bool {
	info, ok := denoms[NormalizeDenom(denom)]
	return ok && info.stable
}

// CoinID returns the CoinGecko identifier for denom.
func CoinID(denom string) (string, bool) {
	info, ok := denoms[NormalizeDenom(denom)]
	if !ok {
		return "", false
	}
	return info.coinID, true
}

// ScaleRawAmount converts an integer micro-unit string into whole units,
// e.g. "120000000" -> 120.
func ScaleRawAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, &models.SchemaError{Field: "amount", Reason: "empty amount"}
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return decimal.Zero, &models.SchemaError{Field: "amount", Reason: fmt.Sprintf("not an integer amount: %q", raw)}
		}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &models.SchemaError{Field: "amount", Reason: fmt.Sprintf("parse %q: %v", raw, err)}
	}
	return amount.Shift(-Decimals), nil
}

// ParseCoin splits "<integer><denom>" and scales the integer part.
// For example "99200000uusd" yields 99.2 and "uusd".
func ParseCoin(coin string) (decimal.Decimal, string, error) {
	i := 0
	for i < len(coin) && coin[i] >= '0' && coin[i] <= '9' {
		i++
	}
	if i == 0 {
		return decimal.Zero, "", &models.SchemaError{Field: "coin", Reason: fmt.Sprintf("missing amount in %q", coin)}
	}
	denom := coin[i:]
	if _, ok := denoms[denom]; !ok {
		return decimal.Zero, "", &models.SchemaError{Field: "coin", Reason: fmt.Sprintf("unrecognized denom %q in %q", denom, coin)}
	}
	amount, err := ScaleRawAmount(coin[:i])
	if err != nil {
		return decimal.Zero, "", err
	}
	return amount, denom, nil
}

// ParseStableAmount is ParseCoin restricted to the stable unit.
func ParseStableAmount(coin string) (decimal.Decimal, error) {
	if !strings.HasSuffix(coin, StableDenom) {
		return decimal.Zero, &models.SchemaError{Field: "coin", Reason: fmt.Sprintf("not a valid UST amount string: %q", coin)}
	}
	amount, _, err := ParseCoin(coin)
	return amount, err
}
