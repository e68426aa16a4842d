package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RawTransaction is a single FCD transaction kept byte-for-byte as fetched.
// It is decoded into a typed view only at extraction time.
type RawTransaction = json.RawMessage

// TxCapture maps a tracked address to its full, ordered transaction history.
type TxCapture map[string][]RawTransaction

// TxPage is one page returned by the FCD /v1/txs endpoint.
type TxPage struct {
	Next  int64            `json:"next"`
	Limit int              `json:"limit"`
	Txs   []RawTransaction `json:"txs"`
}

// TxKind is the semantic category of a transaction.
type TxKind int

const (
	KindIgnored TxKind = iota
	KindMint
	KindSale
)

func (k TxKind) String() string {
	switch k {
	case KindMint:
		return "mint"
	case KindSale:
		return "sale"
	default:
		return "ignored"
	}
}

// MintRecord is extracted from one successful random_mint transaction.
type MintRecord struct {
	TxHash          string
	ContractAddress string
	Collection      string
	TokenIDs        []string
	MintedCount     int
	Spent           decimal.Decimal
}

// SaleRecord is extracted from one successful execute_order transaction.
type SaleRecord struct {
	TxHash          string
	ContractAddress string
	Collection      string
	TokenID         string
	Denom           string
	Amount          decimal.Decimal
	TimestampMs     int64
}

// CollectionMint is the inventory a single bot minted from one collection.
type CollectionMint struct {
	ContractAddress string          `json:"nftContractAddress"`
	TokenIDs        []string        `json:"tokenIds"`
	MintedCount     int             `json:"mintedCount"`
	Spent           decimal.Decimal `json:"ustSpent"`
}

// BotMintReport is keyed by collection display name.
type BotMintReport struct {
	MintedNFTs      map[string]*CollectionMint `json:"mintedNFTs"`
	MintedNFTsCount int                        `json:"mintedNFTsCount"`
	TotalSpent      decimal.Decimal            `json:"totalUstSpent"`
}

// HasToken reports whether tokenID was minted into the named collection.
func (r BotMintReport) HasToken(collection, tokenID string) bool {
	entry, ok := r.MintedNFTs[collection]
	if !ok {
		return false
	}
	for _, id := range entry.TokenIDs {
		if id == tokenID {
			return true
		}
	}
	return false
}

type CollectionSales struct {
	Earned       decimal.Decimal `json:"ustEarnedFromSales"`
	SoldCount    int             `json:"soldNftsCount"`
	SoldTokenIDs []string        `json:"soldTokenIds"`
}

// SaleReport holds the attributed marketplace sales of one address.
type SaleReport struct {
	SoldNFTs      map[string]*CollectionSales `json:"soldNfts"`
	SoldNFTsCount int                         `json:"soldNftsCount"`
	TotalEarned   decimal.Decimal             `json:"ustEarnedFromSales"`
}

// CollectionSummary rolls mints and sales up per collection.
type CollectionSummary struct {
	Collection  string          `json:"collection"`
	MintedCount int             `json:"mintedCount"`
	Spent       decimal.Decimal `json:"ustSpent"`
	SoldCount   int             `json:"soldCount"`
	Earned      decimal.Decimal `json:"ustEarned"`
	Profit      decimal.Decimal `json:"profitInUst"`
}

type FinalReport struct {
	TotalSpent      decimal.Decimal `json:"totalUstSpent"`
	TotalEarned     decimal.Decimal `json:"totalUstEarned"`
	TotalNFTsMinted int             `json:"totalNftsMinted"`
	SoldNFTsCount   int             `json:"soldNftsCount"`
	Profit          decimal.Decimal `json:"totalProfitInUST"`
}

// Report is the single document produced by one pipeline run.
type Report struct {
	BotsMintingReport      map[string]BotMintReport `json:"botsMintingReport"`
	MarketplaceSalesReport map[string]SaleReport    `json:"marketplaceSalesReport"`
	ReportPerCollection    []CollectionSummary      `json:"reportPerCollection"`
	FinalReport            FinalReport              `json:"finalReport"`
}
