// Package metrics provides Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts FCD history pages requested, by outcome.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mintprofit_fcd_pages_total",
		Help: "FCD transaction history pages fetched",
	}, []string{"status"})

	// TransactionsFetched counts raw transactions pulled from FCD.
	TransactionsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mintprofit_fcd_transactions_total",
		Help: "Raw transactions fetched from FCD",
	})

	// LimiterWaits counts page requests that had to wait for the rate limiter.
	LimiterWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mintprofit_limiter_waits_total",
		Help: "Page requests delayed by the inter-page limiter",
	})

	// CacheReads counts transaction cache lookups by result.
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mintprofit_cache_reads_total",
		Help: "Transaction cache lookups",
	}, []string{"result"})

	// TransactionsClassified counts classified transactions by kind.
	TransactionsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mintprofit_transactions_classified_total",
		Help: "Transactions classified as mint, sale or ignored",
	}, []string{"kind"})

	// SalesCorrelated counts sale records by attribution outcome.
	SalesCorrelated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mintprofit_sales_correlated_total",
		Help: "Marketplace sales checked against bot inventories",
	}, []string{"attributed"})

	// PriceLookups counts price oracle answers by source.
	PriceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mintprofit_price_lookups_total",
		Help: "Historical price lookups",
	}, []string{"source"})
)
