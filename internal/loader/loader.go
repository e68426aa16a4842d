// Package loader retrieves complete transaction histories for tracked
// addresses, backed by an all-or-nothing durable cache.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/estensen/mint-profit-pipeline/internal/metrics"
	"github.com/estensen/mint-profit-pipeline/internal/models"
)

const (
	DefaultPageSize    = 100
	DefaultPageDelay   = 700 * time.Millisecond
	DefaultConcurrency = 2
)

// ErrCacheIncomplete is returned when the cached capture lacks a tracked address.
var ErrCacheIncomplete = errors.New("tx cache does not cover every tracked address")

// Waiter paces page requests.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Cache is the durable store for a full capture.
type Cache interface {
	Load(ctx context.Context) (models.TxCapture, bool, error)
	Save(ctx context.Context, capture models.TxCapture) error
}

// PageLimiter spaces page requests at a fixed interval across all workers.
type PageLimiter struct {
	limiter *rate.Limiter
}

func NewPageLimiter(delay time.Duration) *PageLimiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &PageLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next page request may go out, or ctx is done.
func (l *PageLimiter) Wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	metrics.LimiterWaits.Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

type HistoryLoader struct {
	fetcher     PageFetcher
	limiter     Waiter
	pageSize    int
	concurrency int
	logger      *zap.Logger
}

type Option func(*HistoryLoader)

func WithPageSize(n int) Option {
	return func(l *HistoryLoader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(l *HistoryLoader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *HistoryLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(fetcher PageFetcher, limiter Waiter, opts ...Option) *HistoryLoader {
	l := &HistoryLoader{
		fetcher:     fetcher,
		limiter:     limiter,
		pageSize:    DefaultPageSize,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.limiter == nil {
		l.limiter = NewPageLimiter(DefaultPageDelay)
	}
	l.logger = l.logger.Named("loader")
	return l
}

// LoadAddress pages through the full history of address, newest first,
// until a page comes back shorter than the window.
func (l *HistoryLoader) LoadAddress(ctx context.Context, address string) ([]models.RawTransaction, error) {
	log := l.logger.With(zap.String("address", address))
	log.Info("loading all txs")

	var (
		all    []models.RawTransaction
		offset *int64
	)
	for pageNr := 1; ; pageNr++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for page %d of %s: %w", pageNr, address, err)
		}

		log.Debug("loading txs page", zap.Int("page", pageNr))
		page, err := l.fetcher.FetchPage(ctx, address, offset, l.pageSize)
		if err != nil {
			metrics.PagesFetched.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
		metrics.PagesFetched.WithLabelValues("ok").Inc()
		metrics.TransactionsFetched.Add(float64(len(page.Txs)))

		all = append(all, page.Txs...)
		if len(page.Txs) < l.pageSize {
			break
		}
		// A full page must move the cursor, otherwise the same page repeats forever.
		if page.Next == 0 || (offset != nil && page.Next == *offset) {
			return nil, fmt.Errorf("%w: page %d of %s is full but has no next cursor (next=%d)", models.ErrNetwork, pageNr, address, page.Next)
		}
		next := page.Next
		offset = &next
	}

	log.Info("loaded txs", zap.Int("count", len(all)))
	return all, nil
}

// LoadAll loads every address with bounded concurrency. The first failure
// cancels the remaining loads and is returned.
func (l *HistoryLoader) LoadAll(ctx context.Context, addresses []string) (models.TxCapture, error) {
	var mu sync.Mutex
	capture := make(models.TxCapture, len(addresses))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, address := range addresses {
		g.Go(func() error {
			txs, err := l.LoadAddress(gCtx, address)
			if err != nil {
				return fmt.Errorf("loading history for %s: %w", address, err)
			}
			if txs == nil {
				txs = []models.RawTransaction{}
			}
			mu.Lock()
			capture[address] = txs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return capture, nil
}

// GetAllTransactions returns the cached capture when present, and otherwise
// loads every address and saves the complete capture before returning.
// Nothing is written when any load fails.
func (l *HistoryLoader) GetAllTransactions(ctx context.Context, cache Cache, addresses []string) (models.TxCapture, error) {
	capture, ok, err := cache.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading tx cache: %w", err)
	}
	if ok {
		l.logger.Info("txs cache located, loading txs from it", zap.Int("addresses", len(capture)))
		for _, address := range addresses {
			if _, found := capture[address]; !found {
				return nil, fmt.Errorf("%w: missing %s", ErrCacheIncomplete, address)
			}
		}
		return capture, nil
	}

	capture, err = l.LoadAll(ctx, addresses)
	if err != nil {
		return nil, err
	}
	if err := cache.Save(ctx, capture); err != nil {
		return nil, err
	}
	l.logger.Info("txs cache written", zap.Int("addresses", len(capture)))
	return capture, nil
}
