package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estensen/mint-profit-pipeline/internal/aggregator"
	"github.com/estensen/mint-profit-pipeline/internal/loader"
	"github.com/estensen/mint-profit-pipeline/internal/models"
	"github.com/estensen/mint-profit-pipeline/internal/parser"
	"github.com/estensen/mint-profit-pipeline/internal/price"
	"github.com/estensen/mint-profit-pipeline/internal/registry"
	"github.com/estensen/mint-profit-pipeline/internal/report"
	"github.com/estensen/mint-profit-pipeline/internal/storage"
	"github.com/estensen/mint-profit-pipeline/internal/testutil"
)

const (
	hellCats = "terra1uv9w7aaq6lu2kn0asnvknlcgg2xd5ts57ss7qt"
	bot      = "terra1bot"
	seller   = "terra1seller"
)

// fcdServer answers /v1/txs with one short page per account.
func fcdServer(t *testing.T, history map[string][]models.RawTransaction, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page := models.TxPage{Limit: 100, Txs: history[r.URL.Query().Get("account")]}
		if page.Txs == nil {
			page.Txs = []models.RawTransaction{}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(page))
	}))
}

func newPipeline(t *testing.T, fcdURL, cacheDir string, collections map[string]string) *Pipeline {
	t.Helper()
	reg, err := registry.New([]string{bot}, []string{seller}, collections)
	require.NoError(t, err)
	p, err := parser.New(parser.DefaultSchema(), reg, nil)
	require.NoError(t, err)
	store, err := storage.NewFileStorage(cacheDir)
	require.NoError(t, err)

	l := loader.New(loader.NewFCDClient(fcdURL, 5*time.Second), loader.NewPageLimiter(0))
	c := aggregator.NewCorrelator(price.NewStaticOracle(decimal.NewFromInt(100)), nil)
	return New(l, storage.NewTxCache(store, storage.DefaultCacheObject), reg, p, c, nil)
}

func sampleHistory() map[string][]models.RawTransaction {
	return map[string][]models.RawTransaction{
		bot: {
			testutil.MintTx("mint1", hellCats, []string{"7", "8"}, []string{"50000000uusd", "50000000uusd"}).Raw(),
		},
		seller: {
			testutil.SaleTx("sale1", hellCats, "uusd", "120000000", "7", "2022-01-15T08:30:00Z").Raw(),
		},
	}
}

func TestRunColdThenCached(t *testing.T) {
	var requests atomic.Int32
	server := fcdServer(t, sampleHistory(), &requests)
	defer server.Close()
	cacheDir := t.TempDir()

	p := newPipeline(t, server.URL, cacheDir, map[string]string{hellCats: "HellCats"})

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	assert.FileExists(t, filepath.Join(cacheDir, storage.DefaultCacheObject))

	assert.Equal(t, "100", first.FinalReport.TotalSpent.String())
	assert.Equal(t, "120", first.FinalReport.TotalEarned.String())
	assert.Equal(t, "20", first.FinalReport.Profit.String())
	assert.Equal(t, 2, first.FinalReport.TotalNFTsMinted)
	assert.Equal(t, 1, first.FinalReport.SoldNFTsCount)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load(), "cached run must not touch the network")

	a, err := report.Encode(first)
	require.NoError(t, err)
	b, err := report.Encode(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunUnknownCollectionAborts(t *testing.T) {
	var requests atomic.Int32
	server := fcdServer(t, sampleHistory(), &requests)
	defer server.Close()

	p := newPipeline(t, server.URL, t.TempDir(), map[string]string{"terra1other": "Other"})

	r, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, models.ErrLookup))
}

func TestRunNetworkFailureWritesNoCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()
	cacheDir := t.TempDir()

	p := newPipeline(t, server.URL, cacheDir, map[string]string{hellCats: "HellCats"})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNetwork))

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries, fmt.Sprintf("unexpected cache files: %v", entries))
}
