package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/metrics"
	"github.com/estensen/mint-profit-pipeline/internal/token"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Predefined errors for better error handling.
var (
	ErrHTTPResponse      = errors.New("error in HTTP response")
	ErrInvalidResponse   = errors.New("invalid CoinGecko response")
	ErrMissingMarketData = errors.New("missing market data in CoinGecko response")
	ErrMissingUSDPrice   = errors.New("missing USD price in CoinGecko response")
	ErrUnknownDenom      = errors.New("no price feed for denom")
)

// Oracle returns the unit price of a non-stable denom in the stable unit
// at a point in time.
type Oracle interface {
	PriceAt(ctx context.Context, denom string, at time.Time) (decimal.Decimal, error)
}

// CoinAPI defines the interface for fetching historical price data.
type CoinAPI interface {
	GetHistoricalPrice(ctx context.Context, coinID string, date time.Time) (decimal.Decimal, error)
	GetHistoricalPrices(ctx context.Context, coinIDs []string, date time.Time) (map[string]decimal.Decimal, error)
}

type memoKey struct {
	coinID string
	day    string
}

// CoinGeckoAPI implements CoinAPI and Oracle using daily CoinGecko history.
type CoinGeckoAPI struct {
	baseURL   string
	fetchFunc func(ctx context.Context, url string) (*http.Response, error)
	logger    *zap.Logger

	mu   sync.Mutex
	memo map[memoKey]decimal.Decimal
}

// NewCoinGeckoAPI creates a new instance of CoinGeckoAPI. An empty baseURL
// selects the public API.
func NewCoinGeckoAPI(baseURL string, logger *zap.Logger) *CoinGeckoAPI {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoinGeckoAPI{
		baseURL:   baseURL,
		fetchFunc: fetchResponse,
		logger:    logger.Named("coingecko"),
		memo:      make(map[memoKey]decimal.Decimal),
	}
}

// PriceAt resolves denom to a CoinGecko id and returns its USD price on the
// UTC day containing at.
func (c *CoinGeckoAPI) PriceAt(ctx context.Context, denom string, at time.Time) (decimal.Decimal, error) {
	coinID, ok := token.CoinID(denom)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownDenom, denom)
	}
	return c.GetHistoricalPrice(ctx, coinID, at)
}

// GetHistoricalPrice fetches the historical USD price of a cryptocurrency for a given date.
func (c *CoinGeckoAPI) GetHistoricalPrice(ctx context.Context, coinID string, date time.Time) (decimal.Decimal, error) {
	key := memoKey{coinID: coinID, day: date.UTC().Format("2006-01-02")}

	c.mu.Lock()
	if p, ok := c.memo[key]; ok {
		c.mu.Unlock()
		metrics.PriceLookups.WithLabelValues("memo").Inc()
		return p, nil
	}
	c.mu.Unlock()

	url := buildCoinGeckoURL(c.baseURL, coinID, date)
	resp, err := c.fetchFunc(ctx, url)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	p, err := parsePriceFromResponse(resp)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price for %s on %s: %w", coinID, key.day, err)
	}
	metrics.PriceLookups.WithLabelValues("coingecko").Inc()
	c.logger.Debug("fetched historical price",
		zap.String("coin", coinID),
		zap.String("day", key.day),
		zap.String("usd", p.String()),
	)

	c.mu.Lock()
	c.memo[key] = p
	c.mu.Unlock()

	return p, nil
}

// GetHistoricalPrices fetches the historical USD prices of multiple cryptocurrencies for a given date.
func (c *CoinGeckoAPI) GetHistoricalPrices(ctx context.Context, coinIDs []string, date time.Time) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(coinIDs))
	for _, coinID := range coinIDs {
		p, err := c.GetHistoricalPrice(ctx, coinID, date)
		if err != nil {
			return nil, fmt.Errorf("error fetching price for coin %s: %w", coinID, err)
		}
		prices[coinID] = p
	}
	return prices, nil
}

// buildCoinGeckoURL constructs the API URL for fetching historical price data.
func buildCoinGeckoURL(baseURL, coinID string, date time.Time) string {
	formattedDate := date.UTC().Format("02-01-2006")
	return fmt.Sprintf("%s/coins/%s/history?date=%s&localization=false", baseURL, coinID, formattedDate)
}

// fetchResponse performs an HTTP GET request and returns the response.
func fetchResponse(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building CoinGecko request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching price from CoinGecko: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: received non-OK status code: %d", ErrHTTPResponse, resp.StatusCode)
	}

	return resp, nil
}

// parsePriceFromResponse extracts the USD price from the CoinGecko API response.
func parsePriceFromResponse(resp *http.Response) (decimal.Decimal, error) {
	if resp.Body == nil {
		return decimal.Zero, fmt.Errorf("%w: response body is empty", ErrInvalidResponse)
	}

	var result map[string]any
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	if err := decoder.Decode(&result); err != nil {
		return decimal.Zero, fmt.Errorf("%w: error decoding response body", ErrInvalidResponse)
	}

	// Check if the "market_data" field is present
	marketData, ok := result["market_data"].(map[string]any)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: market_data field not found", ErrMissingMarketData)
	}

	currentPrice, ok := marketData["current_price"].(map[string]any)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: current_price field not found", ErrMissingMarketData)
	}

	usd, ok := currentPrice["usd"].(json.Number)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: USD price not found or invalid", ErrMissingUSDPrice)
	}
	usdPrice, err := decimal.NewFromString(usd.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: USD price not found or invalid", ErrMissingUSDPrice)
	}

	if !usdPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: USD price must be positive", ErrMissingUSDPrice)
	}

	return usdPrice, nil
}

// StaticOracle answers every lookup with the same unit price.
type StaticOracle struct {
	Price decimal.Decimal
}

func NewStaticOracle(price decimal.Decimal) *StaticOracle {
	return &StaticOracle{Price: price}
}

func (s *StaticOracle) PriceAt(_ context.Context, denom string, _ time.Time) (decimal.Decimal, error) {
	if _, ok := token.CoinID(denom); !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownDenom, denom)
	}
	metrics.PriceLookups.WithLabelValues("static").Inc()
	return s.Price, nil
}
