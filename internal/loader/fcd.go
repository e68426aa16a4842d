package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

const DefaultFCDURL = "https://fcd.terra.dev"

// PageFetcher returns one page of an address's transaction history.
// A nil offset requests the most recent page.
type PageFetcher interface {
	FetchPage(ctx context.Context, address string, offset *int64, limit int) (*models.TxPage, error)
}

// FCDClient reads the Terra FCD /v1/txs endpoint.
type FCDClient struct {
	baseURL   string
	fetchFunc func(ctx context.Context, url string) (*http.Response, error)
}

func NewFCDClient(baseURL string, timeout time.Duration) *FCDClient {
	if baseURL == "" {
		baseURL = DefaultFCDURL
	}
	client := &http.Client{Timeout: timeout}
	return &FCDClient{
		baseURL: baseURL,
		fetchFunc: func(ctx context.Context, u string) (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			return client.Do(req)
		},
	}
}

func buildTxsURL(baseURL, address string, offset *int64, limit int) string {
	params := url.Values{}
	params.Set("account", address)
	params.Set("limit", strconv.Itoa(limit))
	if offset != nil {
		params.Set("offset", strconv.FormatInt(*offset, 10))
	}
	return baseURL + "/v1/txs?" + params.Encode()
}

// FetchPage performs one page request. Every failure is an ErrNetwork.
func (c *FCDClient) FetchPage(ctx context.Context, address string, offset *int64, limit int) (*models.TxPage, error) {
	resp, err := c.fetchFunc(ctx, buildTxsURL(c.baseURL, address, offset, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: fetching txs for %s: %v", models.ErrNetwork, address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: FCD returned status %d for %s: %s", models.ErrNetwork, resp.StatusCode, address, string(body))
	}

	var page models.TxPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decoding txs page for %s: %v", models.ErrNetwork, address, err)
	}
	return &page, nil
}
