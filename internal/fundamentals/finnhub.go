// Package fundamentals fetches company research data from Finnhub.
package fundamentals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"humpday-trader/internal/api"
	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/store"
	"humpday-trader/internal/types"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

var ErrUnknownSymbol = errors.New("symbol not covered by provider")

type Params struct {
	APIKey        string
	BaseURL       string
	RatePerMinute float64
	Timeout       time.Duration
	// Cache holds profile, financials, insider and recommendation
	// responses. Quotes are never cached.
	Cache *Cache
}

func ParamsFromConfig(cfg *store.Config, apiKey string) Params {
	return Params{
		APIKey:        apiKey,
		BaseURL:       cfg.Finnhub.BaseURL,
		RatePerMinute: cfg.Finnhub.RatePerMinute,
		Timeout:       time.Duration(cfg.Alpaca.TimeoutSec) * time.Second,
		Cache:         NewCache(cfg.Finnhub.CacheDir, time.Duration(cfg.Finnhub.CacheTTLHours)*time.Hour),
	}
}

type Client struct {
	http  *api.Client
	key   string
	cache *Cache
}

var _ interfaces.Fundamentals = (*Client)(nil)

func New(p Params) (*Client, error) {
	if p.APIKey == "" {
		return nil, errors.New("finnhub: api key is required")
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.RatePerMinute <= 0 {
		p.RatePerMinute = 60
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return &Client{
		http: api.NewClient(
			api.WithBaseURL(p.BaseURL),
			api.WithTimeout(p.Timeout),
			api.WithRateLimit(p.RatePerMinute/60, 1),
			api.WithLogging(true),
		),
		key:   p.APIKey,
		cache: p.Cache,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("token", c.key)
	resp, err := c.http.Do(api.NewRequest(http.MethodGet, path).WithContext(ctx).WithQuery(q))
	if err != nil {
		return nil, fmt.Errorf("finnhub %s: %w", path, err)
	}
	return resp.Body, nil
}

// cached fetches path through the response cache and decodes it into out.
func (c *Client) cached(ctx context.Context, path string, q url.Values, out any) error {
	key := cacheKey(path, q.Encode())
	body, err := c.cache.GetOrFetch(key, func() ([]byte, error) {
		return c.get(ctx, path, q)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("finnhub %s: decode: %w", path, err)
	}
	return nil
}

func (c *Client) Quote(ctx context.Context, symbol string) (*types.Quote, error) {
	body, err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}
	var wire struct {
		types.Quote
		Unix int64 `json:"t"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("finnhub quote %s: decode: %w", symbol, err)
	}
	// unknown symbols come back as all zeros
	if wire.Current.IsZero() {
		return nil, fmt.Errorf("finnhub quote %s: %w", symbol, ErrUnknownSymbol)
	}
	q := wire.Quote
	q.Symbol = symbol
	if wire.Unix > 0 {
		q.Time = time.Unix(wire.Unix, 0)
	}
	return &q, nil
}

func (c *Client) Profile(ctx context.Context, symbol string) (*types.CompanyProfile, error) {
	var p types.CompanyProfile
	if err := c.cached(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) BasicFinancials(ctx context.Context, symbol string) (*types.BasicFinancials, error) {
	var resp struct {
		Symbol string                `json:"symbol"`
		Metric types.BasicFinancials `json:"metric"`
	}
	q := url.Values{"symbol": {symbol}, "metric": {"all"}}
	if err := c.cached(ctx, "/stock/metric", q, &resp); err != nil {
		return nil, err
	}
	resp.Metric.Symbol = symbol
	return &resp.Metric, nil
}

func (c *Client) InsiderTransactions(ctx context.Context, symbol string, from, to time.Time) ([]types.InsiderTransaction, error) {
	var resp struct {
		Data   []types.InsiderTransaction `json:"data"`
		Symbol string                     `json:"symbol"`
	}
	q := url.Values{
		"symbol": {symbol},
		"from":   {from.Format("2006-01-02")},
		"to":     {to.Format("2006-01-02")},
	}
	if err := c.cached(ctx, "/stock/insider-transactions", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) RecommendationTrends(ctx context.Context, symbol string) ([]types.RecommendationTrend, error) {
	var trends []types.RecommendationTrend
	if err := c.cached(ctx, "/stock/recommendation", url.Values{"symbol": {symbol}}, &trends); err != nil {
		return nil, err
	}
	return trends, nil
}

