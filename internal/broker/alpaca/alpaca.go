// Package alpaca talks to the Alpaca trading and market data REST APIs.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"humpday-trader/internal/api"
	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/store"
	"humpday-trader/internal/types"
)

const (
	PaperURL = "https://paper-api.alpaca.markets"
	LiveURL  = "https://api.alpaca.markets"
	DataURL  = "https://data.alpaca.markets"

	headerKeyID  = "APCA-API-KEY-ID"
	headerSecret = "APCA-API-SECRET-KEY"
)

type Params struct {
	AccountType    types.AccountType
	KeyID          string
	SecretKey      string
	TradingURL     string
	DataURL        string
	LatestFeed     string
	HistoricalFeed string
	// Location is the exchange time zone used for session times.
	Location *time.Location
	// OpenWindow is the first historical query window after the open.
	OpenWindow         time.Duration
	MaxCoverageQueries int
	RatePerSec         float64
	Timeout            time.Duration
	// DryRun simulates order submission without calling the API.
	DryRun bool
}

// ParamsFromConfig selects URLs for the configured account type.
func ParamsFromConfig(cfg *store.Config, keyID, secret string) (Params, error) {
	loc, err := time.LoadLocation(cfg.Rebalance.MarketTimezone)
	if err != nil {
		return Params{}, err
	}
	tradingURL := cfg.Alpaca.PaperURL
	if cfg.AccountType == types.AccountLive {
		tradingURL = cfg.Alpaca.LiveURL
	}
	return Params{
		AccountType:        cfg.AccountType,
		KeyID:              keyID,
		SecretKey:          secret,
		TradingURL:         tradingURL,
		DataURL:            cfg.Alpaca.DataURL,
		LatestFeed:         cfg.Alpaca.LatestFeed,
		HistoricalFeed:     cfg.Alpaca.HistFeed,
		Location:           loc,
		OpenWindow:         time.Duration(cfg.Rebalance.OpenWindowMinutes) * time.Minute,
		MaxCoverageQueries: cfg.Rebalance.MaxCoverageQueries,
		RatePerSec:         cfg.Alpaca.RatePerSec,
		Timeout:            time.Duration(cfg.Alpaca.TimeoutSec) * time.Second,
		DryRun:             cfg.DryRun,
	}, nil
}

// Client implements both gateways against one set of credentials.
type Client struct {
	p       Params
	trading *api.Client
	data    *api.Client
}

var (
	_ interfaces.TradingGateway = (*Client)(nil)
	_ interfaces.QuoteGateway   = (*Client)(nil)
)

func New(p Params) (*Client, error) {
	if p.KeyID == "" || p.SecretKey == "" {
		return nil, errors.New("alpaca: key id and secret are required")
	}
	if p.TradingURL == "" {
		p.TradingURL = PaperURL
		if p.AccountType == types.AccountLive {
			p.TradingURL = LiveURL
		}
	}
	if p.DataURL == "" {
		p.DataURL = DataURL
	}
	if p.LatestFeed == "" {
		p.LatestFeed = "iex"
	}
	if p.HistoricalFeed == "" {
		p.HistoricalFeed = "sip"
	}
	if p.Location == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			return nil, err
		}
		p.Location = loc
	}
	if p.OpenWindow <= 0 {
		p.OpenWindow = 10 * time.Minute
	}
	if p.MaxCoverageQueries <= 0 {
		p.MaxCoverageQueries = 100
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}

	opts := func(base string) []api.ClientOption {
		return []api.ClientOption{
			api.WithBaseURL(base),
			api.WithTimeout(p.Timeout),
			api.WithHeader(headerKeyID, p.KeyID),
			api.WithHeader(headerSecret, p.SecretKey),
			api.WithRateLimit(p.RatePerSec, 1),
			api.WithLogging(true),
		}
	}
	return &Client{
		p:       p,
		trading: api.NewClient(opts(p.TradingURL)...),
		data:    api.NewClient(opts(p.DataURL)...),
	}, nil
}

func (c *Client) GetAccount(ctx context.Context) (*types.Account, error) {
	var acct types.Account
	if err := c.trading.GetJSON(ctx, "/v2/account", nil, &acct); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

func (c *Client) GetAllPositions(ctx context.Context) ([]types.BrokerPosition, error) {
	var positions []types.BrokerPosition
	if err := c.trading.GetJSON(ctx, "/v2/positions", nil, &positions); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	return positions, nil
}

type stopLossBody struct {
	StopPrice decimal.Decimal `json:"stop_price"`
}

type orderBody struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	Side          types.Side      `json:"side"`
	Type          types.OrderType `json:"type"`
	TimeInForce   string          `json:"time_in_force"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	OrderClass    string          `json:"order_class,omitempty"`
	StopLoss      *stopLossBody   `json:"stop_loss,omitempty"`
}

func newOrderBody(req types.OrderRequest) orderBody {
	body := orderBody{
		Symbol:        req.Symbol,
		Qty:           req.Qty,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   string(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	}
	if body.Type == "" {
		body.Type = types.OrderTypeMarket
	}
	if body.TimeInForce == "" {
		body.TimeInForce = string(types.TimeInForceDay)
	}
	if req.StopLoss != nil {
		// a stop-loss attached to an entry makes a one-triggers-other order
		body.OrderClass = "oto"
		body.StopLoss = &stopLossBody{StopPrice: req.StopLoss.StopPrice.Round(2)}
	}
	return body
}

// SubmitOrder sends req. A client order id is generated when missing.
func (c *Client) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	if !req.Qty.IsPositive() {
		return nil, fmt.Errorf("submit order %s: quantity must be positive, got %s", req.Symbol, req.Qty)
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	body := newOrderBody(req)

	if c.p.DryRun {
		logger.Warn(ctx, "DRY_RUN: order not sent",
			"symbol", req.Symbol, "side", string(req.Side), "qty", req.Qty.String())
		return &types.Order{
			ID:            "dry-" + req.ClientOrderID,
			ClientOrderID: req.ClientOrderID,
			Symbol:        req.Symbol,
			Side:          req.Side,
			Type:          body.Type,
			Qty:           req.Qty,
			Status:        types.OrderStatusSimulated,
			OrderClass:    body.OrderClass,
			SubmittedAt:   time.Now(),
		}, nil
	}

	var order types.Order
	if err := c.trading.PostJSON(ctx, "/v2/orders", body, &order); err != nil {
		return nil, fmt.Errorf("submit order %s: %w", req.Symbol, err)
	}
	return &order, nil
}

// GetOpenOrders lists open orders for symbol. Bracket legs are returned as
// top-level orders so a held stop leg never hides behind a filled parent.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	q := url.Values{
		"status":  {"open"},
		"symbols": {symbol},
		"limit":   {"500"},
	}
	var orders []types.Order
	if err := c.trading.GetJSON(ctx, "/v2/orders", q, &orders); err != nil {
		return nil, fmt.Errorf("get open orders %s: %w", symbol, err)
	}
	return orders, nil
}
