package interfaces

import (
	"context"
	"time"

	"humpday-trader/internal/types"
)

// TradingGateway is the brokerage account and order API.
type TradingGateway interface {
	GetAccount(ctx context.Context) (*types.Account, error)
	GetAllPositions(ctx context.Context) ([]types.BrokerPosition, error)
	SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
}

// QuoteGateway is the market data API.
type QuoteGateway interface {
	// LatestTrades returns the most recent trade per symbol.
	LatestTrades(ctx context.Context, symbols []string) (map[string]types.Trade, error)
	// FirstTrades returns the earliest trade on day after the market open.
	// Symbols with no trade that day are absent from the result.
	FirstTrades(ctx context.Context, symbols []string, day time.Time) (map[string]types.Trade, error)
}
