package brokerobs

import (
	"context"
	"time"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/trace"
	"humpday-trader/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// observableTrading wraps a TradingGateway with logging and tracing
type observableTrading struct {
	gw interfaces.TradingGateway
}

// observableQuotes wraps a QuoteGateway with logging and tracing
type observableQuotes struct {
	gw interfaces.QuoteGateway
}

// Compile-time interface checks
var (
	_ interfaces.TradingGateway = (*observableTrading)(nil)
	_ interfaces.QuoteGateway   = (*observableQuotes)(nil)
)

// WrapTrading wraps a trading gateway with observability middleware
func WrapTrading(gw interfaces.TradingGateway) interfaces.TradingGateway {
	return &observableTrading{gw: gw}
}

// WrapQuotes wraps a quote gateway with observability middleware
func WrapQuotes(gw interfaces.QuoteGateway) interfaces.QuoteGateway {
	return &observableQuotes{gw: gw}
}

// GetAccount fetches the account with observability
func (o *observableTrading) GetAccount(ctx context.Context) (*types.Account, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAccount")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching account")

	acct, err := o.gw.GetAccount(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("cash", acct.Cash.String()))
	logger.DebugSkip(ctx, 1, "Account fetched successfully", "cash", acct.Cash.String())
	return acct, nil
}

// GetAllPositions fetches positions with observability
func (o *observableTrading) GetAllPositions(ctx context.Context) ([]types.BrokerPosition, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAllPositions")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching positions")

	positions, err := o.gw.GetAllPositions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(positions)))
	logger.DebugSkip(ctx, 1, "Positions fetched successfully", "count", len(positions))
	return positions, nil
}

// SubmitOrder places an order with observability
func (o *observableTrading) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.SubmitOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("symbol", req.Symbol),
		attribute.String("side", string(req.Side)),
		attribute.String("qty", req.Qty.String()),
	)
	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"qty", req.Qty.String(),
		"client_order_id", req.ClientOrderID,
		"stop_loss", req.StopLoss != nil,
	)

	order, err := o.gw.SubmitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", string(req.Side),
			"qty", req.Qty.String(),
		)
		return nil, err
	}

	logger.Order(ctx, req.Symbol, string(req.Side), req.Qty, req.RefPrice, order.ID, "status", order.Status)
	return order, nil
}

// GetOpenOrders lists open orders with observability
func (o *observableTrading) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetOpenOrders")
	defer span.End()

	orders, err := o.gw.GetOpenOrders(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list open orders", err, "symbol", symbol)
		return nil, err
	}

	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("open", len(orders)))
	logger.DebugSkip(ctx, 1, "Open orders listed", "symbol", symbol, "open", len(orders))
	return orders, nil
}

// LatestTrades fetches latest trades with observability
func (o *observableQuotes) LatestTrades(ctx context.Context, symbols []string) (map[string]types.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "quotes.LatestTrades")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching latest trades", "symbols", symbols)

	trades, err := o.gw.LatestTrades(ctx, symbols)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch latest trades", err, "symbols", symbols)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Latest trades fetched successfully", "count", len(trades))
	return trades, nil
}

// FirstTrades fetches historical opening trades with observability
func (o *observableQuotes) FirstTrades(ctx context.Context, symbols []string, day time.Time) (map[string]types.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "quotes.FirstTrades")
	defer span.End()

	span.SetAttributes(
		attribute.StringSlice("symbols", symbols),
		attribute.String("day", day.Format("2006-01-02")),
	)
	logger.DebugSkip(ctx, 1, "Fetching first trades", "symbols", symbols, "day", day.Format("2006-01-02"))

	trades, err := o.gw.FirstTrades(ctx, symbols, day)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch first trades", err, "symbols", symbols)
		return nil, err
	}

	span.SetAttributes(attribute.Int("found", len(trades)))
	logger.DebugSkip(ctx, 1, "First trades fetched successfully", "found", len(trades), "requested", len(symbols))
	return trades, nil
}
