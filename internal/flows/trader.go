package flows

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"humpday-trader/internal/engine"
	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/prospect"
	"humpday-trader/internal/report"
	"humpday-trader/internal/retry"
	"humpday-trader/internal/tradelog"
	"humpday-trader/internal/types"
)

// TradeParams is shared by the trader and reporter flows.
type TradeParams struct {
	Marker   *prospect.Marker
	Data     interfaces.Fundamentals
	Trading  interfaces.TradingGateway
	Journal  *tradelog.Journal
	Notifier interfaces.Notifier
	Channel  string
	Retry    retry.Policy
}

// executor places orders for flow. A dry-run gateway answers with simulated
// orders, which are not journaled.
func (p TradeParams) executor(flow string) *engine.OrderExecutor {
	return engine.NewOrderExecutor(p.Trading, p.Journal, p.Retry, flow)
}

func (p TradeParams) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := p.Data.Quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote %s: %w", symbol, err)
	}
	return q.Current, nil
}

// Trader buys a fixed dollar amount of the current stock.
type Trader struct {
	p           TradeParams
	dollarValue decimal.Decimal
}

var _ interfaces.Flow = (*Trader)(nil)

func NewTrader(p TradeParams, dollarValue float64) *Trader {
	return &Trader{p: p, dollarValue: decimal.NewFromFloat(dollarValue)}
}

func (t *Trader) Name() string { return NameTrader }

func (t *Trader) Run(ctx context.Context) error {
	_, err := t.Trade(ctx)
	return err
}

// Trade places the buy and returns the accepted order.
func (t *Trader) Trade(ctx context.Context) (*types.Order, error) {
	symbol, err := t.p.Marker.Read()
	if err != nil {
		return nil, err
	}
	price, err := t.p.price(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("quote %s: no price", symbol)
	}

	qty := t.dollarValue.Div(price).Round(2)
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%s: %s buys no shares at %s", symbol, t.dollarValue, price)
	}

	order, err := t.p.executor(NameTrader).Submit(ctx, marketOrder(symbol, types.SideBuy, qty, price, "day trade entry"))
	if err != nil {
		return nil, err
	}
	if err := t.p.Notifier.PostMessage(ctx, t.p.Channel, report.TradeSubmitted(order, price)); err != nil {
		return order, fmt.Errorf("post trade: %w", err)
	}
	return order, nil
}

// Reporter closes the current stock position and posts the day's result.
type Reporter struct {
	p             TradeParams
	eod           interfaces.EodSummarizer
	retentionDays int
}

var _ interfaces.Flow = (*Reporter)(nil)

// NewReporter accepts a nil summarizer to skip the journal summary.
func NewReporter(p TradeParams, eod interfaces.EodSummarizer, retentionDays int) *Reporter {
	return &Reporter{p: p, eod: eod, retentionDays: retentionDays}
}

func (r *Reporter) Name() string { return NameReporter }

func (r *Reporter) Run(ctx context.Context) error {
	_, err := r.Report(ctx)
	return err
}

func (r *Reporter) position(ctx context.Context, symbol string) (*types.BrokerPosition, error) {
	positions, err := retry.Value(ctx, r.p.Retry, "get_positions", r.p.Trading.GetAllPositions)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	for i := range positions {
		if positions[i].Symbol == symbol && positions[i].Qty.IsPositive() {
			return &positions[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", symbol, ErrNoPosition)
}

// Report sells the whole position and returns the accepted order.
func (r *Reporter) Report(ctx context.Context) (*types.Order, error) {
	symbol, err := r.p.Marker.Read()
	if err != nil {
		return nil, err
	}
	pos, err := r.position(ctx, symbol)
	if err != nil {
		return nil, err
	}
	exit, err := r.p.price(ctx, symbol)
	if err != nil {
		return nil, err
	}

	order, err := r.p.executor(NameReporter).Submit(ctx, marketOrder(symbol, types.SideSell, pos.Qty, exit, "day trade exit"))
	if err != nil {
		return nil, err
	}
	if err := r.p.Notifier.PostMessage(ctx, r.p.Channel, report.PositionSold(order, pos.AvgEntryPrice, exit)); err != nil {
		return order, fmt.Errorf("post sale: %w", err)
	}

	if err := r.summarize(ctx); err != nil {
		return order, err
	}
	if err := r.p.Journal.CompressOlder(r.retentionDays); err != nil {
		logger.WarnWithErr(ctx, "Failed to compress old journal files", err)
	}
	return order, nil
}

func (r *Reporter) summarize(ctx context.Context) error {
	if r.eod == nil {
		return nil
	}
	sum, err := r.eod.SummarizeToday(ctx)
	if err != nil {
		logger.WarnWithErr(ctx, "End of day summary failed", err)
		return nil
	}
	if sum == nil {
		return nil
	}
	if err := r.p.Notifier.PostMessage(ctx, r.p.Channel, report.EodSummary(sum)); err != nil {
		return fmt.Errorf("post eod summary: %w", err)
	}
	return nil
}
