package engine

import (
	"context"
	"fmt"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/retry"
	"humpday-trader/internal/tradelog"
	"humpday-trader/internal/types"
)

// OrderExecutor submits orders under the retry policy and journals each
// accepted order. Both the balancing engine and the day-trading flows place
// orders through it.
type OrderExecutor struct {
	trading interfaces.TradingGateway
	journal *tradelog.Journal
	retry   retry.Policy
	flow    string
}

func NewOrderExecutor(trading interfaces.TradingGateway, journal *tradelog.Journal, policy retry.Policy, flow string) *OrderExecutor {
	return &OrderExecutor{
		trading: trading,
		journal: journal,
		retry:   policy,
		flow:    flow,
	}
}

// Submit places one order. Simulated orders from a dry-run gateway are not
// journaled.
func (oe *OrderExecutor) Submit(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	order, err := retry.Value(ctx, oe.retry, "submit_order", func(ctx context.Context) (*types.Order, error) {
		return oe.trading.SubmitOrder(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", req.Side, req.Qty, req.Symbol, err)
	}
	if order.Simulated() {
		return order, nil
	}

	if err := oe.journal.Append(tradelog.Entry{
		Symbol:        req.Symbol,
		Side:          string(req.Side),
		Qty:           req.Qty,
		Price:         req.RefPrice,
		ClientOrderID: req.ClientOrderID,
		OrderID:       order.ID,
		Flow:          oe.flow,
		Reason:        req.Reason,
	}); err != nil {
		logger.WarnWithErr(ctx, "Failed to journal order", err, "symbol", req.Symbol)
	}
	return order, nil
}

// SubmitAll stops at the first failure. Orders already placed stay placed;
// their receipts are returned with the error.
func (oe *OrderExecutor) SubmitAll(ctx context.Context, reqs []types.OrderRequest) ([]types.OrderReceipt, error) {
	receipts := make([]types.OrderReceipt, 0, len(reqs))
	for _, req := range reqs {
		order, err := oe.Submit(ctx, req)
		if err != nil {
			logger.ErrorWithErr(ctx, "Order submission failed", err,
				"symbol", req.Symbol,
				"side", string(req.Side),
				"qty", req.Qty.String(),
				"submitted", len(receipts),
				"remaining", len(reqs)-len(receipts))
			return receipts, err
		}
		receipts = append(receipts, types.OrderReceipt{Request: req, Order: *order})
	}
	return receipts, nil
}
