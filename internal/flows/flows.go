// Package flows wires the gateways, engine and notifiers into the
// schedulable units of work: prospector, trader, reporter, day trader and
// ETF balancing.
package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/report"
	"humpday-trader/internal/types"
)

// Flow names, also used as schedule keys and journal tags.
const (
	NameProspector = "prospect"
	NameTrader     = "trade"
	NameReporter   = "report"
	NameDayTrader  = "daytrade"
	NameRebalance  = "rebalance"
)

var ErrNoPosition = errors.New("no open position for current stock")

// Run executes f inside an operation span. A failure is posted to channel
// before it is returned; a failed post is only logged.
func Run(ctx context.Context, f interfaces.Flow, n interfaces.Notifier, channel string) error {
	timer := logger.StartOperation(ctx, "flow."+f.Name(), "flow", f.Name())
	ctx = timer.GetContext()

	if err := f.Run(ctx); err != nil {
		timer.EndWithError(err)
		if n != nil && !errors.Is(err, context.Canceled) {
			if perr := n.PostMessage(ctx, channel, report.Failure(f.Name(), err)); perr != nil {
				logger.WarnWithErr(ctx, "Failed to post flow failure", perr, "flow", f.Name())
			}
		}
		return err
	}
	timer.End()
	return nil
}

func marketOrder(symbol string, side types.Side, qty, ref decimal.Decimal, reason string) types.OrderRequest {
	return types.OrderRequest{
		ClientOrderID: uuid.NewString(),
		Symbol:        symbol,
		Side:          side,
		Type:          types.OrderTypeMarket,
		Qty:           qty,
		TimeInForce:   types.TimeInForceDay,
		RefPrice:      ref,
		Reason:        reason,
	}
}

func postAll(ctx context.Context, n interfaces.Notifier, channel string, msg types.Message, imgs ...*types.Image) error {
	if err := n.PostMessage(ctx, channel, msg); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	var errs []error
	for _, img := range imgs {
		if img == nil {
			continue
		}
		if err := n.PostImage(ctx, channel, *img); err != nil {
			errs = append(errs, fmt.Errorf("post %s: %w", img.Filename, err))
		}
	}
	return errors.Join(errs...)
}
