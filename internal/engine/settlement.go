package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"humpday-trader/internal/logger"
	"humpday-trader/internal/retry"
	"humpday-trader/internal/types"
)

// SettlementSchedule waits through explicit steps, then a fixed fallback.
type SettlementSchedule struct {
	steps    []time.Duration
	fallback time.Duration
	n        int
}

var _ backoff.BackOff = (*SettlementSchedule)(nil)

func NewSettlementSchedule(steps []time.Duration, fallback time.Duration) *SettlementSchedule {
	return &SettlementSchedule{steps: steps, fallback: fallback}
}

func (s *SettlementSchedule) NextBackOff() time.Duration {
	d := s.fallback
	if s.n < len(s.steps) {
		d = s.steps[s.n]
	}
	s.n++
	return d
}

func (s *SettlementSchedule) Reset() { s.n = 0 }

// OpenOrderLister is the slice of the trading gateway the waiter needs.
type OpenOrderLister interface {
	GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
}

// SettlementWaiter blocks until a symbol has no open orders or the attempt
// budget is exhausted.
type SettlementWaiter struct {
	orders      OpenOrderLister
	steps       []time.Duration
	fallback    time.Duration
	maxAttempts int
	retry       retry.Policy
	stops       *stopManager
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewSettlementWaiter(orders OpenOrderLister, steps []time.Duration, fallback time.Duration, maxAttempts int, policy retry.Policy) *SettlementWaiter {
	return &SettlementWaiter{
		orders:      orders,
		steps:       steps,
		fallback:    fallback,
		maxAttempts: maxAttempts,
		retry:       policy,
		stops:       newStopManager(0),
		sleep:       retry.Sleep,
	}
}

// WithSleep replaces the blocking wait.
func (w *SettlementWaiter) WithSleep(fn func(ctx context.Context, d time.Duration) error) *SettlementWaiter {
	w.sleep = fn
	return w
}

func (w *SettlementWaiter) openCount(ctx context.Context, symbol string) (int, error) {
	orders, err := retry.Value(ctx, w.retry, "get_open_orders", func(ctx context.Context) ([]types.Order, error) {
		return w.orders.GetOpenOrders(ctx, symbol)
	})
	if err != nil {
		return 0, err
	}
	return len(w.stops.pending(orders)), nil
}

// Wait polls open orders for symbol, sleeping per the schedule between
// polls. Exhausting the budget returns a *SettlementTimeoutError.
func (w *SettlementWaiter) Wait(ctx context.Context, symbol string) error {
	open, err := w.openCount(ctx, symbol)
	if err != nil {
		return err
	}

	schedule := NewSettlementSchedule(w.steps, w.fallback)
	attempts := 0
	for open > 0 && attempts < w.maxAttempts {
		wait := schedule.NextBackOff()
		logger.Info(ctx, "Waiting for open orders to settle",
			"symbol", symbol,
			"open", open,
			"attempt", attempts+1,
			"max_attempts", w.maxAttempts,
			"wait", wait.String())
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
		attempts++
		if open, err = w.openCount(ctx, symbol); err != nil {
			return err
		}
	}

	if open > 0 {
		err := &SettlementTimeoutError{Symbol: symbol, Attempts: attempts, Open: open}
		logger.ErrorWithErr(ctx, "Order settlement abandoned", err, "symbol", symbol)
		return err
	}
	logger.Info(ctx, "Orders settled", "symbol", symbol, "attempts", attempts)
	return nil
}

// WaitAll waits on each symbol in turn. A timeout on one symbol does not stop
// the others; all failures are returned joined.
func (w *SettlementWaiter) WaitAll(ctx context.Context, symbols []string) error {
	var errs []error
	for _, s := range symbols {
		if err := w.Wait(ctx, s); err != nil {
			if ctx.Err() != nil {
				return errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
