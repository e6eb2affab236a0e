package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"humpday-trader/internal/types"
)

// fakeBroker serves both gateways from memory.
type fakeBroker struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions []types.BrokerPosition
	latest    map[string]types.Trade
	history   map[string]types.Trade
	// open is consumed one entry per poll per symbol; the last entry repeats.
	open      map[string][][]types.Order
	polls     map[string]int
	submitted []types.OrderRequest
	submitErr error
	accounts  int
	// simulate answers submits the way a dry-run gateway does.
	simulate  bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		latest:  map[string]types.Trade{},
		history: map[string]types.Trade{},
		open:    map[string][][]types.Order{},
		polls:   map[string]int{},
	}
}

func (f *fakeBroker) GetAccount(ctx context.Context) (*types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts++
	return &types.Account{ID: "acc", Cash: f.cash}, nil
}

func (f *fakeBroker) GetAllPositions(ctx context.Context) ([]types.BrokerPosition, error) {
	return f.positions, nil
}

func (f *fakeBroker) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	// fills settle at the reference price
	if req.Side == types.SideSell {
		f.cash = f.cash.Add(req.Notional())
	} else {
		f.cash = f.cash.Sub(req.Notional())
	}
	status := "accepted"
	if f.simulate {
		status = types.OrderStatusSimulated
	}
	return &types.Order{
		ID:            "ord-" + req.ClientOrderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Qty:           req.Qty,
		Status:        status,
	}, nil
}

func (f *fakeBroker) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.polls[symbol]
	f.polls[symbol]++
	seq := f.open[symbol]
	if len(seq) == 0 {
		return nil, nil
	}
	if n >= len(seq) {
		n = len(seq) - 1
	}
	return seq[n], nil
}

func (f *fakeBroker) LatestTrades(ctx context.Context, symbols []string) (map[string]types.Trade, error) {
	out := map[string]types.Trade{}
	for _, s := range symbols {
		if tr, ok := f.latest[s]; ok {
			out[s] = tr
		}
	}
	return out, nil
}

func (f *fakeBroker) FirstTrades(ctx context.Context, symbols []string, day time.Time) (map[string]types.Trade, error) {
	out := map[string]types.Trade{}
	for _, s := range symbols {
		if tr, ok := f.history[s]; ok {
			out[s] = tr
		}
	}
	return out, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func price(sym, p string) types.Trade {
	return types.Trade{Symbol: sym, Price: dec(p)}
}

func openOrders(n int) []types.Order {
	out := make([]types.Order, n)
	for i := range out {
		out[i] = types.Order{ID: "o", Side: types.SideBuy, Type: types.OrderTypeMarket, Status: "new"}
	}
	return out
}

func ratio(v float64) *float64 { return &v }
