package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeStop   OrderType = "stop"
	OrderTypeLimit  OrderType = "limit"
)

// AccountType selects credentials and API environment. It has no effect on
// trading behaviour.
type AccountType string

const (
	AccountPaper AccountType = "paper"
	AccountLive  AccountType = "live"
)

// Account is the subset of brokerage account state the flows consume.
type Account struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Cash        decimal.Decimal `json:"cash"`
	BuyingPower decimal.Decimal `json:"buying_power"`
	Equity      decimal.Decimal `json:"equity"`
}

// BrokerPosition is a position as reported by the brokerage.
type BrokerPosition struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	MarketValue   decimal.Decimal `json:"market_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
}

// Trade is a single print from the market data feed.
type Trade struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp time.Time       `json:"timestamp"`
}

// Position is one held or targeted instrument inside a rebalancing run.
// A New position is never held: Qty and Proportion are zero.
type Position struct {
	Symbol       string          `json:"symbol"`
	Qty          decimal.Decimal `json:"qty"`
	MarketValue  decimal.Decimal `json:"market_value"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	Proportion   float64         `json:"proportion_portfolio_value"`
	RatioChange  *float64        `json:"ratio_change,omitempty"`
	New          bool            `json:"new"`
}

// Portfolio is rebuilt from live data on every run and mutated in place by
// the order generator. CashOnHand is already net of the set-aside reserve.
type Portfolio struct {
	CashOnHand decimal.Decimal `json:"cash_on_hand"`
	Positions  []*Position     `json:"positions"`
}

// Symbols returns position symbols in portfolio order.
func (p *Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		out = append(out, pos.Symbol)
	}
	return out
}

// Position looks a symbol up. Returns nil when absent.
func (p *Portfolio) Position(symbol string) *Position {
	for _, pos := range p.Positions {
		if pos.Symbol == symbol {
			return pos
		}
	}
	return nil
}

// TotalValue is the sum of position market values plus usable cash.
func (p *Portfolio) TotalValue() decimal.Decimal {
	total := p.CashOnHand
	for _, pos := range p.Positions {
		total = total.Add(pos.MarketValue)
	}
	return total
}

// RebalanceTargets maps symbol to target proportion of total value.
type RebalanceTargets map[string]float64

// Sum adds up every target proportion.
func (t RebalanceTargets) Sum() float64 {
	var s float64
	for _, v := range t {
		s += v
	}
	return s
}

type StopLoss struct {
	StopPrice decimal.Decimal `json:"stop_price"`
}

// OrderRequest is an instruction produced by the order generator or a flow.
// ClientOrderID is assigned once so that retried submissions stay idempotent.
type OrderRequest struct {
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"type"`
	Qty           decimal.Decimal `json:"qty"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
	StopLoss      *StopLoss       `json:"stop_loss,omitempty"`
	// RefPrice is the price the order was sized against.
	RefPrice decimal.Decimal `json:"ref_price"`
	Reason   string          `json:"reason,omitempty"`
}

// Notional is Qty times RefPrice.
func (o OrderRequest) Notional() decimal.Decimal {
	return o.Qty.Mul(o.RefPrice)
}

// Order is a brokerage order as returned by the order listing and submit
// endpoints.
type Order struct {
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"type"`
	Qty           decimal.Decimal `json:"qty"`
	FilledQty     decimal.Decimal `json:"filled_qty"`
	Status        string          `json:"status"`
	OrderClass    string          `json:"order_class"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	Legs          []Order         `json:"legs,omitempty"`
}

// Order statuses the engine and flows branch on.
const (
	OrderStatusFilled    = "filled"
	OrderStatusCanceled  = "canceled"
	OrderStatusExpired   = "expired"
	OrderStatusRejected  = "rejected"
	OrderStatusReplaced  = "replaced"
	OrderStatusDoneDay   = "done_for_day"
	OrderStatusSimulated = "simulated"
)

// IsTerminal reports whether the order can no longer fill.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired,
		OrderStatusRejected, OrderStatusReplaced, OrderStatusDoneDay:
		return true
	}
	return false
}

// Simulated reports whether the order was produced by a dry run and never
// reached the exchange.
func (o Order) Simulated() bool { return o.Status == OrderStatusSimulated }

// IsProtectiveStop reports whether the order is a stop-loss leg guarding a
// long position. Such legs stay open after their parent fills.
func (o Order) IsProtectiveStop() bool {
	return o.Side == SideSell && o.Type == OrderTypeStop
}

// OrderReceipt pairs the request with the broker acknowledgement.
type OrderReceipt struct {
	Request OrderRequest `json:"request"`
	Order   Order        `json:"order"`
}

// RebalanceRequest carries the per-run inputs of an ETF balancing run.
type RebalanceRequest struct {
	Symbols       []string
	CashReserve   int64
	SellBalancing bool
	DryRun        bool
}

// RebalanceResult summarises one rebalancing run for reporting.
type RebalanceResult struct {
	Snapshot   *Portfolio       `json:"snapshot"`
	Targets    RebalanceTargets `json:"targets"`
	SellOrders []OrderRequest   `json:"sell_orders"`
	BuyOrders  []OrderRequest   `json:"buy_orders"`
	Receipts   []OrderReceipt   `json:"receipts"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	DryRun     bool             `json:"dry_run"`
}

// Quote is a real-time quote from the fundamentals provider.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Current       decimal.Decimal `json:"c"`
	Change        decimal.Decimal `json:"d"`
	PercentChange decimal.Decimal `json:"dp"`
	High          decimal.Decimal `json:"h"`
	Low           decimal.Decimal `json:"l"`
	Open          decimal.Decimal `json:"o"`
	PrevClose     decimal.Decimal `json:"pc"`
	Time          time.Time       `json:"-"`
}

// Message is a chat report. Body is markdown.
type Message struct {
	Header   string
	Intro    string
	Body     string
	Fallback string
}

// Image is a rendered chart artifact.
type Image struct {
	Filename string
	Title    string
	Data     []byte
}
