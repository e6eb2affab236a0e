package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EodRow aggregates one symbol's journalled orders for a day.
type EodRow struct {
	Symbol      string
	Buys        int
	Sells       int
	BuyQty      decimal.Decimal
	BuyValue    decimal.Decimal
	SellQty     decimal.Decimal
	SellValue   decimal.Decimal
	RealizedPnL decimal.Decimal
}

// BuyAvg is the volume weighted buy price, zero without buys.
func (r EodRow) BuyAvg() decimal.Decimal {
	if !r.BuyQty.IsPositive() {
		return decimal.Zero
	}
	return r.BuyValue.Div(r.BuyQty)
}

// SellAvg is the volume weighted sell price, zero without sells.
func (r EodRow) SellAvg() decimal.Decimal {
	if !r.SellQty.IsPositive() {
		return decimal.Zero
	}
	return r.SellValue.Div(r.SellQty)
}

// EodSummary is the end-of-day roll-up of the trade journal.
type EodSummary struct {
	Date    time.Time
	CSVPath string
	Rows    []EodRow
	Total   EodRow
}
