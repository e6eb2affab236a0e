package engine

import (
	"github.com/shopspring/decimal"

	"humpday-trader/internal/types"
)

var defaultTick = decimal.New(1, -2)

// stopManager prices protective stops and recognises them in order lists.
type stopManager struct {
	ratio decimal.Decimal // stop as a fraction of the entry price
	tick  decimal.Decimal // minimum price increment
}

func newStopManager(ratio float64) *stopManager {
	return &stopManager{
		ratio: decimal.NewFromFloat(ratio),
		tick:  defaultTick,
	}
}

// stopPrice is entry*ratio rounded to the tick.
func (sm *stopManager) stopPrice(entry decimal.Decimal) decimal.Decimal {
	return roundToTick(entry.Mul(sm.ratio), sm.tick)
}

// pending drops protective stop legs, which stay open once their parent
// entry has filled, and orders that already reached a terminal status.
func (sm *stopManager) pending(orders []types.Order) []types.Order {
	out := orders[:0:0]
	for _, o := range orders {
		if o.IsProtectiveStop() || o.IsTerminal() {
			continue
		}
		out = append(out, o)
	}
	return out
}

func roundToTick(price, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return price
	}
	return price.Div(tick).Round(0).Mul(tick)
}
