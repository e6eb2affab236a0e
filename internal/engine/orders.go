package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"humpday-trader/internal/types"
)

// OrderGenerator sizes rebalancing orders from a snapshot and its targets.
// Each pass mutates the portfolio cash, so it must run once per snapshot.
type OrderGenerator struct {
	stops *stopManager
	newID func() string
}

func NewOrderGenerator(stopLossRatio float64) *OrderGenerator {
	return &OrderGenerator{
		stops: newStopManager(stopLossRatio),
		newID: uuid.NewString,
	}
}

// SellOrders trims every position whose target is below its current
// proportion. Shares kept follow target/current = kept/held; the sale is
// rounded to 2 decimals and its estimated proceeds are added to cash.
func (g *OrderGenerator) SellOrders(p *types.Portfolio, targets types.RebalanceTargets) ([]types.OrderRequest, error) {
	var orders []types.OrderRequest
	for _, pos := range p.Positions {
		target, ok := targets[pos.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingTarget, pos.Symbol)
		}
		if pos.New || pos.Proportion <= 0 || target >= pos.Proportion {
			continue
		}

		kept := pos.Qty.Mul(decimal.NewFromFloat(target / pos.Proportion))
		sell := pos.Qty.Sub(kept).Round(2)
		if sell.GreaterThan(pos.Qty) {
			sell = pos.Qty
		}
		if !sell.IsPositive() {
			continue
		}

		p.CashOnHand = p.CashOnHand.Add(sell.Mul(pos.CurrentPrice))
		orders = append(orders, types.OrderRequest{
			ClientOrderID: g.newID(),
			Symbol:        pos.Symbol,
			Side:          types.SideSell,
			Type:          types.OrderTypeMarket,
			Qty:           sell,
			TimeInForce:   types.TimeInForceDay,
			RefPrice:      pos.CurrentPrice,
			Reason:        fmt.Sprintf("rebalance %.4f -> %.4f", pos.Proportion, target),
		})
	}
	return orders, nil
}

// BuyOrders spreads cash over positions whose target exceeds their current
// proportion, weighted by target among those positions only. Allocations
// are floored to whole units and quantities to whole shares; zero-share
// allocations are skipped. Each order carries a protective stop.
func (g *OrderGenerator) BuyOrders(p *types.Portfolio, targets types.RebalanceTargets) ([]types.OrderRequest, error) {
	var buys []*types.Position
	var weightSum float64
	for _, pos := range p.Positions {
		target, ok := targets[pos.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingTarget, pos.Symbol)
		}
		if target > pos.Proportion {
			buys = append(buys, pos)
			weightSum += target
		}
	}

	cash := p.CashOnHand
	if len(buys) == 0 || weightSum <= 0 || !cash.IsPositive() {
		return nil, nil
	}

	remaining := cash.Floor()
	spent := decimal.Zero
	var orders []types.OrderRequest
	for _, pos := range buys {
		if !pos.CurrentPrice.IsPositive() {
			return nil, fmt.Errorf("%w: %s", ErrNoPrice, pos.Symbol)
		}
		alloc := cash.Mul(decimal.NewFromFloat(targets[pos.Symbol] / weightSum)).Floor()
		alloc = decimal.Min(alloc, remaining)
		remaining = remaining.Sub(alloc)

		qty := alloc.Div(pos.CurrentPrice).Floor()
		if !qty.IsPositive() {
			continue
		}
		spent = spent.Add(qty.Mul(pos.CurrentPrice))

		orders = append(orders, types.OrderRequest{
			ClientOrderID: g.newID(),
			Symbol:        pos.Symbol,
			Side:          types.SideBuy,
			Type:          types.OrderTypeMarket,
			Qty:           qty,
			TimeInForce:   types.TimeInForceDay,
			StopLoss:      &types.StopLoss{StopPrice: g.stops.stopPrice(pos.CurrentPrice)},
			RefPrice:      pos.CurrentPrice,
			Reason:        fmt.Sprintf("rebalance %.4f -> %.4f alloc %s", pos.Proportion, targets[pos.Symbol], alloc),
		})
	}
	p.CashOnHand = cash.Sub(spent)
	return orders, nil
}
