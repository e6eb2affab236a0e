package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"humpday-trader/internal/types"
)

func heldPosition(sym, qty, px string, prop float64) *types.Position {
	q, p := dec(qty), dec(px)
	return &types.Position{Symbol: sym, Qty: q, CurrentPrice: p, MarketValue: q.Mul(p), Proportion: prop}
}

func TestSellOrdersTrimOverweight(t *testing.T) {
	p := &types.Portfolio{CashOnHand: dec("100"), Positions: []*types.Position{
		heldPosition("QQQ", "10", "400", 0.6),
		heldPosition("SPY", "5", "500", 0.4),
	}}
	targets := types.RebalanceTargets{"QQQ": 0.45, "SPY": 0.55}

	orders, err := NewOrderGenerator(0.85).SellOrders(p, targets)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "QQQ", o.Symbol)
	assert.Equal(t, types.SideSell, o.Side)
	assert.True(t, dec("2.5").Equal(o.Qty), "got %s", o.Qty)
	assert.Nil(t, o.StopLoss)
	assert.NotEmpty(t, o.ClientOrderID)

	// 100 + 2.5*400
	assert.True(t, dec("1100").Equal(p.CashOnHand))

	// kept/held matches target/current
	kept := dec("10").Sub(o.Qty).InexactFloat64()
	assert.InDelta(t, 0.45/0.6, kept/10, 0.01)
}

func TestSellOrdersSkipNewPositions(t *testing.T) {
	p := &types.Portfolio{Positions: []*types.Position{
		{Symbol: "NEW", Qty: decimal.Zero, CurrentPrice: dec("10"), New: true},
	}}
	orders, err := NewOrderGenerator(0.85).SellOrders(p, types.RebalanceTargets{"NEW": 0})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSellOrdersMissingTarget(t *testing.T) {
	p := &types.Portfolio{Positions: []*types.Position{heldPosition("QQQ", "1", "1", 1)}}
	_, err := NewOrderGenerator(0.85).SellOrders(p, types.RebalanceTargets{})
	assert.ErrorIs(t, err, ErrMissingTarget)
}

func TestBuyOrdersAllocateByTargetWeight(t *testing.T) {
	p := &types.Portfolio{CashOnHand: dec("1000"), Positions: []*types.Position{
		heldPosition("QQQ", "1", "400", 0.5),
		{Symbol: "SPY", CurrentPrice: dec("90"), New: true},
		{Symbol: "DIA", CurrentPrice: dec("35"), New: true},
		{Symbol: "BIG", CurrentPrice: dec("5000"), New: true},
	}}
	targets := types.RebalanceTargets{"QQQ": 0.4, "SPY": 0.3, "DIA": 0.2, "BIG": 0.1}

	orders, err := NewOrderGenerator(0.85).BuyOrders(p, targets)
	require.NoError(t, err)

	bySym := map[string]types.OrderRequest{}
	for _, o := range orders {
		bySym[o.Symbol] = o
	}
	require.NotContains(t, bySym, "QQQ", "already above target")
	require.NotContains(t, bySym, "BIG", "allocation buys zero shares")

	// weights among buys: SPY 0.5, DIA 0.333, BIG 0.1667
	assert.True(t, dec("5").Equal(bySym["SPY"].Qty), "500/90 floors to 5, got %s", bySym["SPY"].Qty)
	assert.True(t, dec("9").Equal(bySym["DIA"].Qty), "333/35 floors to 9, got %s", bySym["DIA"].Qty)

	spent := decimal.Zero
	for _, o := range orders {
		require.NotNil(t, o.StopLoss)
		assert.True(t, o.RefPrice.Mul(dec("0.85")).Round(2).Equal(o.StopLoss.StopPrice))
		assert.Equal(t, types.SideBuy, o.Side)
		spent = spent.Add(o.Notional())
	}
	assert.True(t, spent.LessThanOrEqual(dec("1000")))
	assert.True(t, dec("1000").Sub(spent).Equal(p.CashOnHand))
}

func TestBuyOrdersNoCash(t *testing.T) {
	p := &types.Portfolio{CashOnHand: decimal.Zero, Positions: []*types.Position{
		{Symbol: "SPY", CurrentPrice: dec("90"), New: true},
	}}
	orders, err := NewOrderGenerator(0.85).BuyOrders(p, types.RebalanceTargets{"SPY": 1})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestStopPriceRoundsToCent(t *testing.T) {
	sm := newStopManager(0.85)
	assert.True(t, dec("84.15").Equal(sm.stopPrice(dec("99.00"))))
	assert.True(t, dec("382.61").Equal(sm.stopPrice(dec("450.13"))))
}

// randomHeldPortfolio prices every position and sets its proportion of
// held value plus cash, the way the snapshot does.
func randomHeldPortfolio(r *rand.Rand, n int) (*types.Portfolio, decimal.Decimal) {
	p := &types.Portfolio{CashOnHand: decimal.New(int64(r.IntN(1_000_000)), -2)}
	total := p.CashOnHand
	for i := 0; i < n; i++ {
		qty := decimal.New(int64(1+r.IntN(100_000)), -2)
		px := decimal.New(int64(1_000+r.IntN(59_000)), -2)
		pos := &types.Position{
			Symbol:       fmt.Sprintf("S%02d", i),
			Qty:          qty,
			CurrentPrice: px,
			MarketValue:  qty.Mul(px),
			RatioChange:  ratio(skewedRatio(r)),
		}
		total = total.Add(pos.MarketValue)
		p.Positions = append(p.Positions, pos)
	}
	for _, pos := range p.Positions {
		pos.Proportion = pos.MarketValue.Div(total).InexactFloat64()
	}
	return p, total
}

func TestSellOrdersRoundTripToTargets(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	g := NewOrderGenerator(0.85)
	for i := 0; i < 2000; i++ {
		p, total := randomHeldPortfolio(r, 1+r.IntN(12))
		targets, err := CalculateTargets(p)
		require.NoError(t, err)

		sells, err := g.SellOrders(p, targets)
		require.NoError(t, err)
		sold := make(map[string]decimal.Decimal, len(sells))
		for _, o := range sells {
			sold[o.Symbol] = o.Qty
		}

		for _, pos := range p.Positions {
			target := targets[pos.Symbol]
			// selling rounds to 0.01 shares, so the kept value is off by at
			// most half a cent-share
			tol := pos.CurrentPrice.Div(total).InexactFloat64()*0.005 + 1e-9
			sell, ok := sold[pos.Symbol]
			switch {
			case ok:
				kept := pos.Qty.Sub(sell).Mul(pos.CurrentPrice).Div(total).InexactFloat64()
				require.LessOrEqualf(t, math.Abs(kept-target), tol,
					"case %d %s qty=%s sell=%s", i, pos.Symbol, pos.Qty, sell)
			case target < pos.Proportion:
				require.LessOrEqualf(t, pos.Proportion-target, tol,
					"case %d %s left overweight without a sell", i, pos.Symbol)
			}
		}
	}
}
