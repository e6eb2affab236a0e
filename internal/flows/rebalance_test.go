package flows

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"humpday-trader/internal/types"
)

func rebalanceResult(dryRun bool) *types.RebalanceResult {
	ratio := 1.1
	return &types.RebalanceResult{
		Snapshot: &types.Portfolio{
			CashOnHand: decimal.NewFromInt(250),
			Positions: []*types.Position{
				{Symbol: "QQQ", Proportion: 0.7, RatioChange: &ratio},
				{Symbol: "SPY", Proportion: 0.2, New: true},
			},
		},
		Targets:    types.RebalanceTargets{"QQQ": 0.52, "SPY": 0.48},
		SellOrders: []types.OrderRequest{{Symbol: "QQQ", Side: types.SideSell, Qty: decimal.RequireFromString("2.5")}},
		BuyOrders:  []types.OrderRequest{{Symbol: "SPY", Side: types.SideBuy, Qty: decimal.NewFromInt(3)}},
		DryRun:     dryRun,
	}
}

func TestRebalancerPostsSummaryAndChart(t *testing.T) {
	eng := &fakeEngine{res: rebalanceResult(false)}
	n := &recordingNotifier{}
	req := types.RebalanceRequest{Symbols: []string{"QQQ", "SPY"}, CashReserve: 500, SellBalancing: true}
	var plan bytes.Buffer

	err := NewRebalancer(RebalanceParams{Engine: eng, Notifier: n, Channel: "bot-test", Request: req, Plan: &plan}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, req, eng.req)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Portfolio rebalance", msgs[0].Header)
	imgs := n.images()
	require.Len(t, imgs, 1)
	assert.Equal(t, "rebalance.png", imgs[0].Filename)
	assert.Zero(t, plan.Len(), "plan is only printed on dry runs")
}

func TestRebalancerDryRunPrintsPlan(t *testing.T) {
	eng := &fakeEngine{res: rebalanceResult(true)}
	n := &recordingNotifier{}
	var plan bytes.Buffer

	err := NewRebalancer(RebalanceParams{Engine: eng, Notifier: n, Plan: &plan}).Run(context.Background())
	require.NoError(t, err)

	out := plan.String()
	assert.Contains(t, out, "QQQ")
	assert.Contains(t, out, "sell 2.5")
	assert.Contains(t, out, "buy 3")
	assert.Contains(t, out, "cash on hand: 250.00")
}

func TestRebalancerReportsPartialRun(t *testing.T) {
	runErr := errors.New("buy pass: rejected")
	eng := &fakeEngine{res: rebalanceResult(false), err: runErr}
	n := &recordingNotifier{}

	err := NewRebalancer(RebalanceParams{Engine: eng, Notifier: n}).Run(context.Background())
	assert.ErrorIs(t, err, runErr)
	assert.Len(t, n.messages(), 1)
}

func TestRebalancerNothingToReport(t *testing.T) {
	runErr := errors.New("snapshot: no price")
	n := &recordingNotifier{}

	err := NewRebalancer(RebalanceParams{Engine: &fakeEngine{err: runErr}, Notifier: n}).Run(context.Background())
	assert.ErrorIs(t, err, runErr)
	assert.Empty(t, n.posts)
}
