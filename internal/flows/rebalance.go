package flows

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/report"
	"humpday-trader/internal/types"
)

type RebalanceParams struct {
	Engine   interfaces.Engine
	Notifier interfaces.Notifier
	Channel  string
	Request  types.RebalanceRequest
	// Plan receives the order table of a dry run. Nil disables it.
	Plan io.Writer
}

// Rebalancer runs one ETF balancing cycle and reports it.
type Rebalancer struct {
	p RebalanceParams
}

var _ interfaces.Flow = (*Rebalancer)(nil)

func NewRebalancer(p RebalanceParams) *Rebalancer {
	return &Rebalancer{p: p}
}

func (r *Rebalancer) Name() string { return NameRebalance }

// Run posts whatever the engine got through before a failure, then returns
// the failure.
func (r *Rebalancer) Run(ctx context.Context) error {
	res, runErr := r.p.Engine.Rebalance(ctx, r.p.Request)
	if res == nil || res.Snapshot == nil {
		return runErr
	}

	if res.DryRun && r.p.Plan != nil {
		if err := WritePlan(r.p.Plan, res); err != nil {
			logger.WarnWithErr(ctx, "Failed to print rebalance plan", err)
		}
	}

	img, err := report.RebalanceChart(res)
	if err != nil && !errors.Is(err, report.ErrNotEnoughData) {
		logger.WarnWithErr(ctx, "Rebalance chart failed", err)
	}
	if postErr := postAll(ctx, r.p.Notifier, r.p.Channel, report.RebalanceSummary(res), img); postErr != nil {
		return errors.Join(runErr, postErr)
	}
	return runErr
}

// WritePlan prints the run as a table.
func WritePlan(w io.Writer, res *types.RebalanceResult) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Symbol", "Current", "Target", "Ratio", "Order"}),
	)
	for _, row := range report.RebalanceRows(res) {
		order := "-"
		if row.Side != "" {
			order = row.Side + " " + row.Qty.String()
		}
		if err := table.Append([]string{
			row.Symbol,
			fmt.Sprintf("%.2f%%", row.Current*100),
			fmt.Sprintf("%.2f%%", row.Target*100),
			fmt.Sprintf("%.4f", row.RatioChange),
			order,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "cash on hand: %s\n", res.Snapshot.CashOnHand.StringFixed(2))
	return err
}
