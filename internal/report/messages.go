// Package report formats chat messages and renders charts for the flows.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"humpday-trader/internal/types"
)

const disclaimer = ":gem: This is NOT financial advice :gem:"

// ProspectReport summarises the research gathered for a pick.
func ProspectReport(r *types.Research, sector, subIndustry string) types.Message {
	name := r.Profile.Name
	if name == "" {
		name = r.Symbol
	}
	var b strings.Builder
	if r.Profile.WebURL != "" {
		fmt.Fprintf(&b, ":mag: %s\n", r.Profile.WebURL)
	}
	if sector != "" || subIndustry != "" {
		fmt.Fprintf(&b, ":factory: GICS Sector: %s\tGICS Sub-Industry: %s\n", orDash(sector), orDash(subIndustry))
	} else if r.Profile.Industry != "" {
		fmt.Fprintf(&b, ":factory: Industry: %s\n", r.Profile.Industry)
	}
	fmt.Fprintf(&b, ":moneybag: *current price: %s* (%s%%)\t52WeekHigh: %.2f\t52WeekLow: %.2f\n",
		r.Quote.Current.StringFixed(2), signed(r.Quote.PercentChange), r.Financials.WeekHigh52, r.Financials.WeekLow52)

	sold, sales := insiderNetSold(r.Insiders)
	if sales > 0 {
		fmt.Fprintf(&b, ":bust_in_silhouette: insiders sold %d shares over %d open market sales\n", sold, sales)
	}
	if rec, ok := latestRecommendation(r.Recommendations); ok {
		fmt.Fprintf(&b, ":bar_chart: analysts (%s): %d strong buy, %d buy, %d hold, %d sell, %d strong sell\n",
			rec.Period, rec.StrongBuy, rec.Buy, rec.Hold, rec.Sell, rec.StrongSell)
	}

	header := fmt.Sprintf("%s (%s)", name, r.Symbol)
	body := strings.TrimRight(b.String(), "\n")
	return types.Message{
		Header:   header,
		Intro:    disclaimer,
		Body:     body,
		Fallback: header + "\n" + body,
	}
}

// signed renders d to two places with an explicit sign.
func signed(d decimal.Decimal) string {
	d = d.Round(2)
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// insiderNetSold totals shares disposed of in code "S" transactions.
func insiderNetSold(txs []types.InsiderTransaction) (shares int64, sales int) {
	for _, tx := range txs {
		if tx.TransactionCode != "S" {
			continue
		}
		sales++
		if tx.Change < 0 {
			shares -= tx.Change
		}
	}
	return shares, sales
}

func latestRecommendation(recs []types.RecommendationTrend) (types.RecommendationTrend, bool) {
	if len(recs) == 0 {
		return types.RecommendationTrend{}, false
	}
	latest := recs[0]
	for _, r := range recs[1:] {
		if r.Period > latest.Period {
			latest = r
		}
	}
	return latest, true
}

// TradeSubmitted reports a buy placed by the trader flow.
func TradeSubmitted(order *types.Order, marketPrice decimal.Decimal) types.Message {
	value := order.Qty.Mul(marketPrice).Round(2)
	body := fmt.Sprintf("qty: %s\nprice: %s\nposition value: %s", order.Qty, marketPrice.StringFixed(2), value.StringFixed(2))
	return types.Message{
		Header:   order.Symbol,
		Intro:    ":four_leaf_clover: :crossed_fingers: Trade submitted",
		Body:     body,
		Fallback: "Trade submitted " + order.Symbol + "\n" + body,
	}
}

// PositionSold reports the reporter flow's exit with profit or loss against
// the average entry price.
func PositionSold(order *types.Order, entry, exit decimal.Decimal) types.Message {
	total := order.Qty.Mul(exit).Round(2)
	pnl := exit.Sub(entry).Mul(order.Qty).Round(2)
	emoji := ":chart_with_upwards_trend:"
	if pnl.IsNegative() {
		emoji = ":chart_with_downwards_trend:"
	}
	var pct string
	if entry.IsPositive() {
		pct = fmt.Sprintf(" (%s%%)", exit.Sub(entry).Div(entry).Mul(decimal.NewFromInt(100)).StringFixed(2))
	}
	body := fmt.Sprintf("qty: %s\nentry: %s\nexit: %s\ntotal value: %s\nP/L: %s%s %s",
		order.Qty, entry.StringFixed(2), exit.StringFixed(2), total.StringFixed(2), pnl.StringFixed(2), pct, emoji)
	return types.Message{
		Header:   order.Symbol,
		Intro:    ":moneybag: Position sold",
		Body:     body,
		Fallback: "Position sold " + order.Symbol + "\n" + body,
	}
}

// RebalanceRow is one line of the rebalance summary.
type RebalanceRow struct {
	Symbol      string
	Current     float64
	Target      float64
	RatioChange float64
	Side        string
	Qty         decimal.Decimal
}

// RebalanceRows joins the snapshot, targets and orders of a run, sorted by
// symbol.
func RebalanceRows(res *types.RebalanceResult) []RebalanceRow {
	if res == nil || res.Snapshot == nil {
		return nil
	}
	orders := map[string]types.OrderRequest{}
	for _, o := range append(append([]types.OrderRequest{}, res.SellOrders...), res.BuyOrders...) {
		orders[o.Symbol] = o
	}
	rows := make([]RebalanceRow, 0, len(res.Snapshot.Positions))
	for _, pos := range res.Snapshot.Positions {
		row := RebalanceRow{Symbol: pos.Symbol, Current: pos.Proportion, Target: res.Targets[pos.Symbol]}
		if pos.RatioChange != nil {
			row.RatioChange = *pos.RatioChange
		}
		if o, ok := orders[pos.Symbol]; ok {
			row.Side = string(o.Side)
			row.Qty = o.Qty
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

// RebalanceSummary renders the run as a fixed-width table.
func RebalanceSummary(res *types.RebalanceResult) types.Message {
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "%-6s %8s %8s %7s  %s\n", "symbol", "current", "target", "ratio", "order")
	for _, r := range RebalanceRows(res) {
		order := "-"
		if r.Side != "" {
			order = r.Side + " " + r.Qty.String()
		}
		fmt.Fprintf(&b, "%-6s %7.2f%% %7.2f%% %7.4f  %s\n", r.Symbol, r.Current*100, r.Target*100, r.RatioChange, order)
	}
	b.WriteString("```")

	intro := ":scales: ETF rebalance"
	if res != nil && res.DryRun {
		intro += " (dry run, nothing submitted)"
	}
	var cash string
	if res != nil && res.Snapshot != nil {
		cash = fmt.Sprintf("\ncash on hand at snapshot: %s", res.Snapshot.CashOnHand.StringFixed(2))
	}
	body := b.String() + cash
	return types.Message{
		Header:   "Portfolio rebalance",
		Intro:    intro,
		Body:     body,
		Fallback: intro + "\n" + body,
	}
}

// Failure reports a flow that stopped with an error.
func Failure(flow string, err error) types.Message {
	body := fmt.Sprintf("`%s`", err)
	return types.Message{
		Header:   flow + " failed",
		Intro:    ":rotating_light: flow failed",
		Body:     body,
		Fallback: flow + " failed: " + err.Error(),
	}
}

// EodSummary renders the day's journal roll-up.
func EodSummary(sum *types.EodSummary) types.Message {
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "%-6s %4s %4s %10s %10s %10s\n", "symbol", "buys", "sells", "buy avg", "sell avg", "P/L")
	for _, r := range sum.Rows {
		fmt.Fprintf(&b, "%-6s %4d %4d %10s %10s %10s\n",
			r.Symbol, r.Buys, r.Sells, r.BuyAvg().StringFixed(2), r.SellAvg().StringFixed(2), r.RealizedPnL.StringFixed(2))
	}
	fmt.Fprintf(&b, "%-6s %4d %4d %10s %10s %10s\n", "TOTAL", sum.Total.Buys, sum.Total.Sells, "", "", sum.Total.RealizedPnL.StringFixed(2))
	b.WriteString("```")
	body := b.String()
	return types.Message{
		Header:   "End of day " + sum.Date.Format("2006-01-02"),
		Intro:    ":ledger: Trade journal summary",
		Body:     body,
		Fallback: "End of day " + sum.Date.Format("2006-01-02") + "\n" + body,
	}
}
