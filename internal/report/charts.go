package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"humpday-trader/internal/types"
)

var ErrNotEnoughData = errors.New("not enough data to chart")

// MonthPoint is an aggregate for the month starting at Month.
type MonthPoint struct {
	Month time.Time
	Value float64
}

// InsiderMonthlySellPrice averages open market sale prices (code "S") per
// calendar month, oldest first.
func InsiderMonthlySellPrice(txs []types.InsiderTransaction) []MonthPoint {
	type acc struct {
		sum float64
		n   int
	}
	months := map[time.Time]*acc{}
	for _, tx := range txs {
		if tx.TransactionCode != "S" || tx.Price <= 0 {
			continue
		}
		d := tx.TradeDate()
		if d.IsZero() {
			continue
		}
		m := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		a, ok := months[m]
		if !ok {
			a = &acc{}
			months[m] = a
		}
		a.sum += tx.Price
		a.n++
	}
	out := make([]MonthPoint, 0, len(months))
	for m, a := range months {
		out = append(out, MonthPoint{Month: m, Value: a.sum / float64(a.n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func render(c interface {
	Render(chart.RendererProvider, io.Writer) error
}) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// InsiderChart plots the monthly average insider sell price.
func InsiderChart(symbol string, txs []types.InsiderTransaction) (*types.Image, error) {
	points := InsiderMonthlySellPrice(txs)
	if len(points) < 2 {
		return nil, fmt.Errorf("insider chart %s: %w", symbol, ErrNotEnoughData)
	}
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	lo, hi := points[0].Value, points[0].Value
	for i, p := range points {
		xs[i] = p.Month
		ys[i] = p.Value
		lo, hi = min(lo, p.Value), max(hi, p.Value)
	}
	// a flat series has no y extent of its own
	yRange := &chart.ContinuousRange{Min: lo * 0.95, Max: hi * 1.05}

	graph := chart.Chart{
		Title:  fmt.Sprintf("(%s) Insider sell price", symbol),
		Width:  1200,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("2006-01")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: yRange,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: "monthly average",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("2563eb"),
					StrokeWidth: 2,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	data, err := render(graph)
	if err != nil {
		return nil, err
	}
	return &types.Image{Filename: symbol + "_insiders.png", Title: "Insider sell price", Data: data}, nil
}

var ratingColors = []struct {
	label string
	color string
	count func(types.RecommendationTrend) int
}{
	{"strongBuy", "00008b", func(r types.RecommendationTrend) int { return r.StrongBuy }},
	{"buy", "add8e6", func(r types.RecommendationTrend) int { return r.Buy }},
	{"hold", "ffa500", func(r types.RecommendationTrend) int { return r.Hold }},
	{"sell", "ff0000", func(r types.RecommendationTrend) int { return r.Sell }},
	{"strongSell", "8b0000", func(r types.RecommendationTrend) int { return r.StrongSell }},
}

// RecommendationChart stacks analyst ratings per period, oldest first.
func RecommendationChart(symbol string, recs []types.RecommendationTrend) (*types.Image, error) {
	sorted := append([]types.RecommendationTrend(nil), recs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Period < sorted[j].Period })

	var bars []chart.StackedBar
	for _, r := range sorted {
		if r.Total() == 0 {
			continue
		}
		bar := chart.StackedBar{Name: monthLabel(r.Period)}
		for _, rc := range ratingColors {
			n := rc.count(r)
			if n == 0 {
				continue
			}
			bar.Values = append(bar.Values, chart.Value{
				Label: rc.label,
				Value: float64(n),
				Style: chart.Style{
					FillColor:   drawing.ColorFromHex(rc.color),
					StrokeColor: drawing.ColorFromHex(rc.color),
				},
			})
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("recommendation chart %s: %w", symbol, ErrNotEnoughData)
	}

	graph := chart.StackedBarChart{
		Title:      fmt.Sprintf("(%s) Analyst recommendations", symbol),
		Width:      max(600, 80*len(bars)+120),
		Height:     400,
		BarSpacing: 20,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		Bars: bars,
	}
	data, err := render(graph)
	if err != nil {
		return nil, err
	}
	return &types.Image{Filename: symbol + "_analysts.png", Title: "Analyst recommendations", Data: data}, nil
}

func monthLabel(period string) string {
	if len(period) >= 7 {
		return period[:7]
	}
	return period
}

// RebalanceChart pairs each symbol's current and target proportion.
func RebalanceChart(res *types.RebalanceResult) (*types.Image, error) {
	rows := RebalanceRows(res)
	if len(rows) == 0 {
		return nil, fmt.Errorf("rebalance chart: %w", ErrNotEnoughData)
	}
	current := chart.Style{FillColor: drawing.ColorFromHex("9ca3af"), StrokeColor: drawing.ColorFromHex("9ca3af")}
	target := chart.Style{FillColor: drawing.ColorFromHex("2563eb"), StrokeColor: drawing.ColorFromHex("2563eb")}

	var bars []chart.Value
	top := 0.0
	for _, r := range rows {
		top = max(top, r.Current*100, r.Target*100)
		bars = append(bars,
			chart.Value{Label: r.Symbol + " now", Value: r.Current * 100, Style: current},
			chart.Value{Label: r.Symbol + " target", Value: r.Target * 100, Style: target},
		)
	}

	graph := chart.BarChart{
		Title:      "Current vs target allocation (%)",
		Width:      max(600, 70*len(bars)+120),
		Height:     400,
		BarWidth:   40,
		BarSpacing: 30,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max(top*1.1, 1)},
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		Bars: bars,
	}
	data, err := render(graph)
	if err != nil {
		return nil, err
	}
	return &types.Image{Filename: "rebalance.png", Title: "Rebalance targets", Data: data}, nil
}
