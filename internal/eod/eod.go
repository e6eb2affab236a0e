// Package eod writes end-of-day CSV summaries of the trade journal.
package eod

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/tradelog"
	"humpday-trader/internal/types"
)

type Summarizer struct {
	journal *tradelog.Journal
	outDir  string
	loc     *time.Location
	now     func() time.Time
}

var _ interfaces.EodSummarizer = (*Summarizer)(nil)

// New summarises journal into <journal dir>/eod/YYYY-MM-DD.csv. Days follow
// loc, normally the market time zone.
func New(journal *tradelog.Journal, loc *time.Location) *Summarizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Summarizer{
		journal: journal,
		outDir:  filepath.Join(journal.Dir(), "eod"),
		loc:     loc,
		now:     time.Now,
	}
}

func (s *Summarizer) csvPath(t time.Time) string {
	return filepath.Join(s.outDir, t.In(s.loc).Format("2006-01-02")+".csv")
}

func (s *Summarizer) SummarizeToday(ctx context.Context) (*types.EodSummary, error) {
	return s.SummarizeDay(ctx, s.now())
}

func (s *Summarizer) SummarizeDay(ctx context.Context, t time.Time) (*types.EodSummary, error) {
	entries, err := s.journal.ReadDay(t)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sum := aggregate(entries)
	day := t.In(s.loc)
	sum.Date = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	sum.CSVPath = s.csvPath(t)
	if err := writeCSV(sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// aggregate folds entries per symbol. Realized P/L matches sold quantity
// against bought quantity at the day's average prices.
func aggregate(entries []tradelog.Entry) *types.EodSummary {
	rows := map[string]*types.EodRow{}
	for _, e := range entries {
		r, ok := rows[e.Symbol]
		if !ok {
			r = &types.EodRow{Symbol: e.Symbol}
			rows[e.Symbol] = r
		}
		value := e.Qty.Mul(e.Price)
		switch strings.ToLower(e.Side) {
		case string(types.SideBuy):
			r.Buys++
			r.BuyQty = r.BuyQty.Add(e.Qty)
			r.BuyValue = r.BuyValue.Add(value)
		case string(types.SideSell):
			r.Sells++
			r.SellQty = r.SellQty.Add(e.Qty)
			r.SellValue = r.SellValue.Add(value)
		}
	}

	sum := &types.EodSummary{Total: types.EodRow{Symbol: "TOTAL"}}
	for _, r := range rows {
		if r.Buys > 0 && r.Sells > 0 {
			matched := decimal.Min(r.BuyQty, r.SellQty)
			r.RealizedPnL = matched.Mul(r.SellAvg().Sub(r.BuyAvg())).Round(2)
		}
		sum.Rows = append(sum.Rows, *r)

		sum.Total.Buys += r.Buys
		sum.Total.Sells += r.Sells
		sum.Total.BuyValue = sum.Total.BuyValue.Add(r.BuyValue)
		sum.Total.SellValue = sum.Total.SellValue.Add(r.SellValue)
		sum.Total.RealizedPnL = sum.Total.RealizedPnL.Add(r.RealizedPnL)
	}
	sort.Slice(sum.Rows, func(i, j int) bool { return sum.Rows[i].Symbol < sum.Rows[j].Symbol })
	return sum
}

func writeCSV(sum *types.EodSummary) error {
	if err := os.MkdirAll(filepath.Dir(sum.CSVPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(sum.CSVPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"symbol", "buys", "buy_qty", "buy_avg", "sells", "sell_qty", "sell_avg", "realized_pnl", "gross_buy_value", "gross_sell_value"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range sum.Rows {
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Buys), r.BuyQty.String(), r.BuyAvg().StringFixed(4),
			strconv.Itoa(r.Sells), r.SellQty.String(), r.SellAvg().StringFixed(4),
			r.RealizedPnL.StringFixed(2), r.BuyValue.StringFixed(2), r.SellValue.StringFixed(2),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	t := sum.Total
	if err := w.Write([]string{
		t.Symbol, strconv.Itoa(t.Buys), "", "", strconv.Itoa(t.Sells), "", "",
		t.RealizedPnL.StringFixed(2), t.BuyValue.StringFixed(2), t.SellValue.StringFixed(2),
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
