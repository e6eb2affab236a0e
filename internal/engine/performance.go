package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/types"
)

// LookbackDay is the session date days before now in loc. Weekend dates roll
// back to the preceding Friday.
func LookbackDay(now time.Time, days int, loc *time.Location) time.Time {
	d := now.In(loc).AddDate(0, 0, -days)
	switch d.Weekday() {
	case time.Saturday:
		d = d.AddDate(0, 0, -1)
	case time.Sunday:
		d = d.AddDate(0, 0, -2)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// MeasurePerformance attaches current/historical price ratios to every
// position. Any symbol without a historical trade fails the whole call.
func MeasurePerformance(ctx context.Context, quotes interfaces.QuoteGateway, p *types.Portfolio, day time.Time) error {
	if len(p.Positions) == 0 {
		return ErrEmptyPortfolio
	}

	history, err := quotes.FirstTrades(ctx, p.Symbols(), day)
	if err != nil {
		return err
	}

	var missing []string
	for _, pos := range p.Positions {
		tr, ok := history[pos.Symbol]
		if !ok || !tr.Price.IsPositive() {
			missing = append(missing, pos.Symbol)
			continue
		}
		ratio := pos.CurrentPrice.Div(tr.Price).InexactFloat64()
		pos.RatioChange = &ratio
		logger.Debug(ctx, "Performance measured",
			"symbol", pos.Symbol,
			"current", pos.CurrentPrice.String(),
			"historical", tr.Price.String(),
			"historical_at", tr.Timestamp,
			"ratio_change", ratio)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s on %s", ErrMissingHistory, strings.Join(missing, ","), day.Format("2006-01-02"))
	}
	return nil
}
