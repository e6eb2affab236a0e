package flows

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/prospect"
	"humpday-trader/internal/report"
	"humpday-trader/internal/types"
)

// ConstituentSource lists the index members a prospect is drawn from.
type ConstituentSource interface {
	Constituents(ctx context.Context) ([]prospect.Constituent, error)
}

type ProspectorParams struct {
	Source       ConstituentSource
	Marker       *prospect.Marker
	Data         interfaces.Fundamentals
	Notifier     interfaces.Notifier
	Channel      string
	InsiderYears int
	// Ticker skips the random pick when set.
	Ticker string
	// Rand defaults to the global source.
	Rand *rand.Rand
}

// Prospector picks a stock, researches it and posts the findings.
type Prospector struct {
	p   ProspectorParams
	now func() time.Time
}

var _ interfaces.Flow = (*Prospector)(nil)

func NewProspector(p ProspectorParams) *Prospector {
	if p.InsiderYears <= 0 {
		p.InsiderYears = 3
	}
	return &Prospector{p: p, now: time.Now}
}

func (pr *Prospector) Name() string { return NameProspector }

func (pr *Prospector) Run(ctx context.Context) error {
	_, err := pr.Prospect(ctx)
	return err
}

func (pr *Prospector) pick(ctx context.Context) (prospect.Constituent, error) {
	if t := strings.ToUpper(strings.TrimSpace(pr.p.Ticker)); t != "" {
		return prospect.Constituent{Ticker: t}, nil
	}
	rows, err := pr.p.Source.Constituents(ctx)
	if err != nil {
		return prospect.Constituent{}, fmt.Errorf("constituents: %w", err)
	}
	return prospect.Pick(rows, pr.p.Rand)
}

// Prospect runs the flow and returns the research it posted.
func (pr *Prospector) Prospect(ctx context.Context) (*types.Research, error) {
	c, err := pr.pick(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Prospect picked", "symbol", c.Ticker, "sector", c.Sector)

	if err := pr.p.Marker.Write(c.Ticker); err != nil {
		return nil, fmt.Errorf("write current stock: %w", err)
	}

	research, err := pr.research(ctx, c.Ticker)
	if err != nil {
		return nil, err
	}

	msg := report.ProspectReport(research, c.Sector, c.SubIndustry)
	var charts []*types.Image
	for _, build := range []func() (*types.Image, error){
		func() (*types.Image, error) { return report.InsiderChart(c.Ticker, research.Insiders) },
		func() (*types.Image, error) { return report.RecommendationChart(c.Ticker, research.Recommendations) },
	} {
		img, err := build()
		if errors.Is(err, report.ErrNotEnoughData) {
			logger.Warn(ctx, "Chart skipped", "symbol", c.Ticker, "reason", err.Error())
			continue
		}
		if err != nil {
			return research, err
		}
		charts = append(charts, img)
	}

	if err := postAll(ctx, pr.p.Notifier, pr.p.Channel, msg, charts...); err != nil {
		return research, err
	}
	return research, nil
}

func (pr *Prospector) research(ctx context.Context, symbol string) (*types.Research, error) {
	now := pr.now()
	r := &types.Research{Symbol: symbol, GatheredAt: now}

	q, err := pr.p.Data.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	r.Quote = *q

	profile, err := pr.p.Data.Profile(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", symbol, err)
	}
	r.Profile = *profile

	fin, err := pr.p.Data.BasicFinancials(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("financials %s: %w", symbol, err)
	}
	r.Financials = *fin

	r.Insiders, err = pr.p.Data.InsiderTransactions(ctx, symbol, now.AddDate(-pr.p.InsiderYears, 0, 0), now)
	if err != nil {
		return nil, fmt.Errorf("insider transactions %s: %w", symbol, err)
	}

	r.Recommendations, err = pr.p.Data.RecommendationTrends(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("recommendations %s: %w", symbol, err)
	}
	return r, nil
}
