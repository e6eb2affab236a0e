package alpaca

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"humpday-trader/internal/logger"
	"humpday-trader/internal/types"
)

const (
	tradesPageLimit = 1000
	// lastCutoffHour ends the coverage search; nothing trades after it.
	lastCutoffHour = 23
	// loneSymbolCutoffHour is where the search jumps when a single symbol
	// is still missing.
	loneSymbolCutoffHour = 22
	firstWideCutoffHour  = 10
)

type wireTrade struct {
	Timestamp time.Time       `json:"t"`
	Price     decimal.Decimal `json:"p"`
	Size      decimal.Decimal `json:"s"`
}

func (w wireTrade) toTrade(symbol string) types.Trade {
	return types.Trade{Symbol: symbol, Price: w.Price, Size: w.Size, Timestamp: w.Timestamp}
}

type latestTradesResponse struct {
	Trades map[string]wireTrade `json:"trades"`
}

type tradesPage struct {
	Trades        map[string][]wireTrade `json:"trades"`
	NextPageToken *string                `json:"next_page_token"`
}

// LatestTrades returns the last trade per symbol on the configured feed.
func (c *Client) LatestTrades(ctx context.Context, symbols []string) (map[string]types.Trade, error) {
	if len(symbols) == 0 {
		return map[string]types.Trade{}, nil
	}
	q := url.Values{
		"symbols": {strings.Join(symbols, ",")},
		"feed":    {c.p.LatestFeed},
	}
	var resp latestTradesResponse
	if err := c.data.GetJSON(ctx, "/v2/stocks/trades/latest", q, &resp); err != nil {
		return nil, fmt.Errorf("latest trades: %w", err)
	}
	out := make(map[string]types.Trade, len(resp.Trades))
	for sym, tr := range resp.Trades {
		out[sym] = tr.toTrade(sym)
	}
	return out, nil
}

func (c *Client) fetchTradesPage(ctx context.Context, symbols []string, start, end time.Time, token string) (*tradesPage, error) {
	q := url.Values{
		"symbols": {strings.Join(symbols, ",")},
		"start":   {start.Format(time.RFC3339)},
		"end":     {end.Format(time.RFC3339)},
		"limit":   {fmt.Sprint(tradesPageLimit)},
		"feed":    {c.p.HistoricalFeed},
		"sort":    {"asc"},
	}
	if token != "" {
		q.Set("page_token", token)
	}
	var page tradesPage
	if err := c.data.GetJSON(ctx, "/v2/stocks/trades", q, &page); err != nil {
		return nil, fmt.Errorf("historical trades: %w", err)
	}
	return &page, nil
}

// coverageSearch tracks the earliest trade per symbol across queries.
type coverageSearch struct {
	c       *Client
	open    time.Time
	found   map[string]types.Trade
	queries int
}

func (s *coverageSearch) missing(symbols []string) []string {
	var out []string
	for _, sym := range symbols {
		if _, ok := s.found[sym]; !ok {
			out = append(out, sym)
		}
	}
	return out
}

// scan pages through [open, end] for symbols until the token runs out,
// every symbol is covered, or the query budget is spent.
func (s *coverageSearch) scan(ctx context.Context, symbols []string, end time.Time) error {
	token := ""
	for s.queries < s.c.p.MaxCoverageQueries {
		s.queries++
		page, err := s.c.fetchTradesPage(ctx, symbols, s.open, end, token)
		if err != nil {
			return err
		}
		for sym, trades := range page.Trades {
			if len(trades) == 0 {
				continue
			}
			earliest := trades[0]
			for _, tr := range trades[1:] {
				if tr.Timestamp.Before(earliest.Timestamp) {
					earliest = tr
				}
			}
			prev, seen := s.found[sym]
			if !seen || earliest.Timestamp.Before(prev.Timestamp) {
				s.found[sym] = earliest.toTrade(sym)
			}
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" || len(s.missing(symbols)) == 0 {
			return nil
		}
		token = *page.NextPageToken
	}
	return nil
}

// FirstTrades finds the first trade after the open on day for each symbol.
// It queries a short window after the open, then widens the end cutoff an
// hour at a time for symbols still missing.
func (c *Client) FirstTrades(ctx context.Context, symbols []string, day time.Time) (map[string]types.Trade, error) {
	d := day.In(c.p.Location)
	at := func(hour, minute int) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, c.p.Location)
	}

	s := &coverageSearch{c: c, open: at(9, 30), found: make(map[string]types.Trade, len(symbols))}
	if err := s.scan(ctx, symbols, s.open.Add(c.p.OpenWindow)); err != nil {
		return nil, err
	}

	cutoff := firstWideCutoffHour
	for {
		missing := s.missing(symbols)
		if len(missing) == 0 || cutoff >= lastCutoffHour || s.queries >= c.p.MaxCoverageQueries {
			break
		}
		if len(missing) == 1 && cutoff < loneSymbolCutoffHour {
			cutoff = loneSymbolCutoffHour
		}
		logger.Debug(ctx, "Widening historical trade search",
			"day", d.Format("2006-01-02"), "cutoff_hour", cutoff, "missing", missing)
		if err := s.scan(ctx, missing, at(cutoff, 0)); err != nil {
			return nil, err
		}
		cutoff++
	}

	if missing := s.missing(symbols); len(missing) > 0 {
		logger.Warn(ctx, "No trade found for symbols on lookback day",
			"day", d.Format("2006-01-02"), "missing", missing, "queries", s.queries)
	}
	return s.found, nil
}
