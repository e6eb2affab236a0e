// Package prospect picks a Nasdaq-100 stock to research and remembers it
// between flows.
package prospect

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"humpday-trader/internal/logger"
)

const DefaultConstituentsURL = "https://en.m.wikipedia.org/wiki/Nasdaq-100"

var ErrNoConstituents = errors.New("constituents table not found or empty")

// Constituent is one row of the index constituents table.
type Constituent struct {
	Ticker      string
	Company     string
	Sector      string
	SubIndustry string
}

type Scraper struct {
	url       string
	timeout   time.Duration
	userAgent string
}

func NewScraper(pageURL string, timeout time.Duration) *Scraper {
	if pageURL == "" {
		pageURL = DefaultConstituentsURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		url:       pageURL,
		timeout:   timeout,
		userAgent: "humpday-trader/1.0 (+https://github.com/humpday-trader)",
	}
}

// columnIndex maps header names to cell positions. Ticker is called
// "Symbol" in some revisions of the page.
func columnIndex(table *goquery.Selection) map[string]int {
	idx := map[string]int{}
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(th.Text()))
		switch {
		case name == "ticker" || name == "symbol":
			idx["ticker"] = i
		case name == "company" || name == "security":
			idx["company"] = i
		case strings.Contains(name, "sub-industry"):
			idx["sub_industry"] = i
		case strings.Contains(name, "sector"):
			idx["sector"] = i
		}
	})
	return idx
}

func parseTable(table *goquery.Selection) []Constituent {
	idx := columnIndex(table)
	tickerCol, ok := idx["ticker"]
	if !ok {
		return nil
	}
	cell := func(cells *goquery.Selection, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(cells.Eq(i).Text())
	}

	var out []Constituent
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= tickerCol {
			return
		}
		ticker := strings.ToUpper(strings.TrimSpace(cells.Eq(tickerCol).Text()))
		if ticker == "" {
			return
		}
		out = append(out, Constituent{
			Ticker:      ticker,
			Company:     cell(cells, "company"),
			Sector:      cell(cells, "sector"),
			SubIndustry: cell(cells, "sub_industry"),
		})
	})
	return out
}

// Constituents scrapes the table with id "constituents".
func (s *Scraper) Constituents(ctx context.Context) ([]Constituent, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("constituents url: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.MaxDepth(1),
		colly.UserAgent(s.userAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	var rows []Constituent
	var scrapeErr error
	c.OnHTML("table#constituents", func(e *colly.HTMLElement) {
		rows = append(rows, parseTable(e.DOM)...)
	})
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scrape %s (status %d): %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(s.url); err != nil && scrapeErr == nil {
		scrapeErr = fmt.Errorf("scrape %s: %w", s.url, err)
	}
	if scrapeErr != nil {
		return nil, scrapeErr
	}
	if len(rows) == 0 {
		return nil, ErrNoConstituents
	}
	logger.Info(ctx, "Constituents scraped", "url", s.url, "count", len(rows))
	return rows, nil
}

// Pick returns a uniformly random constituent.
func Pick(rows []Constituent, r *rand.Rand) (Constituent, error) {
	if len(rows) == 0 {
		return Constituent{}, ErrNoConstituents
	}
	if r == nil {
		return rows[rand.IntN(len(rows))], nil
	}
	return rows[r.IntN(len(rows))], nil
}
