package types

import "time"

// CompanyProfile is the provider's company overview.
type CompanyProfile struct {
	Ticker           string  `json:"ticker"`
	Name             string  `json:"name"`
	Exchange         string  `json:"exchange"`
	Industry         string  `json:"finnhubIndustry"`
	WebURL           string  `json:"weburl"`
	Logo             string  `json:"logo"`
	Country          string  `json:"country"`
	Currency         string  `json:"currency"`
	MarketCap        float64 `json:"marketCapitalization"`
	ShareOutstanding float64 `json:"shareOutstanding"`
}

// BasicFinancials holds the metrics the prospect report uses.
type BasicFinancials struct {
	Symbol      string  `json:"symbol"`
	WeekHigh52  float64 `json:"52WeekHigh"`
	WeekLow52   float64 `json:"52WeekLow"`
	Beta        float64 `json:"beta"`
	PERatio     float64 `json:"peBasicExclExtraTTM"`
	DividendYld float64 `json:"dividendYieldIndicatedAnnual"`
}

// InsiderTransaction is one Form 4 line item. Code "S" is an open market sale.
type InsiderTransaction struct {
	Name            string  `json:"name"`
	Share           int64   `json:"share"`
	Change          int64   `json:"change"`
	FilingDate      string  `json:"filingDate"`
	TransactionDate string  `json:"transactionDate"`
	TransactionCode string  `json:"transactionCode"`
	Price           float64 `json:"transactionPrice"`
}

// TradeDate parses TransactionDate. The zero time is returned when unparsable.
func (t InsiderTransaction) TradeDate() time.Time {
	d, err := time.Parse("2006-01-02", t.TransactionDate)
	if err != nil {
		return time.Time{}
	}
	return d
}

// RecommendationTrend is one month of analyst ratings.
type RecommendationTrend struct {
	Symbol     string `json:"symbol"`
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// Total is the number of ratings in the period.
func (r RecommendationTrend) Total() int {
	return r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
}

// Research bundles everything gathered for a prospect report.
type Research struct {
	Symbol          string
	Quote           Quote
	Profile         CompanyProfile
	Financials      BasicFinancials
	Insiders        []InsiderTransaction
	Recommendations []RecommendationTrend
	GatheredAt      time.Time
}
