package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"humpday-trader/internal/types"
)

type Config struct {
	AccountType types.AccountType `yaml:"account_type"`
	DryRun      bool              `yaml:"dry_run"`
	Alpaca      struct {
		PaperURL   string  `yaml:"paper_url"`
		LiveURL    string  `yaml:"live_url"`
		DataURL    string  `yaml:"data_url"`
		LatestFeed string  `yaml:"latest_feed"`
		HistFeed   string  `yaml:"historical_feed"`
		RatePerSec float64 `yaml:"rate_per_sec"`
		TimeoutSec int     `yaml:"timeout_sec"`
	} `yaml:"alpaca"`
	Finnhub struct {
		BaseURL       string  `yaml:"base_url"`
		RatePerMinute float64 `yaml:"rate_per_minute"`
		CacheDir      string  `yaml:"cache_dir"`
		CacheTTLHours int     `yaml:"cache_ttl_hours"`
		InsiderYears  int     `yaml:"insider_years"`
	} `yaml:"finnhub"`
	Rebalance struct {
		ETFs                 []string `yaml:"etfs"`
		CashToSetAside       int64    `yaml:"cash_to_set_aside"`
		SellBalancing        bool     `yaml:"sell_balancing"`
		LookbackDays         int      `yaml:"lookback_days"`
		MaxSettlementRetries int      `yaml:"max_settlement_retries"`
		SettlementSchedule   []int    `yaml:"settlement_schedule_sec"`
		SettlementFallback   int      `yaml:"settlement_fallback_sec"`
		StopLossRatio        float64  `yaml:"stop_loss_ratio"`
		MarketTimezone       string   `yaml:"market_timezone"`
		OpenWindowMinutes    int      `yaml:"open_window_minutes"`
		MaxCoverageQueries   int      `yaml:"max_coverage_queries"`
		Channel              string   `yaml:"channel"`
	} `yaml:"rebalance"`
	Retry struct {
		Attempts int `yaml:"attempts"`
		DelaySec int `yaml:"delay_sec"`
	} `yaml:"retry"`
	Trader struct {
		DollarValue float64 `yaml:"dollar_value"`
	} `yaml:"trader"`
	DayTrade struct {
		AfterProspect string `yaml:"after_prospect"`
		AfterTrade    string `yaml:"after_trade"`
	} `yaml:"daytrade"`
	Prospect struct {
		ConstituentsURL  string `yaml:"constituents_url"`
		CurrentStockFile string `yaml:"current_stock_file"`
		Channel          string `yaml:"channel"`
	} `yaml:"prospect"`
	Chat struct {
		Sink          string            `yaml:"sink"`
		SlackChannels map[string]string `yaml:"slack_channels"`
		TelegramChats map[string]int64  `yaml:"telegram_chats"`
	} `yaml:"chat"`
	Secrets struct {
		GCPProject string `yaml:"gcp_project"`
	} `yaml:"secrets"`
	Schedule map[string]string `yaml:"schedule"`
	TradeLog struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"tradelog"`
}

func (c *Config) Validate() error {
	if c.AccountType != types.AccountPaper && c.AccountType != types.AccountLive {
		return fmt.Errorf("invalid account_type '%s': must be 'paper' or 'live'", c.AccountType)
	}
	if c.Rebalance.CashToSetAside < 0 {
		return fmt.Errorf("rebalance.cash_to_set_aside must be >= 0, got %d", c.Rebalance.CashToSetAside)
	}
	if c.Rebalance.LookbackDays <= 0 {
		return fmt.Errorf("rebalance.lookback_days must be positive, got %d", c.Rebalance.LookbackDays)
	}
	if c.Rebalance.MaxSettlementRetries <= 0 {
		return fmt.Errorf("rebalance.max_settlement_retries must be positive, got %d", c.Rebalance.MaxSettlementRetries)
	}
	if c.Rebalance.StopLossRatio <= 0 || c.Rebalance.StopLossRatio >= 1 {
		return fmt.Errorf("rebalance.stop_loss_ratio must be between 0-1, got %.2f", c.Rebalance.StopLossRatio)
	}
	if _, err := time.LoadLocation(c.Rebalance.MarketTimezone); err != nil {
		return fmt.Errorf("rebalance.market_timezone: %w", err)
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("retry.attempts must be at least 1")
	}
	if c.Trader.DollarValue <= 0 {
		return fmt.Errorf("trader.dollar_value must be positive, got %.2f", c.Trader.DollarValue)
	}
	if _, err := time.ParseDuration(c.DayTrade.AfterProspect); err != nil {
		return fmt.Errorf("daytrade.after_prospect: %w", err)
	}
	if _, err := time.ParseDuration(c.DayTrade.AfterTrade); err != nil {
		return fmt.Errorf("daytrade.after_trade: %w", err)
	}
	switch c.Chat.Sink {
	case "slack", "telegram", "both", "log":
	default:
		return fmt.Errorf("chat.sink must be 'slack', 'telegram', 'both' or 'log', got '%s'", c.Chat.Sink)
	}
	return nil
}

// SettlementDelays returns the explicit backoff steps of the settlement waiter.
func (c *Config) SettlementDelays() []time.Duration {
	out := make([]time.Duration, 0, len(c.Rebalance.SettlementSchedule))
	for _, s := range c.Rebalance.SettlementSchedule {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// Suspends returns the day-trade pauses after prospecting and after trading.
func (c *Config) Suspends() (afterProspect, afterTrade time.Duration) {
	afterProspect, _ = time.ParseDuration(c.DayTrade.AfterProspect)
	afterTrade, _ = time.ParseDuration(c.DayTrade.AfterTrade)
	return afterProspect, afterTrade
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	applyDefaults(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.AccountType == "" {
		c.AccountType = types.AccountPaper
	}
	if c.Alpaca.PaperURL == "" {
		c.Alpaca.PaperURL = "https://paper-api.alpaca.markets"
	}
	if c.Alpaca.LiveURL == "" {
		c.Alpaca.LiveURL = "https://api.alpaca.markets"
	}
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = "https://data.alpaca.markets"
	}
	if c.Alpaca.LatestFeed == "" {
		c.Alpaca.LatestFeed = "iex"
	}
	if c.Alpaca.HistFeed == "" {
		c.Alpaca.HistFeed = "sip"
	}
	if c.Alpaca.RatePerSec == 0 {
		c.Alpaca.RatePerSec = 3
	}
	if c.Alpaca.TimeoutSec == 0 {
		c.Alpaca.TimeoutSec = 30
	}
	if c.Finnhub.BaseURL == "" {
		c.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Finnhub.RatePerMinute == 0 {
		c.Finnhub.RatePerMinute = 60
	}
	if c.Finnhub.CacheDir == "" {
		c.Finnhub.CacheDir = ".cache/finnhub"
	}
	if c.Finnhub.CacheTTLHours == 0 {
		c.Finnhub.CacheTTLHours = 12
	}
	if c.Finnhub.InsiderYears == 0 {
		c.Finnhub.InsiderYears = 3
	}
	if c.Rebalance.LookbackDays == 0 {
		c.Rebalance.LookbackDays = 30
	}
	if c.Rebalance.MaxSettlementRetries == 0 {
		c.Rebalance.MaxSettlementRetries = 60
	}
	if len(c.Rebalance.SettlementSchedule) == 0 {
		c.Rebalance.SettlementSchedule = []int{10, 10, 20, 60, 300}
	}
	if c.Rebalance.SettlementFallback == 0 {
		c.Rebalance.SettlementFallback = 3600
	}
	if c.Rebalance.StopLossRatio == 0 {
		c.Rebalance.StopLossRatio = 0.85
	}
	if c.Rebalance.MarketTimezone == "" {
		c.Rebalance.MarketTimezone = "America/New_York"
	}
	if c.Rebalance.OpenWindowMinutes == 0 {
		c.Rebalance.OpenWindowMinutes = 10
	}
	if c.Rebalance.MaxCoverageQueries == 0 {
		c.Rebalance.MaxCoverageQueries = 100
	}
	if c.Rebalance.Channel == "" {
		c.Rebalance.Channel = "bot-test"
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.DelaySec == 0 {
		c.Retry.DelaySec = 5
	}
	if c.Trader.DollarValue == 0 {
		c.Trader.DollarValue = 1000
	}
	if c.DayTrade.AfterProspect == "" {
		c.DayTrade.AfterProspect = "1h"
	}
	if c.DayTrade.AfterTrade == "" {
		c.DayTrade.AfterTrade = "5h"
	}
	if c.Prospect.ConstituentsURL == "" {
		c.Prospect.ConstituentsURL = "https://en.wikipedia.org/wiki/Nasdaq-100"
	}
	if c.Prospect.CurrentStockFile == "" {
		c.Prospect.CurrentStockFile = "current_stock.txt"
	}
	if c.Prospect.Channel == "" {
		c.Prospect.Channel = "bot-test"
	}
	if c.Chat.Sink == "" {
		c.Chat.Sink = "log"
	}
	if c.TradeLog.Dir == "" {
		c.TradeLog.Dir = "logs/trades"
	}
}

// applyEnv lets deployment environments override file settings.
func applyEnv(c *Config) error {
	if v := os.Getenv("ACCOUNT_TYPE"); v != "" {
		c.AccountType = types.AccountType(strings.ToLower(v))
	}
	if v := os.Getenv("ETF_PICKS"); v != "" {
		c.Rebalance.ETFs = SplitSymbols(v)
	}
	if v := os.Getenv("CASH_TO_SET_ASIDE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CASH_TO_SET_ASIDE: %w", err)
		}
		c.Rebalance.CashToSetAside = n
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		c.Secrets.GCPProject = v
	}
	if v := os.Getenv("CHAT_SINK"); v != "" {
		c.Chat.Sink = v
	}
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADER_LOG_RETENTION_DAYS: %w", err)
		}
		c.TradeLog.RetentionDays = n
	}
	return nil
}

// SplitSymbols parses a comma separated ticker list.
func SplitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if sym := strings.ToUpper(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// LoadConfig reads path, applies defaults and env overrides, then validates.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyDefaults(&c)
	if err := applyEnv(&c); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
