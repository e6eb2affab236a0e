package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"humpday-trader/internal/broker/alpaca"
	"humpday-trader/internal/broker/brokerobs"
	"humpday-trader/internal/engine"
	"humpday-trader/internal/engine/engineobs"
	"humpday-trader/internal/eod"
	"humpday-trader/internal/eod/eodobs"
	"humpday-trader/internal/flows"
	"humpday-trader/internal/fundamentals"
	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/notify"
	"humpday-trader/internal/prospect"
	"humpday-trader/internal/retry"
	"humpday-trader/internal/secrets"
	"humpday-trader/internal/store"
	"humpday-trader/internal/trace"
	"humpday-trader/internal/tradelog"
	"humpday-trader/internal/types"
)

// app holds everything resolved once at startup.
type app struct {
	cfg      *store.Config
	creds    *secrets.Credentials
	loc      *time.Location
	notifier interfaces.Notifier
	journal  *tradelog.Journal
	closers  []func() error

	trading interfaces.TradingGateway
	quotes  interfaces.QuoteGateway
	data    interfaces.Fundamentals
}

// initializeSystem loads .env and starts logging and tracing.
func initializeSystem(ctx context.Context) error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(ctx, trace.ConfigFromEnv()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig reads the file and applies command line overrides.
func loadConfig(ctx context.Context, opts *rootOptions) (*store.Config, error) {
	cfg, err := store.LoadConfig(opts.configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	if opts.dryRun {
		cfg.DryRun = true
	}
	if opts.accountType != "" {
		cfg.AccountType = types.AccountType(strings.ToLower(opts.accountType))
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// secretSource prefers the environment and falls back to Secret Manager when
// a project is configured.
func (a *app) secretSource(ctx context.Context) interfaces.SecretSource {
	chain := secrets.Chain{secrets.NewEnv()}
	if a.cfg.Secrets.GCPProject == "" {
		return chain
	}
	gsm, err := secrets.NewGSM(ctx, a.cfg.Secrets.GCPProject)
	if err != nil {
		logger.WarnWithErr(ctx, "Secret Manager unavailable, using environment only", err)
		return chain
	}
	a.closers = append(a.closers, gsm.Close)
	return append(chain, gsm)
}

func setup(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Rebalance.MarketTimezone)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, loc: loc, journal: tradelog.New(cfg.TradeLog.Dir, loc)}

	a.creds, err = secrets.Resolve(ctx, a.secretSource(ctx), cfg.AccountType)
	if err != nil {
		a.close()
		return nil, err
	}
	if len(cfg.Rebalance.ETFs) == 0 {
		cfg.Rebalance.ETFs = a.creds.ETFPicks
	}

	sink := cfg.Chat.Sink
	if cfg.DryRun {
		logger.Warn(ctx, "Running in dry run mode - orders are not submitted and reports go to the log")
		sink = "log"
	}
	a.notifier, err = notify.New(notify.Params{
		Sink:          sink,
		SlackToken:    a.creds.SlackToken,
		SlackChannels: cfg.Chat.SlackChannels,
		TelegramToken: a.creds.TelegramToken,
		TelegramChats: cfg.Chat.TelegramChats,
		ImageDir:      filepath.Join(cfg.TradeLog.Dir, "charts"),
	})
	if err != nil {
		a.close()
		return nil, err
	}

	logger.Info(ctx, "System initialized",
		"account_type", string(cfg.AccountType),
		"dry_run", cfg.DryRun,
		"tracing", logger.IsTracingEnabled(),
		"chat_sink", sink)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logger.WarnWithErr(context.Background(), "Close failed", err)
		}
	}
}

func (a *app) retryPolicy() retry.Policy {
	return retry.Policy{
		Attempts: a.cfg.Retry.Attempts,
		Delay:    time.Duration(a.cfg.Retry.DelaySec) * time.Second,
	}
}

// broker builds the Alpaca gateways once, with observability.
func (a *app) broker() (interfaces.TradingGateway, interfaces.QuoteGateway, error) {
	if a.trading != nil {
		return a.trading, a.quotes, nil
	}
	p, err := alpaca.ParamsFromConfig(a.cfg, a.creds.AlpacaKeyID, a.creds.AlpacaSecret)
	if err != nil {
		return nil, nil, err
	}
	client, err := alpaca.New(p)
	if err != nil {
		return nil, nil, err
	}
	a.trading = brokerobs.WrapTrading(client)
	a.quotes = brokerobs.WrapQuotes(client)
	return a.trading, a.quotes, nil
}

func (a *app) fundamentals() (interfaces.Fundamentals, error) {
	if a.data != nil {
		return a.data, nil
	}
	p := fundamentals.ParamsFromConfig(a.cfg, a.creds.FinnhubAPIKey)
	if err := p.Cache.Prune(); err != nil {
		logger.WarnWithErr(context.Background(), "Failed to prune fundamentals cache", err)
	}
	client, err := fundamentals.New(p)
	if err != nil {
		return nil, err
	}
	a.data = client
	return client, nil
}

func (a *app) prospector(ticker string) (*flows.Prospector, error) {
	data, err := a.fundamentals()
	if err != nil {
		return nil, err
	}
	return flows.NewProspector(flows.ProspectorParams{
		Source:       prospect.NewScraper(a.cfg.Prospect.ConstituentsURL, time.Duration(a.cfg.Alpaca.TimeoutSec)*time.Second),
		Marker:       prospect.NewMarker(a.cfg.Prospect.CurrentStockFile),
		Data:         data,
		Notifier:     a.notifier,
		Channel:      a.cfg.Prospect.Channel,
		InsiderYears: a.cfg.Finnhub.InsiderYears,
		Ticker:       ticker,
	}), nil
}

func (a *app) tradeParams() (flows.TradeParams, error) {
	data, err := a.fundamentals()
	if err != nil {
		return flows.TradeParams{}, err
	}
	trading, _, err := a.broker()
	if err != nil {
		return flows.TradeParams{}, err
	}
	return flows.TradeParams{
		Marker:   prospect.NewMarker(a.cfg.Prospect.CurrentStockFile),
		Data:     data,
		Trading:  trading,
		Journal:  a.journal,
		Notifier: a.notifier,
		Channel:  a.cfg.Prospect.Channel,
		Retry:    a.retryPolicy(),
	}, nil
}

func (a *app) trader() (*flows.Trader, error) {
	p, err := a.tradeParams()
	if err != nil {
		return nil, err
	}
	return flows.NewTrader(p, a.cfg.Trader.DollarValue), nil
}

func (a *app) reporter() (*flows.Reporter, error) {
	p, err := a.tradeParams()
	if err != nil {
		return nil, err
	}
	summarizer := eodobs.Wrap(eod.New(a.journal, a.loc))
	return flows.NewReporter(p, summarizer, a.cfg.TradeLog.RetentionDays), nil
}

func (a *app) dayTrader(ticker string) (*flows.DayTrader, error) {
	pr, err := a.prospector(ticker)
	if err != nil {
		return nil, err
	}
	tr, err := a.trader()
	if err != nil {
		return nil, err
	}
	rp, err := a.reporter()
	if err != nil {
		return nil, err
	}
	afterProspect, afterTrade := a.cfg.Suspends()
	return flows.NewDayTrader(pr, tr, rp, afterProspect, afterTrade), nil
}

func (a *app) rebalancer() (*flows.Rebalancer, error) {
	if len(a.cfg.Rebalance.ETFs) == 0 {
		return nil, errors.New("no ETFs configured: set rebalance.etfs or the etf_picks secret")
	}
	trading, quotes, err := a.broker()
	if err != nil {
		return nil, err
	}
	ecfg, err := engine.ConfigFromStore(a.cfg)
	if err != nil {
		return nil, err
	}
	eng := engineobs.Wrap(engine.New(ecfg, trading, quotes, a.journal))
	return flows.NewRebalancer(flows.RebalanceParams{
		Engine:   eng,
		Notifier: a.notifier,
		Channel:  a.cfg.Rebalance.Channel,
		Request: types.RebalanceRequest{
			Symbols:       a.cfg.Rebalance.ETFs,
			CashReserve:   a.cfg.Rebalance.CashToSetAside,
			SellBalancing: a.cfg.Rebalance.SellBalancing,
			DryRun:        a.cfg.DryRun,
		},
		Plan: os.Stdout,
	}), nil
}

// flow builds a flow by its schedule key.
func (a *app) flow(name string) (interfaces.Flow, error) {
	switch name {
	case flows.NameProspector:
		return a.prospector("")
	case flows.NameTrader:
		return a.trader()
	case flows.NameReporter:
		return a.reporter()
	case flows.NameDayTrader:
		return a.dayTrader("")
	case flows.NameRebalance:
		return a.rebalancer()
	}
	return nil, fmt.Errorf("unknown flow %q", name)
}

func (a *app) channelFor(name string) string {
	if name == flows.NameRebalance {
		return a.cfg.Rebalance.Channel
	}
	return a.cfg.Prospect.Channel
}
