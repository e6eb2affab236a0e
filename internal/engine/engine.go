package engine

import (
	"context"
	"fmt"
	"time"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/retry"
	"humpday-trader/internal/store"
	"humpday-trader/internal/tradelog"
	"humpday-trader/internal/types"
)

const flowName = "etf_balancing"

type Config struct {
	LookbackDays         int
	StopLossRatio        float64
	MaxSettlementRetries int
	SettlementSchedule   []time.Duration
	SettlementFallback   time.Duration
	Retry                retry.Policy
	Location             *time.Location
}

// ConfigFromStore maps the file configuration onto the engine.
func ConfigFromStore(cfg *store.Config) (Config, error) {
	loc, err := time.LoadLocation(cfg.Rebalance.MarketTimezone)
	if err != nil {
		return Config{}, err
	}
	return Config{
		LookbackDays:         cfg.Rebalance.LookbackDays,
		StopLossRatio:        cfg.Rebalance.StopLossRatio,
		MaxSettlementRetries: cfg.Rebalance.MaxSettlementRetries,
		SettlementSchedule:   cfg.SettlementDelays(),
		SettlementFallback:   time.Duration(cfg.Rebalance.SettlementFallback) * time.Second,
		Retry: retry.Policy{
			Attempts: cfg.Retry.Attempts,
			Delay:    time.Duration(cfg.Retry.DelaySec) * time.Second,
		},
		Location: loc,
	}, nil
}

// Engine runs the rebalancing cycle:
// snapshot -> performance -> targets -> sells -> settle -> cash -> buys -> settle.
type Engine struct {
	cfg       Config
	trading   interfaces.TradingGateway
	quotes    interfaces.QuoteGateway
	generator *OrderGenerator
	executor  *OrderExecutor
	waiter    *SettlementWaiter
	now       func() time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

func New(cfg Config, trading interfaces.TradingGateway, quotes interfaces.QuoteGateway, journal *tradelog.Journal) *Engine {
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = retryable
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		cfg:       cfg,
		trading:   trading,
		quotes:    quotes,
		generator: NewOrderGenerator(cfg.StopLossRatio),
		executor:  NewOrderExecutor(trading, journal, cfg.Retry, flowName),
		waiter:    NewSettlementWaiter(trading, cfg.SettlementSchedule, cfg.SettlementFallback, cfg.MaxSettlementRetries, cfg.Retry),
		now:       time.Now,
	}
}

// Waiter exposes the settlement waiter so callers can swap its sleep.
func (e *Engine) Waiter() *SettlementWaiter { return e.waiter }

// Rebalance runs one cycle. On failure the partial result is returned with
// the error so placed orders can still be reported.
func (e *Engine) Rebalance(ctx context.Context, req types.RebalanceRequest) (*types.RebalanceResult, error) {
	res := &types.RebalanceResult{StartedAt: e.now(), DryRun: req.DryRun}

	p, err := retry.Value(ctx, e.cfg.Retry, "build_snapshot", func(ctx context.Context) (*types.Portfolio, error) {
		return BuildSnapshot(ctx, e.trading, e.quotes, req.CashReserve, req.Symbols)
	})
	if err != nil {
		return res, fmt.Errorf("snapshot: %w", err)
	}

	day := LookbackDay(e.now(), e.cfg.LookbackDays, e.cfg.Location)
	if err := e.cfg.Retry.Do(ctx, "measure_performance", func(ctx context.Context) error {
		return MeasurePerformance(ctx, e.quotes, p, day)
	}); err != nil {
		return res, fmt.Errorf("performance: %w", err)
	}
	res.Snapshot = clonePortfolio(p)

	targets, err := CalculateTargets(p)
	if err != nil {
		return res, fmt.Errorf("targets: %w", err)
	}
	res.Targets = targets
	for _, pos := range p.Positions {
		logger.Target(ctx, pos.Symbol, pos.Proportion, targets[pos.Symbol], *pos.RatioChange)
	}

	if req.SellBalancing {
		sells, err := e.generator.SellOrders(p, targets)
		if err != nil {
			return res, fmt.Errorf("sell pass: %w", err)
		}
		res.SellOrders = sells
		if err := e.execute(ctx, res, sells); err != nil {
			return res, fmt.Errorf("sell pass: %w", err)
		}
		if !req.DryRun && len(sells) > 0 {
			if err := e.cfg.Retry.Do(ctx, "refresh_cash", func(ctx context.Context) error {
				return RefreshCash(ctx, e.trading, p, req.CashReserve)
			}); err != nil {
				return res, fmt.Errorf("refresh cash: %w", err)
			}
		}
	}

	buys, err := e.generator.BuyOrders(p, targets)
	if err != nil {
		return res, fmt.Errorf("buy pass: %w", err)
	}
	res.BuyOrders = buys
	logSkippedBuys(ctx, p, targets, buys)
	if err := e.execute(ctx, res, buys); err != nil {
		return res, fmt.Errorf("buy pass: %w", err)
	}

	res.FinishedAt = e.now()
	logger.Info(ctx, "Rebalance complete",
		"sells", len(res.SellOrders),
		"buys", len(res.BuyOrders),
		"cash_left", p.CashOnHand.String(),
		"dry_run", req.DryRun)
	return res, nil
}

// execute submits orders and waits for every touched symbol to settle.
// Dry runs stop after planning.
func (e *Engine) execute(ctx context.Context, res *types.RebalanceResult, orders []types.OrderRequest) error {
	if res.DryRun || len(orders) == 0 {
		return nil
	}
	receipts, err := e.executor.SubmitAll(ctx, orders)
	res.Receipts = append(res.Receipts, receipts...)
	if err != nil {
		return err
	}
	return e.waiter.WaitAll(ctx, orderSymbols(orders))
}

// logSkippedBuys flags underweight positions that got no buy, either for
// lack of cash or because a whole share costs more than the allocation.
func logSkippedBuys(ctx context.Context, p *types.Portfolio, targets types.RebalanceTargets, buys []types.OrderRequest) {
	bought := make(map[string]bool, len(buys))
	for _, b := range buys {
		bought[b.Symbol] = true
	}
	for _, pos := range p.Positions {
		if targets[pos.Symbol] <= pos.Proportion || bought[pos.Symbol] {
			continue
		}
		logger.Risk(ctx, pos.Symbol, "buy_skipped",
			"current", pos.Proportion,
			"target", targets[pos.Symbol],
			"price", pos.CurrentPrice.String(),
			"cash", p.CashOnHand.String())
	}
}

func orderSymbols(orders []types.OrderRequest) []string {
	seen := make(map[string]bool, len(orders))
	var out []string
	for _, o := range orders {
		if !seen[o.Symbol] {
			seen[o.Symbol] = true
			out = append(out, o.Symbol)
		}
	}
	return out
}

func clonePortfolio(p *types.Portfolio) *types.Portfolio {
	out := &types.Portfolio{CashOnHand: p.CashOnHand, Positions: make([]*types.Position, 0, len(p.Positions))}
	for _, pos := range p.Positions {
		cp := *pos
		if pos.RatioChange != nil {
			r := *pos.RatioChange
			cp.RatioChange = &r
		}
		out.Positions = append(out.Positions, &cp)
	}
	return out
}
