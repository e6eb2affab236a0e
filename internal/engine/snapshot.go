package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/types"
)

// UsableCash floors cash to whole units and holds back min(reserve, cash).
func UsableCash(cash decimal.Decimal, reserve int64) decimal.Decimal {
	whole := cash.Floor()
	if !whole.IsPositive() {
		return decimal.Zero
	}
	hold := decimal.Min(decimal.NewFromInt(max(reserve, 0)), whole)
	return whole.Sub(hold)
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// BuildSnapshot assembles the managed portfolio: held positions in the
// target set, then a zero-quantity placeholder for every target not held.
// Positions outside the target set are ignored.
func BuildSnapshot(ctx context.Context, trading interfaces.TradingGateway, quotes interfaces.QuoteGateway, reserve int64, symbols []string) (*types.Portfolio, error) {
	targets := uniqueSymbols(symbols)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no target symbols", ErrEmptyPortfolio)
	}

	acct, err := trading.GetAccount(ctx)
	if err != nil {
		return nil, err
	}
	held, err := trading.GetAllPositions(ctx)
	if err != nil {
		return nil, err
	}

	p := &types.Portfolio{CashOnHand: UsableCash(acct.Cash, reserve)}

	wanted := make(map[string]bool, len(targets))
	for _, s := range targets {
		wanted[s] = true
	}
	have := make(map[string]bool, len(held))
	for _, bp := range held {
		if !wanted[bp.Symbol] || have[bp.Symbol] {
			continue
		}
		have[bp.Symbol] = true
		p.Positions = append(p.Positions, &types.Position{
			Symbol:       bp.Symbol,
			Qty:          bp.Qty,
			MarketValue:  bp.MarketValue,
			CurrentPrice: bp.CurrentPrice,
			CostBasis:    bp.CostBasis,
		})
	}

	var missing []string
	for _, s := range targets {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		latest, err := quotes.LatestTrades(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, s := range missing {
			tr, ok := latest[s]
			if !ok || !tr.Price.IsPositive() {
				return nil, fmt.Errorf("%w: %s", ErrNoPrice, s)
			}
			p.Positions = append(p.Positions, &types.Position{
				Symbol:       s,
				Qty:          decimal.Zero,
				MarketValue:  decimal.Zero,
				CurrentPrice: tr.Price,
				CostBasis:    decimal.Zero,
				New:          true,
			})
		}
	}

	assignProportions(p)

	logger.Info(ctx, "Portfolio snapshot built",
		"cash_on_hand", p.CashOnHand.String(),
		"raw_cash", acct.Cash.String(),
		"reserve", reserve,
		"held", len(have),
		"new", len(missing))
	return p, nil
}

// assignProportions sets each held position's share of total value.
func assignProportions(p *types.Portfolio) {
	total := p.TotalValue()
	for _, pos := range p.Positions {
		if pos.New || !total.IsPositive() {
			pos.Proportion = 0
			continue
		}
		pos.Proportion = pos.MarketValue.Div(total).InexactFloat64()
	}
}

// RefreshCash replaces the portfolio cash with the settled account balance.
func RefreshCash(ctx context.Context, trading interfaces.TradingGateway, p *types.Portfolio, reserve int64) error {
	acct, err := trading.GetAccount(ctx)
	if err != nil {
		return err
	}
	estimated := p.CashOnHand
	p.CashOnHand = UsableCash(acct.Cash, reserve)
	logger.Info(ctx, "Cash refreshed after sells",
		"estimated", estimated.String(),
		"settled", p.CashOnHand.String())
	return nil
}
