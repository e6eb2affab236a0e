package engine

import (
	"errors"
	"fmt"

	"humpday-trader/internal/api"
)

var (
	ErrEmptyPortfolio = errors.New("portfolio has no positions")
	ErrNoPrice        = errors.New("no latest trade price")
	ErrMissingHistory = errors.New("no historical trade in lookback day")
	ErrMissingRatio   = errors.New("position has no ratio change")
	ErrMissingTarget  = errors.New("position has no rebalance target")
)

// SettlementTimeoutError means orders for Symbol were still open when the
// attempt budget ran out.
type SettlementTimeoutError struct {
	Symbol   string
	Attempts int
	Open     int
}

func (e *SettlementTimeoutError) Error() string {
	return fmt.Sprintf("settlement of %s abandoned after %d attempts with %d open order(s)", e.Symbol, e.Attempts, e.Open)
}

// retryable keeps data-coverage and sizing failures out of the retry loop;
// repeating them cannot change the answer.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyPortfolio),
		errors.Is(err, ErrNoPrice),
		errors.Is(err, ErrMissingHistory),
		errors.Is(err, ErrMissingRatio),
		errors.Is(err, ErrMissingTarget):
		return false
	}
	return api.IsTemporary(err)
}
