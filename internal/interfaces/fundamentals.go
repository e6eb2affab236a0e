package interfaces

import (
	"context"
	"time"

	"humpday-trader/internal/types"
)

// Fundamentals is the company research data provider.
type Fundamentals interface {
	Quote(ctx context.Context, symbol string) (*types.Quote, error)
	Profile(ctx context.Context, symbol string) (*types.CompanyProfile, error)
	BasicFinancials(ctx context.Context, symbol string) (*types.BasicFinancials, error)
	InsiderTransactions(ctx context.Context, symbol string, from, to time.Time) ([]types.InsiderTransaction, error)
	RecommendationTrends(ctx context.Context, symbol string) ([]types.RecommendationTrend, error)
}
