package interfaces

import (
	"context"
	"time"

	"humpday-trader/internal/types"
)

// EodSummarizer rolls a day of the trade journal up per symbol. A day
// without trades yields a nil summary and no error.
type EodSummarizer interface {
	SummarizeDay(ctx context.Context, t time.Time) (*types.EodSummary, error)
	SummarizeToday(ctx context.Context) (*types.EodSummary, error)
}
