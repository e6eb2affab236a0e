package interfaces

import (
	"context"

	"humpday-trader/internal/types"
)

// Engine runs one ETF rebalancing cycle end to end.
type Engine interface {
	Rebalance(ctx context.Context, req types.RebalanceRequest) (*types.RebalanceResult, error)
}
