package engineobs

import (
	"context"
	"time"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/trace"
	"humpday-trader/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Rebalance(ctx context.Context, req types.RebalanceRequest) (*types.RebalanceResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Rebalance")
	defer span.End()

	span.SetAttributes(
		attribute.StringSlice("symbols", req.Symbols),
		attribute.Bool("sell_balancing", req.SellBalancing),
		attribute.Bool("dry_run", req.DryRun),
	)

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting rebalance cycle",
		"symbols", req.Symbols,
		"cash_reserve", req.CashReserve,
		"sell_balancing", req.SellBalancing,
		"dry_run", req.DryRun,
	)

	result, err := oe.engine.Rebalance(ctx, req)
	if err != nil {
		fields := []any{"duration_ms", time.Since(start).Milliseconds()}
		if result != nil {
			fields = append(fields, "receipts", len(result.Receipts))
		}
		logger.ErrorWithErrSkip(ctx, 1, "Rebalance cycle failed", err, fields...)
		return result, err
	}

	logger.InfoSkip(ctx, 1, "Rebalance cycle completed",
		"sells", len(result.SellOrders),
		"buys", len(result.BuyOrders),
		"receipts", len(result.Receipts),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
