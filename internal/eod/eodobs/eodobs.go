package eodobs

import (
	"context"
	"time"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/trace"
	"humpday-trader/internal/types"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(ctx context.Context, t time.Time) (*types.EodSummary, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting EOD summary generation",
		"date", t.Format("2006-01-02"),
	)

	sum, err := oes.summarizer.SummarizeDay(ctx, t)
	return oes.finish(ctx, t, sum, err)
}

func (oes *observableEodSummarizer) SummarizeToday(ctx context.Context) (*types.EodSummary, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeToday")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting today's EOD summary generation")

	sum, err := oes.summarizer.SummarizeToday(ctx)
	return oes.finish(ctx, time.Now(), sum, err)
}

func (oes *observableEodSummarizer) finish(ctx context.Context, t time.Time, sum *types.EodSummary, err error) (*types.EodSummary, error) {
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "EOD summary generation failed", err,
			"date", t.Format("2006-01-02"),
		)
		return nil, err
	}

	if sum == nil {
		logger.InfoSkip(ctx, 2, "No trades found for EOD summary",
			"date", t.Format("2006-01-02"),
		)
		return nil, nil
	}

	logger.InfoSkip(ctx, 2, "EOD summary generated successfully",
		"date", sum.Date.Format("2006-01-02"),
		"csv_path", sum.CSVPath,
		"symbols", len(sum.Rows),
		"realized_pnl", sum.Total.RealizedPnL.String(),
	)
	return sum, nil
}
