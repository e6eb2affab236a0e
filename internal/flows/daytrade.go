package flows

import (
	"context"
	"fmt"
	"time"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/retry"
)

// DayTrader chains prospecting, buying and selling with pauses in between.
type DayTrader struct {
	prospector    interfaces.Flow
	trader        interfaces.Flow
	reporter      interfaces.Flow
	afterProspect time.Duration
	afterTrade    time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

var _ interfaces.Flow = (*DayTrader)(nil)

func NewDayTrader(prospector, trader, reporter interfaces.Flow, afterProspect, afterTrade time.Duration) *DayTrader {
	return &DayTrader{
		prospector:    prospector,
		trader:        trader,
		reporter:      reporter,
		afterProspect: afterProspect,
		afterTrade:    afterTrade,
		sleep:         retry.Sleep,
	}
}

func (d *DayTrader) Name() string { return NameDayTrader }

func (d *DayTrader) Run(ctx context.Context) error {
	steps := []struct {
		flow  interfaces.Flow
		pause time.Duration
	}{
		{d.prospector, d.afterProspect},
		{d.trader, d.afterTrade},
		{d.reporter, 0},
	}
	for _, s := range steps {
		if err := s.flow.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.flow.Name(), err)
		}
		if s.pause <= 0 {
			continue
		}
		logger.Info(ctx, "Suspending day trade", "after", s.flow.Name(), "resume_at", time.Now().Add(s.pause).Format(time.Kitchen))
		if err := d.sleep(ctx, s.pause); err != nil {
			return fmt.Errorf("suspend after %s: %w", s.flow.Name(), err)
		}
	}
	return nil
}
