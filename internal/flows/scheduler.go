package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
)

// cronLogger forwards cron's own events to the process logger.
type cronLogger struct{}

var _ cron.Logger = cronLogger{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorWithErr(context.Background(), "cron: "+msg, err, keysAndValues...)
}

// Scheduler runs flows on cron specs in the market time zone. A flow still
// running when its next slot arrives is skipped.
type Scheduler struct {
	cron     *cron.Cron
	notifier interfaces.Notifier
	channel  string
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewScheduler(loc *time.Location, notifier interfaces.Notifier, failureChannel string) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	l := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		notifier: notifier,
		channel:  failureChannel,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) job(f interfaces.Flow) func() {
	return func() {
		if err := Run(s.ctx, f, s.notifier, s.channel); err != nil {
			logger.ErrorWithErr(s.ctx, "Scheduled flow failed", err, "flow", f.Name())
		}
	}
}

// Add registers f under a standard five-field cron spec.
func (s *Scheduler) Add(spec string, f interfaces.Flow) error {
	if _, err := s.cron.AddFunc(spec, s.job(f)); err != nil {
		return fmt.Errorf("schedule %s %q: %w", f.Name(), spec, err)
	}
	logger.Info(context.Background(), "Flow scheduled", "flow", f.Name(), "schedule", spec)
	return nil
}

// Len is the number of registered entries.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Run blocks until ctx is done, then cancels running flows and waits for
// them to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	logger.Info(ctx, "Scheduler started", "entries", s.Len())

	<-ctx.Done()
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Info(ctx, "Scheduler stopped")
	return nil
}
