package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayTraderRunsStepsWithSuspends(t *testing.T) {
	var calls []string
	var slept []time.Duration
	d := NewDayTrader(
		fakeFlow{name: NameProspector, calls: &calls},
		fakeFlow{name: NameTrader, calls: &calls},
		fakeFlow{name: NameReporter, calls: &calls},
		time.Hour, 5*time.Hour,
	)
	d.sleep = func(_ context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []string{NameProspector, NameTrader, NameReporter}, calls)
	assert.Equal(t, []time.Duration{time.Hour, 5 * time.Hour}, slept)
}

func TestDayTraderStopsOnFailure(t *testing.T) {
	var calls []string
	boom := errors.New("quote failed")
	d := NewDayTrader(
		fakeFlow{name: NameProspector, calls: &calls},
		fakeFlow{name: NameTrader, calls: &calls, err: boom},
		fakeFlow{name: NameReporter, calls: &calls},
		0, 0,
	)

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), NameTrader)
	assert.Equal(t, []string{NameProspector, NameTrader}, calls)
}

func TestDayTraderSuspendHonoursCancel(t *testing.T) {
	var calls []string
	d := NewDayTrader(
		fakeFlow{name: NameProspector, calls: &calls},
		fakeFlow{name: NameTrader, calls: &calls},
		fakeFlow{name: NameReporter, calls: &calls},
		time.Hour, time.Hour,
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{NameProspector}, calls)
}
