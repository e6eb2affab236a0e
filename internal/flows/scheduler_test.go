package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPostsFailure(t *testing.T) {
	var calls []string
	n := &recordingNotifier{}
	boom := errors.New("no price for ADBE")

	err := Run(context.Background(), fakeFlow{name: NameTrader, calls: &calls, err: boom}, n, "alerts")
	assert.ErrorIs(t, err, boom)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "trade failed", msgs[0].Header)
	assert.Equal(t, "alerts", n.posts[0].channel)
}

func TestRunSuccessPostsNothing(t *testing.T) {
	var calls []string
	n := &recordingNotifier{}

	require.NoError(t, Run(context.Background(), fakeFlow{name: NameTrader, calls: &calls}, n, "alerts"))
	assert.Empty(t, n.posts)
	assert.Equal(t, []string{NameTrader}, calls)
}

func TestRunCanceledIsNotPosted(t *testing.T) {
	var calls []string
	n := &recordingNotifier{}

	err := Run(context.Background(), fakeFlow{name: NameDayTrader, calls: &calls, err: context.Canceled}, n, "alerts")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, n.posts)
}

func TestSchedulerAdd(t *testing.T) {
	var calls []string
	s := NewScheduler(time.UTC, &recordingNotifier{}, "alerts")

	require.NoError(t, s.Add("0 9 * * 1-5", fakeFlow{name: NameProspector, calls: &calls}))
	require.NoError(t, s.Add("@every 1h", fakeFlow{name: NameRebalance, calls: &calls}))
	assert.Error(t, s.Add("61 * * * *", fakeFlow{name: NameTrader, calls: &calls}))
	assert.Equal(t, 2, s.Len())
}

func TestSchedulerJobReportsFailure(t *testing.T) {
	var calls []string
	n := &recordingNotifier{}
	s := NewScheduler(time.UTC, n, "alerts")

	s.job(fakeFlow{name: NameReporter, calls: &calls, err: errors.New("no position")})()
	assert.Equal(t, []string{NameReporter}, calls)
	assert.Len(t, n.messages(), 1)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s := NewScheduler(time.UTC, &recordingNotifier{}, "alerts")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Error(t, s.ctx.Err())
}
