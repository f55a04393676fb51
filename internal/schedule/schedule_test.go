package schedule_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/schedule"
)

func TestNew_RejectsBadSpecs(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) {}

	_, err := schedule.New("", noop, logger.NewNop())
	require.ErrorIs(t, err, schedule.ErrEmptySpec)

	_, err = schedule.New("not a cron line", noop, logger.NewNop())
	require.Error(t, err)

	// Seconds are not part of the accepted format.
	_, err = schedule.New("*/5 * * * * *", noop, logger.NewNop())
	require.Error(t, err)

	r, err := schedule.New("0 3 * * *", noop, logger.NewNop())
	require.NoError(t, err)
	assert.True(t, r.Next().IsZero())
}

func TestRun_FiresUntilCancelled(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	r, err := schedule.New("@every 1s", func(ctx context.Context) {
		runs.Add(1)
	}, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Run(ctx))
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestRun_SkipsOverlappingTicks(t *testing.T) {
	t.Parallel()

	var (
		running atomic.Int32
		maxSeen atomic.Int32
		runs    atomic.Int32
	)
	r, err := schedule.New("@every 1s", func(ctx context.Context) {
		n := running.Add(1)
		defer running.Add(-1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		runs.Add(1)
		select {
		case <-time.After(2500 * time.Millisecond):
		case <-ctx.Done():
		}
	}, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.LessOrEqual(t, runs.Load(), int32(2))
}
