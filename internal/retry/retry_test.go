package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/retry"
)

var errBoom = errors.New("boom")

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Retry(context.Background(), retry.Config{
		MaxAttempts: 3,
		Backoff:     retry.Fixed(time.Millisecond),
	}, func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	err := retry.Retry(context.Background(), retry.Config{
		MaxAttempts: 4,
		Backoff:     retry.Linear(time.Millisecond),
		OnRetry: func(_ int, d time.Duration, _ error) {
			delays = append(delays, d)
		},
	}, func() error {
		calls++
		return errBoom
	})

	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, delays)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Retry(context.Background(), retry.Config{
		MaxAttempts: 5,
		Backoff:     retry.Fixed(time.Millisecond),
		IsRetryable: func(error) bool { return false },
	}, func() error {
		calls++
		return errBoom
	})

	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	err := retry.Retry(ctx, retry.Config{
		MaxAttempts: 3,
		Backoff:     retry.Fixed(time.Hour),
	}, func() error {
		cancel()
		return errBoom
	})

	assert.ErrorIs(t, err, retry.ErrContextCancelled)
}

func TestBackoffs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 50*time.Millisecond, retry.Fixed(50*time.Millisecond)(7))
	assert.Equal(t, 600*time.Millisecond, retry.Linear(200*time.Millisecond)(3))
}
