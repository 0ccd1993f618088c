package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(maxAttempts int) *Retrier {
	return New(
		WithMaxAttempts(maxAttempts),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
	)
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var calls int
	err := fastRetrier(3).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	var calls int
	err := fastRetrier(3).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("upstream hiccup"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still down")
	var calls int
	err := fastRetrier(3).Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(sentinel)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	var calls int
	err := fastRetrier(5).Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(sentinel)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sentinel := errors.New("will not get another chance")
	var calls int
	err := New(
		WithMaxAttempts(10),
		WithInitialDelay(50*time.Millisecond),
	).Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return Retryable(sentinel)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	err := Do(context.Background(), func(context.Context) error {
		return Retryable(errors.New("nope"))
	},
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) {
			attempts = append(attempts, attempt)
		}),
	)
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestCalculateDelay_IsCapped(t *testing.T) {
	r := New(
		WithMaxAttempts(10),
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(300*time.Millisecond),
		WithMultiplier(2.0),
		WithJitter(0),
	)
	for attempt := 1; attempt <= 8; attempt++ {
		assert.LessOrEqual(t, r.calculateDelay(attempt), 300*time.Millisecond)
	}
}

func TestRetryableAndPermanentWrappers(t *testing.T) {
	base := errors.New("base")

	assert.True(t, IsRetryable(Retryable(base)))
	assert.False(t, IsRetryable(Permanent(base)))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.ErrorIs(t, Retryable(base), base)
	assert.ErrorIs(t, Permanent(base), base)

	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))
}
