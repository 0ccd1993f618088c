package rotation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidInterval(t *testing.T) {
	_, err := New(0, func() {}, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = New(-time.Second, func() {}, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestRotator_TicksUntilStopped(t *testing.T) {
	var ticks atomic.Int64
	r, err := New(10*time.Millisecond, func() { ticks.Add(1) }, nil)
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.IsRunning())

	assert.Eventually(t, func() bool {
		return ticks.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop())
	assert.False(t, r.IsRunning())

	// No tick fires after Stop returns.
	settled := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load())
}

func TestRotator_DoubleStart(t *testing.T) {
	r, err := New(10*time.Millisecond, func() {}, nil)
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop() })

	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRunning)
}

func TestRotator_StopWithoutStart(t *testing.T) {
	r, err := New(10*time.Millisecond, func() {}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Stop(), ErrNotRunning)
}

func TestRotator_StopsOnContextCancel(t *testing.T) {
	var ticks atomic.Int64
	r, err := New(5*time.Millisecond, func() { ticks.Add(1) }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	// The loop exits on its own; Stop still cleans up the bookkeeping.
	assert.Eventually(t, func() bool {
		before := ticks.Load()
		time.Sleep(20 * time.Millisecond)
		return ticks.Load() == before
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, r.Stop())
}

func TestRotator_Restart(t *testing.T) {
	var ticks atomic.Int64
	r, err := New(10*time.Millisecond, func() { ticks.Add(1) }, nil)
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.IsRunning())
	require.NoError(t, r.Stop())
}
