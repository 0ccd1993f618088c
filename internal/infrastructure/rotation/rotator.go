// Package rotation implements the cancellable fixed-interval runner that
// drives attendance code replacement. A Rotator is owned by exactly one
// attendance session: Stop is consumed at session close, so no rotation
// ever outlives its session.
package rotation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Common errors.
var (
	ErrAlreadyRunning  = errors.New("rotation: already running")
	ErrNotRunning      = errors.New("rotation: not running")
	ErrInvalidInterval = errors.New("rotation: interval must be positive")
)

// Rotator invokes a tick function at a fixed interval until stopped.
type Rotator struct {
	mu sync.Mutex

	interval time.Duration
	tick     func()
	logger   *slog.Logger

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Rotator that calls tick every interval.
func New(interval time.Duration, tick func(), logger *slog.Logger) (*Rotator, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rotator{
		interval: interval,
		tick:     tick,
		logger:   logger,
	}, nil
}

// Start begins the rotation loop.
func (r *Rotator) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	r.mu.Unlock()

	r.logger.Info("rotation started", "interval", r.interval.String())

	r.wg.Add(1)
	go r.runLoop()

	return nil
}

// Stop cancels the loop and waits for an in-flight tick to finish.
// After Stop returns, no further tick will fire.
func (r *Rotator) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()

	r.logger.Info("rotation stopped")
	return nil
}

// IsRunning returns true while the loop is active.
func (r *Rotator) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// runLoop fires the tick on every interval boundary until cancelled.
func (r *Rotator) runLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}
