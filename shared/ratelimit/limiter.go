// Package ratelimit enforces the remote service quota: a dispatch budget
// over a trailing window plus a minimum spacing between dispatches.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"kick-analyzer/shared/clock"

	"github.com/sirupsen/logrus"
)

// Config holds the limiter budget
type Config struct {
	MaxPerWindow int
	Window       time.Duration
	MinInterval  time.Duration
}

// DefaultConfig matches the account-wide quota of the inference service
func DefaultConfig() Config {
	return Config{
		MaxPerWindow: 15,
		Window:       time.Minute,
		MinInterval:  4 * time.Second,
	}
}

// Limiter keeps a ledger of dispatch instants. It never dispatches on the
// caller's behalf.
type Limiter struct {
	mu     sync.Mutex
	config Config
	clock  clock.Clock
	logger *logrus.Logger
	ledger []time.Time
}

func NewLimiter(cfg Config, clk clock.Clock, logger *logrus.Logger) *Limiter {
	def := DefaultConfig()
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = def.MaxPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = def.MinInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Limiter{
		config: cfg,
		clock:  clk,
		logger: logger,
	}
}

// CanDispatch reports whether a dispatch is permitted right now
func (l *Limiter) CanDispatch() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitLocked(l.clock.Now()) == 0
}

// Wait returns how long the caller would have to wait for a slot
func (l *Limiter) Wait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitLocked(l.clock.Now())
}

// AwaitSlot suspends until a dispatch is permitted. It does not record one.
func (l *Limiter) AwaitSlot(ctx context.Context) error {
	for {
		wait := l.Wait()
		if wait == 0 {
			return nil
		}
		l.logger.WithField("wait", wait).Debug("Rate limiter delaying dispatch")
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RecordDispatch appends the current instant to the ledger
func (l *Limiter) RecordDispatch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	l.pruneLocked(now)
	l.ledger = append(l.ledger, now)
}

// Acquire waits for a slot and records the dispatch in one step, so
// concurrent callers cannot both claim the same slot.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		wait := l.waitLocked(now)
		if wait == 0 {
			l.ledger = append(l.ledger, now)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		l.logger.WithField("wait", wait).Debug("Rate limiter delaying dispatch")
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Recent returns how many dispatches lie inside the current window
func (l *Limiter) Recent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.clock.Now())
	return len(l.ledger)
}

// Reset clears the ledger
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ledger = nil
}

// waitLocked returns the larger of the window-budget wait and the
// min-interval wait.
func (l *Limiter) waitLocked(now time.Time) time.Duration {
	l.pruneLocked(now)
	if len(l.ledger) == 0 {
		return 0
	}

	var windowWait time.Duration
	if len(l.ledger) >= l.config.MaxPerWindow {
		// the slot frees when enough of the oldest records age out
		oldest := l.ledger[len(l.ledger)-l.config.MaxPerWindow]
		windowWait = oldest.Add(l.config.Window).Sub(now)
	}

	last := l.ledger[len(l.ledger)-1]
	intervalWait := last.Add(l.config.MinInterval).Sub(now)

	wait := max(windowWait, intervalWait)
	if wait < 0 {
		return 0
	}
	return wait
}

func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.config.Window)
	i := 0
	for i < len(l.ledger) && !l.ledger[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.ledger = append(l.ledger[:0], l.ledger[i:]...)
	}
}
