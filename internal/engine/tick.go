// Package engine runs the epidemic: the Simulation owns the city and the
// population and advances them one tick at a time; the Engine optionally
// drives ticks from a wall-clock loop.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Clock reports the current time. Tests substitute a manual clock to cross
// the tick gate without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Engine drives the simulation forward without an external caller.
type Engine struct {
	Interval time.Duration // How often OnTick fires
	OnTick   func()        // Populated during setup

	running atomic.Bool
	ticks   atomic.Uint64
}

// NewEngine creates an engine polling at the given interval.
func NewEngine(interval time.Duration) *Engine {
	return &Engine{Interval: interval}
}

// Run calls OnTick every Interval. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	slog.Info("simulation engine started", "interval", e.Interval)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for e.running.Load() {
		select {
		case <-ctx.Done():
			e.running.Store(false)
		case <-ticker.C:
			e.ticks.Add(1)
			if e.OnTick != nil {
				e.OnTick()
			}
		}
	}

	slog.Info("simulation engine stopped", "polls", e.ticks.Load())
}

// Stop halts the loop after the current poll.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}
