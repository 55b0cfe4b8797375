// Package scheduler runs the periodic matchmaking driver: a fixed-interval
// tick that sweeps expired connections and pairs available users for every
// active event.
package scheduler

import (
	"context"
	"log"
	"time"
)

// Pass is the unit of work the scheduler drives each tick. The game
// service implements it.
type Pass interface {
	RunPass(ctx context.Context) error
}

// Scheduler invokes the game pass on a fixed interval. Ticks run
// sequentially in a single goroutine, so a slow pass delays the next tick
// instead of overlapping with it; each pass gets its own timeout so one
// stuck query cannot wedge the loop forever. An optional cleanup hook runs
// after every pass for housekeeping such as purging expired refresh
// tokens.
type Scheduler struct {
	pass     Pass
	interval time.Duration
	timeout  time.Duration
	cleanup  func(context.Context) error
}

// New returns a Scheduler driving the given pass. Non-positive durations
// fall back to a one-minute interval and a per-pass timeout equal to the
// interval; cleanup may be nil.
func New(p Pass, interval, timeout time.Duration, cleanup func(context.Context) error) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &Scheduler{pass: p, interval: interval, timeout: timeout, cleanup: cleanup}
}

// Run executes passes until ctx is cancelled. The first pass fires after
// one full interval, not immediately; starting an event triggers its own
// pairing pass so there is nothing to catch up on at boot. Errors are
// logged and the loop keeps going; the next tick retries naturally.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("scheduler: pass every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, s.timeout)
			if err := s.pass.RunPass(passCtx); err != nil {
				log.Printf("scheduler: pass failed: %v", err)
			}
			if s.cleanup != nil {
				if err := s.cleanup(passCtx); err != nil {
					log.Printf("scheduler: cleanup failed: %v", err)
				}
			}
			cancel()
		}
	}
}
