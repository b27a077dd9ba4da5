// Package track polls asynchronous backend jobs (scraper runs, phone
// enrichment) to completion: fixed-interval status checks, reconciliation of
// each snapshot against already-seen state, dependent-data refreshes on
// transitions, and a wall-clock timeout with best-effort cleanup.
package track

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrDone is returned by a tick callback to stop the poller. It marks normal
// termination (completion or timeout), not a failure.
var ErrDone = errors.New("tracking finished")

// Poller invokes a tick callback on a fixed cadence until the callback
// returns ErrDone, Stop is called, or the context is cancelled. Ticks run
// serialized on a single goroutine: a tick fully resolves before the next
// timer firing is considered. Any other error from a tick is logged and
// polling continues; a single failed check is not fatal.
type Poller struct {
	interval time.Duration
	onTick   func(ctx context.Context) error

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller. interval must be positive.
func NewPoller(interval time.Duration, onTick func(ctx context.Context) error) *Poller {
	return &Poller{
		interval: interval,
		onTick:   onTick,
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drives the tick loop. It returns when the tick callback reports ErrDone,
// Stop is called, or ctx is cancelled. No tick starts after Stop is requested.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopped:
			return
		case <-ticker.C:
		}
		// Re-check after the timer fires so a Stop that raced the tick wins.
		select {
		case <-p.stopped:
			return
		default:
		}
		if err := p.onTick(ctx); err != nil {
			if errors.Is(err, ErrDone) {
				return
			}
			log.Printf("poll tick error: %v", err)
		}
	}
}

// Stop requests the poller to halt. Safe to call multiple times and safe to
// call after Run has already returned.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}

// Done is closed when Run returns.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}
