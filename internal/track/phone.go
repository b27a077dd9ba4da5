package track

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// PendingFetcher reports how many phone-enrichment jobs are still pending.
type PendingFetcher interface {
	PendingPhones(ctx context.Context) (int, error)
}

const (
	DefaultPhoneInterval    = 3 * time.Second
	DefaultPhoneMaxDuration = 5 * time.Minute
)

// PhoneTrackerConfig configures a PhoneTracker. Zero values fall back to the
// defaults above.
type PhoneTrackerConfig struct {
	Fetcher     PendingFetcher
	Refresh     Refresh
	Interval    time.Duration
	MaxDuration time.Duration
	Notify      func(format string, args ...any)
}

// PhoneTracker polls the phone-enrichment pending count until it reaches zero
// or the session times out. A decrease between polls means phone numbers
// arrived: the dependent data is refreshed and the owner is notified. Unlike
// the run tracker there is no remote cleanup on timeout, only an advisory.
type PhoneTracker struct {
	cfg     PhoneTrackerConfig
	session *Session
	now     func() time.Time

	mu          sync.Mutex
	poller      *Poller
	prevPending int
}

// NewPhoneTracker creates a tracker with an idle session.
func NewPhoneTracker(cfg PhoneTrackerConfig) *PhoneTracker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPhoneInterval
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultPhoneMaxDuration
	}
	if cfg.Notify == nil {
		cfg.Notify = log.Printf
	}
	return &PhoneTracker{
		cfg:     cfg,
		session: NewSession(),
		now:     time.Now,
	}
}

// Start activates the session. initialPending is the count reported when the
// batch was queued; the first decrease is detected relative to it. Starting
// while already polling resets the session in place.
func (t *PhoneTracker) Start(ctx context.Context, initialPending int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.Start(t.now())
	t.prevPending = initialPending
	if t.poller != nil {
		select {
		case <-t.poller.Done():
		default:
			return
		}
	}
	p := NewPoller(t.cfg.Interval, t.tick)
	t.poller = p
	go p.Run(ctx)
}

// Stop halts polling. Idempotent.
func (t *PhoneTracker) Stop() {
	t.mu.Lock()
	p := t.poller
	t.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Wait blocks until the poll loop exits and returns the final session state.
func (t *PhoneTracker) Wait() State {
	t.mu.Lock()
	p := t.poller
	t.mu.Unlock()
	if p != nil {
		<-p.Done()
	}
	return t.State()
}

// State returns the session's current lifecycle state.
func (t *PhoneTracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.State()
}

func (t *PhoneTracker) tick(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.session.Active() {
		return ErrDone
	}
	t.session.NextPoll()

	if t.session.Elapsed(t.now()) > t.cfg.MaxDuration {
		t.cfg.Notify("phone enrichment still pending after %s; refresh manually to see late arrivals", t.cfg.MaxDuration)
		t.cfg.Refresh.run(ctx)
		t.session.TimeOut()
		return ErrDone
	}

	pending, err := t.cfg.Fetcher.PendingPhones(ctx)
	if err != nil {
		return fmt.Errorf("phone status: %w", err)
	}

	if pending < t.prevPending {
		t.cfg.Refresh.run(ctx)
		t.cfg.Notify("phone numbers arrived; %d still pending", pending)
	}
	t.prevPending = pending

	if pending == 0 {
		t.cfg.Refresh.run(ctx)
		t.session.Complete()
		return ErrDone
	}
	return nil
}
