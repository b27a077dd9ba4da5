package track

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"leadhound/internal/models"
)

// RunLister fetches the current scraper-run snapshot for the tracked search.
type RunLister interface {
	ListRuns(ctx context.Context) ([]models.ScrapeRun, error)
}

// Refresh bundles the dependent-data refresh callbacks a tracker fires when
// tracked state changes. Each func may be nil. Refreshes are idempotent reads
// of server state, so failures are logged and otherwise ignored.
type Refresh struct {
	Companies func(ctx context.Context) error
	Leads     func(ctx context.Context) error
	Summary   func(ctx context.Context) error
}

func (r Refresh) run(ctx context.Context) {
	for name, fn := range map[string]func(context.Context) error{
		"companies": r.Companies,
		"leads":     r.Leads,
		"summary":   r.Summary,
	} {
		if fn == nil {
			continue
		}
		if err := fn(ctx); err != nil {
			log.Printf("refresh %s error: %v", name, err)
		}
	}
}

const (
	DefaultRunInterval    = 2 * time.Second
	DefaultRunMaxDuration = 15 * time.Minute
	DefaultHeartbeatEvery = 5
)

// RunTrackerConfig configures a RunTracker. Zero values fall back to the
// defaults above.
type RunTrackerConfig struct {
	Lister         RunLister
	Refresh        Refresh
	Interval       time.Duration
	MaxDuration    time.Duration
	HeartbeatEvery int
	// Cleanup is the best-effort stale-run cleanup fired when the tracker
	// times out. Errors are swallowed; cleanup is advisory, not required for
	// correctness. May be nil.
	Cleanup func(ctx context.Context) error
	// Notify surfaces user-visible messages (timeout warnings). Defaults to
	// log.Printf.
	Notify func(format string, args ...any)
}

// RunTracker polls a run listing until every run reaches a terminal status or
// the session exceeds its maximum duration. On each snapshot it reconciles
// against the session's seen-terminal set so a run triggers the dependent
// refresh exactly once when it finishes, and fires a heartbeat refresh every
// HeartbeatEvery polls so in-progress counters keep updating.
type RunTracker struct {
	cfg     RunTrackerConfig
	session *Session
	now     func() time.Time

	mu     sync.Mutex
	poller *Poller
}

// NewRunTracker creates a tracker with an idle session.
func NewRunTracker(cfg RunTrackerConfig) *RunTracker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRunInterval
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultRunMaxDuration
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = DefaultHeartbeatEvery
	}
	if cfg.Notify == nil {
		cfg.Notify = log.Printf
	}
	return &RunTracker{
		cfg:     cfg,
		session: NewSession(),
		now:     time.Now,
	}
}

// Start activates the session and begins polling. If the tracker is already
// polling, the session is reset (fresh startedAt and seen set) and the
// existing poll loop keeps running; a second poller is never stacked.
func (t *RunTracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.Start(t.now())
	if t.poller != nil {
		select {
		case <-t.poller.Done():
			// Previous loop exited; fall through and start a new one.
		default:
			return
		}
	}
	p := NewPoller(t.cfg.Interval, t.tick)
	t.poller = p
	go p.Run(ctx)
}

// Stop halts polling without waiting for a terminal snapshot. Idempotent.
func (t *RunTracker) Stop() {
	t.mu.Lock()
	p := t.poller
	t.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Wait blocks until the poll loop exits and returns the session's final
// state. Returns immediately if Start was never called.
func (t *RunTracker) Wait() State {
	t.mu.Lock()
	p := t.poller
	t.mu.Unlock()
	if p != nil {
		<-p.Done()
	}
	return t.State()
}

// State returns the session's current lifecycle state.
func (t *RunTracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.State()
}

// tick performs one poll: timeout check first, then fetch, reconcile, and
// completion test. Returns ErrDone when the session ends.
func (t *RunTracker) tick(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A tick that fires after teardown must not mutate state or refresh.
	if !t.session.Active() {
		return ErrDone
	}
	poll := t.session.NextPoll()

	// Timeout is resolved before any other branch so a stuck backend can
	// never keep the session alive past its budget.
	if t.session.Elapsed(t.now()) > t.cfg.MaxDuration {
		t.cfg.Notify("scraper tracking timed out after %s; runs may still be in progress", t.cfg.MaxDuration)
		if t.cfg.Cleanup != nil {
			if err := t.cfg.Cleanup(ctx); err != nil {
				log.Printf("stale run cleanup error (ignored): %v", err)
			}
		}
		t.cfg.Refresh.run(ctx)
		t.session.TimeOut()
		return ErrDone
	}

	runs, err := t.cfg.Lister.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	newly := 0
	terminal := 0
	for _, run := range runs {
		if !run.Status.Terminal() {
			continue
		}
		terminal++
		if !t.session.Seen(run.ID) {
			newly++
			t.session.MarkSeen(run.ID)
		}
	}

	if newly > 0 {
		t.cfg.Refresh.run(ctx)
	} else if poll%t.cfg.HeartbeatEvery == 0 {
		// Heartbeat: keep in-progress counters fresh even without a state
		// transition. Does not touch the seen set.
		t.cfg.Refresh.run(ctx)
	}

	// An empty snapshot never completes the session: run records may not
	// exist yet right after the runs were queued.
	if len(runs) > 0 && terminal == len(runs) {
		t.cfg.Refresh.run(ctx)
		t.session.Complete()
		return ErrDone
	}
	return nil
}
