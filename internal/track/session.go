package track

import "time"

// State is the lifecycle state of a tracking session.
type State int

const (
	Idle State = iota
	Active
	Completed
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Session holds the mutable state of one tracking operation: when it started,
// how many polls have run, and which run IDs were already observed terminal.
// A session is owned by the tracker that created it and lives only in memory.
type Session struct {
	state        State
	startedAt    time.Time
	pollCount    int
	seenTerminal map[string]struct{}
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{seenTerminal: make(map[string]struct{})}
}

// Start activates the session with a fresh startedAt, poll counter, and seen
// set. Calling Start on an already-active session resets it in place rather
// than stacking a second tracking operation.
func (s *Session) Start(now time.Time) {
	s.state = Active
	s.startedAt = now
	s.pollCount = 0
	s.seenTerminal = make(map[string]struct{})
}

// Active reports whether the session is currently being polled.
func (s *Session) Active() bool {
	return s.state == Active
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Elapsed returns wall-clock time since Start.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.startedAt)
}

// NextPoll increments the poll counter and returns it. The first tick of a
// session observes 1.
func (s *Session) NextPoll() int {
	s.pollCount++
	return s.pollCount
}

// Seen reports whether the run ID was already observed in a terminal status.
func (s *Session) Seen(id string) bool {
	_, ok := s.seenTerminal[id]
	return ok
}

// MarkSeen adds run IDs to the seen-terminal set. The set only grows within a
// session; an ID is never removed, so a run that disappears from a later
// snapshot cannot be re-reported as newly terminal.
func (s *Session) MarkSeen(ids ...string) {
	for _, id := range ids {
		s.seenTerminal[id] = struct{}{}
	}
}

// SeenCount returns the size of the seen-terminal set.
func (s *Session) SeenCount() int {
	return len(s.seenTerminal)
}

// Complete ends an active session normally. No-op if the session already
// ended, so teardown is idempotent.
func (s *Session) Complete() {
	if s.state == Active {
		s.state = Completed
	}
}

// TimeOut ends an active session via the timeout path. No-op if the session
// already ended.
func (s *Session) TimeOut() {
	if s.state == Active {
		s.state = TimedOut
	}
}
