// Package monitorstate implements the per-destination rolling state and
// threshold state machine: a bounded history, consecutive-success/failure
// counters, and status transitions.
package monitorstate

import (
	"sync"

	"github.com/arguslabs/argus-go/internal/types"
)

// State holds one destination's mutable monitoring state behind a single
// lock. Construct with New; share by pointer, never copy.
type State struct {
	mu sync.Mutex

	destination types.Destination
	description string

	history        []types.ProbeOutcome
	historyCap     int
	last           types.ProbeOutcome
	consecutiveOK  int
	consecutiveBad int
	status         types.Status
}

// New builds an Ok state for dest.
func New(dest types.Destination) *State {
	return &State{
		destination: dest,
		description: dest.Test.Description(),
		historyCap:  dest.EffectiveHistoryCap(),
		status:      types.StatusOK,
	}
}

// AddOutcome appends o to the history (evicting the oldest entry beyond
// cap), updates Last, and runs the threshold state machine.
// Returns (previousStatus, newStatus) for transition detection.
func (s *State) AddOutcome(o types.ProbeOutcome) (prev, next types.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.status
	s.last = o
	s.history = append(s.history, o)
	if len(s.history) > s.historyCap {
		s.history = s.history[len(s.history)-s.historyCap:]
	}

	if o.Success {
		s.consecutiveOK++
		s.consecutiveBad = 0
		if s.status != types.StatusOK && s.consecutiveOK >= s.destination.Reset {
			s.status = types.StatusOK
			s.consecutiveOK = 0
		}
	} else {
		s.consecutiveBad++
		s.consecutiveOK = 0
		switch {
		case s.consecutiveBad >= s.destination.Failure:
			s.status = types.StatusFailure
		case s.consecutiveBad >= s.destination.Warning:
			s.status = types.StatusWarning
		}
	}

	next = s.status
	return prev, next
}

// Status returns the current status.
func (s *State) Status() types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Last returns the most recent outcome.
func (s *State) Last() types.ProbeOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ConsecutiveOK returns the current consecutive-success count.
func (s *State) ConsecutiveOK() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveOK
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (s *State) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveBad
}

// HistorySnapshot returns a copy of the bounded history, oldest first.
func (s *State) HistorySnapshot() []types.ProbeOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ProbeOutcome, len(s.history))
	copy(out, s.history)
	return out
}

// UptimePercent returns 100 * successes/len(history), or 0 if history is
// empty.
func (s *State) UptimePercent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return 0
	}
	ok := 0
	for _, o := range s.history {
		if o.Success {
			ok++
		}
	}
	return 100 * float64(ok) / float64(len(s.history))
}

// TestDescription returns the human-readable test summary computed at
// construction.
func (s *State) TestDescription() string {
	return s.description
}

// Destination returns the underlying (immutable) destination definition.
func (s *State) Destination() types.Destination {
	return s.destination
}

// ResetAll forces the state back to Ok with both counters cleared, the
// forced re-arming path used by the registry's restart_failed_monitors
// operational hook.
func (s *State) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveOK = 0
	s.consecutiveBad = 0
	s.status = types.StatusOK
}
