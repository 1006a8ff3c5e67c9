package health

import (
	"log/slog"
	"sync"
)

// State is the health of the Redis backed part of the service.
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// Status is the health state machine fed by the Checker.
type Status struct {
	mu             sync.RWMutex
	state          State
	lastKnownRunID string
	lastError      string
	log            *slog.Logger
}

// NewStatus returns a Status that starts healthy.
func NewStatus(log *slog.Logger) *Status {
	return &Status{state: StateHealthy, log: log}
}

// State returns the current state.
func (s *Status) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Healthy reports whether requests may touch Redis.
func (s *Status) Healthy() bool {
	return s.State() == StateHealthy
}

// LastError returns the text of the last failed check.
func (s *Status) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// SetInitialRunID records the run_id seen at startup.
func (s *Status) SetInitialRunID(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownRunID = runID
}

// Assess folds one check result into the state and reports whether the
// Redis data has to be rebuilt. A changed run_id means Redis restarted and
// lost whatever it held in memory.
func (s *Status) Assess(connected bool, runID string, checkErr error) (needsRebuild bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if checkErr != nil {
		s.lastError = checkErr.Error()
	} else {
		s.lastError = ""
	}
	restarted := connected && s.lastKnownRunID != "" && s.lastKnownRunID != runID

	switch s.state {
	case StateHealthy:
		if !connected {
			s.state = StateDegraded
			s.log.Warn("redis connection lost", "state", s.state, "error", checkErr)
		} else if restarted {
			s.state = StateRebuilding
			needsRebuild = true
			s.log.Warn("redis restart detected", "old_run_id", s.lastKnownRunID, "new_run_id", runID, "state", s.state)
		}
	case StateDegraded:
		if connected {
			if restarted {
				s.state = StateRebuilding
				needsRebuild = true
				s.log.Warn("redis recovered after a restart", "old_run_id", s.lastKnownRunID, "new_run_id", runID, "state", s.state)
			} else {
				s.state = StateHealthy
				s.log.Info("redis connection recovered", "state", s.state)
			}
		}
	case StateRebuilding:
		if !connected {
			s.state = StateDegraded
			s.log.Warn("redis connection lost during rebuild", "state", s.state, "error", checkErr)
		} else {
			// the previous rebuild failed
			needsRebuild = true
		}
	}

	if connected {
		s.lastKnownRunID = runID
	}
	return needsRebuild
}

// MarkRebuildComplete closes a rebuild attempt. A rebuild only counts when
// Redis did not restart again while it ran.
func (s *Status) MarkRebuildComplete(success bool, runIDAfterRebuild string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRebuilding {
		return
	}
	if success && s.lastKnownRunID != runIDAfterRebuild {
		s.log.Warn("redis restarted during rebuild, retrying", "old_run_id", s.lastKnownRunID, "new_run_id", runIDAfterRebuild)
		s.lastKnownRunID = runIDAfterRebuild
		return
	}
	if success {
		s.state = StateHealthy
		s.log.Info("redis rebuild complete", "state", s.state)
		return
	}
	s.log.Error("redis rebuild failed, will retry", "state", s.state)
}
