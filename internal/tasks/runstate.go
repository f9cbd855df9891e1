package tasks

import (
	"sync"
	"time"
)

// RunState is the process-wide view of the sync loop, read by the
// monitoring surface and the status command. One instance lives for the
// whole process; only the engine mutates it.
type RunState struct {
	mu sync.RWMutex

	phase       Phase
	configValid bool
	lastReport  *Report
	lastSyncAt  time.Time
	cycleCount  int
	nextSyncAt  time.Time
}

// StateSnapshot is an immutable copy of [RunState] safe to serialize.
type StateSnapshot struct {
	Phase       string    `json:"phase"`
	ConfigValid bool      `json:"config_valid"`
	LastReport  *Report   `json:"last_report,omitempty"`
	LastSyncAt  time.Time `json:"last_sync_at,omitzero"`
	NextSyncAt  time.Time `json:"next_sync_at,omitzero"`
	CycleCount  int       `json:"cycle_count"`
}

// NewRunState creates a run state starting idle with a valid config.
func NewRunState() *RunState {
	return &RunState{configValid: true}
}

func (s *RunState) setPhase(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

// SetConfigValid records the result of the latest configuration check.
func (s *RunState) SetConfigValid(valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configValid = valid
}

// ConfigValid reports whether the last loaded configuration passed validation.
func (s *RunState) ConfigValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configValid
}

func (s *RunState) recordReport(report *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = report
	s.lastSyncAt = report.FinishedAt
	s.cycleCount++
}

func (s *RunState) setNextSync(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSyncAt = at
}

// Snapshot returns a point-in-time copy for serialization.
func (s *RunState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateSnapshot{
		Phase:       s.phase.String(),
		ConfigValid: s.configValid,
		LastReport:  s.lastReport,
		LastSyncAt:  s.lastSyncAt,
		NextSyncAt:  s.nextSyncAt,
		CycleCount:  s.cycleCount,
	}
}
