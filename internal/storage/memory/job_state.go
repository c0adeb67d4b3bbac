// Package memory provides the in-process holders behind the controller: the
// job state and the stub interlock gate. Both live for the life of the process.
package memory

import (
	"sync"

	"github.com/JakeFAU/jobcontrol/internal/control"
)

var (
	_ control.JobStore      = (*JobState)(nil)
	_ control.InterlockGate = (*InterlockGate)(nil)
)

// JobState holds the current job status, starting Idle with speed 0.
type JobState struct {
	mu     sync.RWMutex
	status control.Status
}

// NewJobState constructs an Idle JobState.
func NewJobState() *JobState {
	return &JobState{status: control.Status{State: control.StateIdle}}
}

// Load returns the current status.
func (s *JobState) Load() control.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Store replaces the current status.
func (s *JobState) Store(status control.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}
