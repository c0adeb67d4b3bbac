package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobcontrol/internal/control"
)

var (
	_ control.JobStore      = (*JobState)(nil)
	_ control.InterlockGate = (*InterlockGate)(nil)
)

func TestJobStateLifecycle(t *testing.T) {
	t.Parallel()

	state := NewJobState()
	require.Equal(t, control.Status{State: control.StateIdle, Speed: 0}, state.Load())

	state.Store(control.Status{State: control.StateRunning, Speed: 120})
	require.Equal(t, control.Status{State: control.StateRunning, Speed: 120}, state.Load())
}

func TestJobStateConcurrentAccess(t *testing.T) {
	t.Parallel()

	state := NewJobState()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(speed int) {
			defer wg.Done()
			state.Store(control.Status{State: control.StateRunning, Speed: speed})
		}(i)
		go func() {
			defer wg.Done()
			got := state.Load()
			if got.State == control.StateIdle {
				require.Zero(t, got.Speed)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, control.StateRunning, state.Load().State)
}

func TestInterlockGateToggle(t *testing.T) {
	t.Parallel()

	gate := NewInterlockGate()
	require.False(t, gate.Active())
	gate.SetActive(true)
	require.True(t, gate.Active())
	gate.SetActive(false)
	require.False(t, gate.Active())
}
