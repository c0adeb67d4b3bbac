package console

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobcontrol/internal/control"
	"github.com/JakeFAU/jobcontrol/internal/driver/simulated"
	"github.com/JakeFAU/jobcontrol/internal/storage/memory"
	"github.com/JakeFAU/jobcontrol/internal/viewmodel"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC) }

func newTestModel(t *testing.T) (model, *memory.InterlockGate, *simulated.Driver) {
	t.Helper()
	gate := memory.NewInterlockGate()
	driver := simulated.New(simulated.Config{}, nil)
	ctrl := control.NewController(memory.NewJobState(), gate, driver, fixedClock{}, nil, nil, nil)
	vm := viewmodel.New(ctrl, fixedClock{}, viewmodel.DefaultSettings, nil)
	return newModel(context.Background(), vm, time.Second), gate, driver
}

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func apply(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return got, cmd
}

// press sends a key and runs the resulting command, if any, back through
// Update the way the program loop would.
func press(t *testing.T, m model, k string) model {
	t.Helper()
	m, cmd := apply(t, m, key(k))
	if cmd == nil {
		return m
	}
	msg := cmd()
	if _, ok := msg.(commandDoneMsg); !ok {
		return m
	}
	m, _ = apply(t, m, msg)
	return m
}

func TestStartAndStopKeys(t *testing.T) {
	t.Parallel()

	m, _, driver := newTestModel(t)
	m = press(t, m, "s")
	require.Equal(t, control.StateRunning, m.vm.Status())
	running, speed := driver.Commanded()
	require.True(t, running)
	require.Equal(t, 100, speed)
	require.Empty(t, m.pending)

	m = press(t, m, "x")
	require.Equal(t, control.StateIdle, m.vm.Status())
}

func TestStartPendingUntilDone(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m, cmd := apply(t, m, key("s"))
	require.NotNil(t, cmd)
	require.True(t, m.pending["start"])

	again, second := apply(t, m, key("s"))
	require.Nil(t, second, "start is ignored while in flight")
	require.True(t, again.pending["start"])

	m, _ = apply(t, m, cmd())
	require.False(t, m.pending["start"])
}

func TestStopKeyIgnoredWhenIdle(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m, cmd := apply(t, m, key("x"))
	require.Nil(t, cmd)
	require.Equal(t, control.StateIdle, m.vm.Status())
}

func TestEmergencyStopKey(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m = press(t, m, "s")
	m = press(t, m, "e")
	require.Equal(t, control.StateIdle, m.vm.Status())
	require.Equal(t, "Emergency stop", m.vm.Message())
}

func TestSpeedKeys(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m = press(t, m, "+")
	require.Equal(t, 110, m.vm.Speed())
	m = press(t, m, "-")
	m = press(t, m, "-")
	require.Equal(t, 90, m.vm.Speed())

	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, "9", m.vm.SpeedText())
	require.Equal(t, 9, m.vm.Speed())
	m = press(t, m, "5")
	require.Equal(t, 95, m.vm.Speed())

	for i := 0; i < 3; i++ {
		m = press(t, m, "9")
	}
	require.Equal(t, "95999", m.vm.SpeedText())
	require.Equal(t, 959, m.vm.Speed(), "out of range text leaves speed unchanged")
}

func TestTickRefreshesInterlock(t *testing.T) {
	t.Parallel()

	m, gate, _ := newTestModel(t)
	gate.SetActive(true)

	m, cmd := apply(t, m, tickMsg(time.Now()))
	require.NotNil(t, cmd, "tick reschedules itself")
	require.True(t, m.vm.InterlockActive())

	m, cmd = apply(t, m, key("s"))
	require.Nil(t, cmd, "start is disabled while the interlock is active")
	require.Contains(t, m.View(), "ACTIVE")
}

func TestRefreshKey(t *testing.T) {
	t.Parallel()

	m, gate, _ := newTestModel(t)
	gate.SetActive(true)
	m = press(t, m, "r")
	require.True(t, m.vm.InterlockActive())
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m, cmd := apply(t, m, key("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Empty(t, m.View())
}

func TestCommandErrorShown(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m, _ = apply(t, m, commandDoneMsg{name: "stop", err: viewmodel.ErrCannotExecute})
	require.Contains(t, m.View(), "stop: command cannot execute")
}

func TestViewShowsState(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	view := m.View()
	for _, want := range []string{"Job Control", "Idle", "100", "clear", "[s] Start", "[x] Stop", "[e] E-Stop", "08:30:00"} {
		require.True(t, strings.Contains(view, want), "view missing %q:\n%s", want, view)
	}

	m = press(t, m, "s")
	require.Contains(t, m.View(), "Running")
}

func TestWindowSize(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)
	m, _ = apply(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	require.Equal(t, 80, m.width)
	require.NotNil(t, m.Init())
}
