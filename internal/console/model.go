// Package console is a terminal front end over the view model.
package console

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JakeFAU/jobcontrol/internal/viewmodel"
)

const speedStep = 10

type tickMsg time.Time

type commandDoneMsg struct {
	name string
	err  error
}

type model struct {
	ctx     context.Context
	vm      *viewmodel.ViewModel
	refresh time.Duration

	pending  map[string]bool
	lastErr  string
	width    int
	quitting bool
}

func newModel(ctx context.Context, vm *viewmodel.ViewModel, refresh time.Duration) model {
	if refresh <= 0 {
		refresh = time.Second
	}
	return model{ctx: ctx, vm: vm, refresh: refresh, pending: map[string]bool{}}
}

func (m model) Init() tea.Cmd {
	return tick(m.refresh)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// runCommand executes cmd off the UI goroutine.
func (m model) runCommand(name string, cmd viewmodel.Command) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{name: name, err: cmd.Execute(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.vm.RefreshInterlock()
		return m, tick(m.refresh)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case commandDoneMsg:
		m.pending = clonePending(m.pending)
		delete(m.pending, msg.name)
		m.lastErr = ""
		if msg.err != nil {
			m.lastErr = fmt.Sprintf("%s: %v", msg.name, msg.err)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyBackspace:
		text := m.vm.SpeedText()
		if len(text) > 0 {
			m.vm.SetSpeedText(text[:len(text)-1])
		}
		return m, nil
	case tea.KeyRunes:
	default:
		return m, nil
	}

	key := msg.String()
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		m.vm.SetSpeedText(m.vm.SpeedText() + key)
		return m, nil
	}

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "s":
		return m.trigger("start", m.vm.StartCmd)
	case "x":
		return m.trigger("stop", m.vm.StopCmd)
	case "e":
		if err := m.vm.EStopCmd.Execute(m.ctx); err != nil {
			m.lastErr = err.Error()
		}
		return m, nil
	case "r":
		m.vm.RefreshInterlock()
		return m, nil
	case "+", "=":
		m.vm.SetSpeed(m.vm.Speed() + speedStep)
		return m, nil
	case "-":
		m.vm.SetSpeed(m.vm.Speed() - speedStep)
		return m, nil
	}
	return m, nil
}

func (m model) trigger(name string, cmd viewmodel.Command) (tea.Model, tea.Cmd) {
	if m.pending[name] || !cmd.CanExecute() {
		return m, nil
	}
	m.pending = clonePending(m.pending)
	m.pending[name] = true
	return m, m.runCommand(name, cmd)
}

// clonePending copies the map so earlier model values stay unchanged.
func clonePending(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
