package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JakeFAU/jobcontrol/internal/control"
	"github.com/JakeFAU/jobcontrol/internal/viewmodel"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(12)
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	tripStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	enabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 1)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (m model) View() string {
	if m.quitting {
		return ""
	}
	vm := m.vm
	settings := vm.Settings()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Job Control"))
	b.WriteString("\n\n")
	b.WriteString(row("Status", renderState(vm.Status())))
	b.WriteString(row("Speed", fmt.Sprintf("%s  (%d..%d)", vm.SpeedText(), settings.MinSpeed, settings.MaxSpeed)))
	b.WriteString(row("Interlock", renderInterlock(vm.InterlockActive())))
	b.WriteString(row("Updated", vm.LastUpdated().Format("15:04:05")))
	b.WriteString("\n")
	b.WriteString(strings.Join([]string{
		m.button("s", "Start", "start", vm.StartCmd),
		m.button("x", "Stop", "stop", vm.StopCmd),
		m.button("e", "E-Stop", "estop", vm.EStopCmd),
	}, " "))
	b.WriteString("\n")
	if msg := vm.Message(); msg != "" {
		b.WriteString("\n" + msg)
	}
	if m.lastErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.lastErr))
	}

	body := panelStyle.Render(b.String())
	footer := footerStyle.Render("0-9 edit speed  +/- step  r refresh  q quit")
	return body + "\n" + footer + "\n"
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func renderState(state control.RunState) string {
	switch state {
	case control.StateRunning:
		return runningStyle.Render(string(state))
	case control.StateError:
		return errorStyle.Render(string(state))
	default:
		return idleStyle.Render(string(state))
	}
}

func renderInterlock(active bool) string {
	if active {
		return tripStyle.Render("ACTIVE")
	}
	return idleStyle.Render("clear")
}

func (m model) button(key, label, name string, cmd viewmodel.Command) string {
	text := fmt.Sprintf("[%s] %s", key, label)
	if m.pending[name] {
		return disabledStyle.Render(text + "...")
	}
	if !cmd.CanExecute() {
		return disabledStyle.Render(text)
	}
	return enabledStyle.Render(text)
}
