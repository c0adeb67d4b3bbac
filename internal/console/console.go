package console

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JakeFAU/jobcontrol/internal/viewmodel"
)

// Run drives the terminal UI until the user quits or ctx is canceled.
func Run(ctx context.Context, vm *viewmodel.ViewModel, refresh time.Duration, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(newModel(ctx, vm, refresh), opts...)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
