package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diboas/diboas-go/internal/wizard"
)

// Run drives the wizard to completion in the terminal. It returns once
// the user launches the strategy or quits.
func Run(ctx context.Context, w *wizard.Wizard) error {
	program := tea.NewProgram(NewModel(ctx, w), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("wizard UI failed: %w", err)
	}
	return nil
}
