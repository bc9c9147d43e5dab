package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive session and blocks until the user quits.
// Only a missing downloader is returned as an error; job failures are shown
// in the UI and the user may retry.
func Run(ctx context.Context, cfg Config) error {
	m := NewModel(ctx, cfg)
	defer m.cancel()

	prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if fm, ok := final.(Model); ok && fm.fatal != nil {
		return fm.fatal
	}
	return nil
}
