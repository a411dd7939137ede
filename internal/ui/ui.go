package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Options configure the grid program.
type Options struct {
	Context   context.Context
	Grid      Grid
	Events    *Events
	BoatTypes BoatTypeLister
	Logger    *zap.Logger
	ThemeName string
	PrefsPath string
	LogPath   string
}

// Run shows the grid until the user quits or ctx is cancelled.
func Run(opts Options) error {
	if opts.Grid == nil {
		return fmt.Errorf("ui: grid is required")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Context = ctx

	program := tea.NewProgram(NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
