package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hubtwin/internal/shared"
	"github.com/desertthunder/hubtwin/internal/tasks"
	"github.com/desertthunder/hubtwin/internal/ui"
)

// runTUI runs the sync behind the interactive progress view.
func (r *Runner) runTUI(ctx context.Context, newEngine func(tasks.EngineOption) *tasks.Engine, opts tasks.RunOpts) (*tasks.SyncResult, error) {
	// Logs go to a file while the TUI owns the terminal
	logPath := filepath.Join("tmp", "hubtwin-tui.log")
	fileLogger, f, err := shared.NewFileLogger(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	fileLogger.SetLevel(r.logger.GetLevel())

	model := ui.NewModel(ctx, newEngine(tasks.WithLogger(fileLogger)), opts)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	r.logger.Debug("TUI closed", "log", logPath)
	return model.Result()
}
