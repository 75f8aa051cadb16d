package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/tasks"
	"github.com/desertthunder/stride/internal/ui"
)

// generateTUI runs a prepared pipeline behind the interactive terminal UI.
func (r *Runner) generateTUI(ctx context.Context, run *generateRun) error {
	opts := ui.Options{
		Cadence:      run.opts.Cadence,
		PlaylistName: tasks.PlaylistName(r.config.Playlist.NameTemplate, run.opts.Cadence),
		Run: func(ctx context.Context, sink tasks.ProgressSink) (*tasks.Result, error) {
			return run.pipeline.Run(ctx, run.req, sink)
		},
	}
	if !run.opts.DryRun {
		opts.Publish = func(ctx context.Context, result *tasks.Result, sink tasks.ProgressSink) (*services.Playlist, error) {
			return tasks.CreatePlaylist(ctx, run.streaming, run.userID, result, r.playlistOptions(), sink)
		}
	}

	model := ui.NewModel(ctx, opts)
	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	r.recordRun(ctx, run.opts.Ephemeral, model.Result(), model.Playlist())
	if model.Result() != nil {
		if err := r.exportSelection(run.opts.Output, model.Result(), model.Playlist()); err != nil {
			return err
		}
	}
	return model.Err()
}
