package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stride/internal/formatter"
	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/shared"
	"github.com/desertthunder/stride/internal/tasks"
)

// generateOptions are the generate command's flags.
type generateOptions struct {
	Cadence   int
	DryRun    bool
	TUI       bool
	NoExpand  bool
	Ephemeral bool
	Output    string
}

func newGenerateOptions(cmd *cli.Command) generateOptions {
	return generateOptions{
		Cadence:   cmd.Int("cadence"),
		DryRun:    cmd.Bool("dry-run"),
		TUI:       cmd.Bool("tui"),
		NoExpand:  cmd.Bool("no-expand"),
		Ephemeral: cmd.Bool("ephemeral"),
		Output:    cmd.String("output"),
	}
}

// generateRun is a pipeline ready to run for the current user.
type generateRun struct {
	opts      generateOptions
	streaming services.StreamingService
	userID    string
	req       tasks.Request
	pipeline  *tasks.Pipeline
}

// prepareGenerate resolves the user and wires the pipeline. In TUI mode logs move to
// the log file first, so nothing built here writes to the terminal.
func (r *Runner) prepareGenerate(ctx context.Context, opts generateOptions) (*generateRun, error) {
	if err := tasks.ValidateCadence(opts.Cadence); err != nil {
		return nil, err
	}

	if opts.TUI {
		fileLogger, err := shared.NewFileLogger(r.logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	streaming, err := r.streamingService(ctx)
	if err != nil {
		return nil, err
	}

	user, err := streaming.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	store, err := r.store(ctx, opts.Ephemeral)
	if err != nil {
		return nil, err
	}

	return &generateRun{
		opts:      opts,
		streaming: streaming,
		userID:    user.ID,
		req:       tasks.Request{UserID: user.ID, Cadence: opts.Cadence, NoExpand: opts.NoExpand},
		pipeline:  r.pipeline(store, streaming),
	}, nil
}

// Generate runs the pipeline for --cadence and writes the selection to a new playlist.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	run, err := r.prepareGenerate(ctx, newGenerateOptions(cmd))
	if err != nil {
		return err
	}

	if run.opts.TUI {
		return r.generateTUI(ctx, run)
	}

	r.logger.Info("generating playlist", "user", run.userID, "cadence", run.opts.Cadence)
	result, err := run.pipeline.Run(ctx, run.req, tasks.LogSink{Logger: r.logger})
	if err != nil {
		return err
	}

	r.printSelection(result)

	var playlist *services.Playlist
	switch {
	case len(result.Selections) == 0:
		r.writePlainln("⚠ No tracks matched %s BPM; no playlist created.", result.Window)
	case run.opts.DryRun:
		r.writePlainln("→ Dry run: no playlist created.")
	default:
		playlist, err = tasks.CreatePlaylist(ctx, run.streaming, run.userID, result, r.playlistOptions(), tasks.LogSink{Logger: r.logger})
		if err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}
		r.writePlainln("✓ Created playlist %q with %d tracks", playlist.Name, playlist.TrackCount)
		r.writePlainln("  %s", playlist.URL)
		if playlist.EmbedURL != "" {
			r.writePlainln("  embed: %s", playlist.EmbedURL)
		}
	}

	r.recordRun(ctx, run.opts.Ephemeral, result, playlist)
	return r.exportSelection(run.opts.Output, result, playlist)
}

func (r *Runner) playlistOptions() tasks.PlaylistOptions {
	return tasks.PlaylistOptions{
		NameTemplate: r.config.Playlist.NameTemplate,
		Description:  r.config.Playlist.Description,
		Public:       r.config.Playlist.Public,
	}
}

func (r *Runner) printSelection(result *tasks.Result) {
	stats := result.Stats
	r.writePlainln("✓ Selected %d of %d tracks for %d SPM (%s BPM)", stats.Selected, stats.PoolSize, result.Cadence, result.Window)

	source := "fetched"
	if stats.LibraryCached {
		source = "cached"
	}
	r.writePlainln("  library: %d tracks (%s)", stats.LibrarySize, source)
	if stats.ExpansionSkipped {
		r.writePlainln("  expansion: skipped")
	} else {
		r.writePlainln("  expansion: %d seeds, %d cached, %d failed", stats.SeedsExpanded, stats.SimilarCacheHits, stats.SeedFailures)
	}
	r.writePlainln("  tempo: %d cached, %d fetched in %d batches, %d unavailable",
		stats.TempoCacheHits, stats.TempoFetched, stats.TempoBatches, stats.TempoUnavailable)
}

// recordRun stores the run in history. Ephemeral runs have no database to record into.
func (r *Runner) recordRun(ctx context.Context, ephemeral bool, result *tasks.Result, playlist *services.Playlist) {
	if ephemeral || result == nil {
		return
	}

	db, err := r.database(ctx)
	if err != nil {
		r.logger.Warn("failed to open database for run history", "error", err)
		return
	}

	playlistID := ""
	if playlist != nil {
		playlistID = playlist.ID
	}
	if err := repositories.NewRunRepository(db).Create(ctx, result.Run(playlistID)); err != nil {
		r.logger.Warn("failed to record run", "run_id", result.RunID, "error", err)
	}
}

func (r *Runner) exportSelection(path string, result *tasks.Result, playlist *services.Playlist) error {
	if path == "" {
		return nil
	}

	name, url := tasks.PlaylistName(r.config.Playlist.NameTemplate, result.Cadence), ""
	if playlist != nil {
		name, url = playlist.Name, playlist.URL
	}

	written, err := formatter.WriteExport(formatter.NewReport(result, name, url), path)
	if err != nil {
		return err
	}
	r.writePlainln("✓ Exported selection to %s", written)
	return nil
}
