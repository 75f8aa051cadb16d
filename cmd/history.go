package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/shared"
)

// History lists the most recent generate runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	db, err := r.database(ctx)
	if err != nil {
		return err
	}

	runs, err := repositories.NewRunRepository(db).List(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlainln("No runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		playlist := run.PlaylistID
		if playlist == "" {
			playlist = "-"
		}
		r.writePlainln("%s  %s  %d SPM  %d/%d tracks  %s  playlist %s",
			run.StartedAt.Local().Format("2006-01-02 15:04"), run.ID, run.Cadence, run.Selected, run.PoolSize,
			run.Duration().Round(time.Millisecond), playlist)
	}
	return nil
}
