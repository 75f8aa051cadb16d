package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stride/internal/shared"
	"github.com/desertthunder/stride/internal/tasks"
)

// trackTempo is one line of analyze output.
type trackTempo struct {
	TrackID string   `json:"track_id"`
	BPM     *float64 `json:"bpm"`
}

// Analyze resolves the tempo of the given track ids through the cache.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track id", shared.ErrMissingArgument)
	}

	store, err := r.store(ctx, false)
	if err != nil {
		return err
	}

	resolution, err := r.resolver(store).Resolve(ctx, ids, tasks.LogSink{Logger: r.logger})
	if err != nil {
		return err
	}
	r.logger.Debug("tempo lookup complete", "cached", resolution.CacheHits, "fetched", resolution.Fetched, "batches", resolution.Batches)

	rows := make([]trackTempo, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		row := trackTempo{TrackID: id}
		if tempo := resolution.Tempos[id]; tempo.Known {
			bpm := tempo.BPM
			row.BPM = &bpm
		}
		rows = append(rows, row)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	for _, row := range rows {
		r.writePlainln("%s\t%s", row.TrackID, resolution.Tempos[row.TrackID])
	}
	return nil
}
