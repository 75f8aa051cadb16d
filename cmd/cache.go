package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/shared"
)

// CacheStats prints entry counts per cache namespace.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	store, err := r.store(ctx, false)
	if err != nil {
		return err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainln("%-20s %8s %8s %10s %8s", "NAMESPACE", "LIVE", "EXPIRED", "PERMANENT", "TOTAL")
	for _, s := range stats {
		r.writePlainln("%-20s %8d %8d %10d %8d", s.Namespace, s.Live, s.Expired, s.Permanent, s.Total())
	}
	return nil
}

// CacheTempo prints the stored tempo record of each track id.
func (r *Runner) CacheTempo(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track id", shared.ErrMissingArgument)
	}

	store, err := r.store(ctx, false)
	if err != nil {
		return err
	}

	records, err := repositories.NewTempoRepository(store, r.config.Pipeline.Retention.Duration).GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to read tempo records: %w", err)
	}

	for _, id := range ids {
		rec, ok := records[id]
		if !ok {
			r.writePlainln("%s\tnot cached", id)
			continue
		}
		r.writePlainln("%s\t%s\t%s\tfetched %s", id, rec.Status, rec.Tempo(), rec.FetchedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// CacheReset deletes the cache database file along with its WAL sidecars.
func (r *Runner) CacheReset(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	if path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		return fmt.Errorf("%w: database %s is in memory", shared.ErrInvalidArgument, path)
	}

	if !cmd.Bool("force") {
		return fmt.Errorf("%w: pass --force to delete %s", shared.ErrMissingArgument, path)
	}

	if r.db != nil && r.ownsDB {
		r.db.Close()
		r.db = nil
	}

	removed := 0
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}

	if removed == 0 {
		r.writePlainln("→ Nothing to reset; %s does not exist", path)
		return nil
	}

	r.logger.Info("cache reset", "path", path)
	r.writePlainln("✓ Deleted %s", path)
	return nil
}
