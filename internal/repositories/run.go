package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/stride/internal/models"
)

// RunRepository persists [models.PipelineRun] history in the pipeline_runs table.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a finished run.
func (r *RunRepository) Create(ctx context.Context, run models.PipelineRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO pipeline_runs (id, cadence, pool_size, selected, playlist_id, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var playlistID any = run.PlaylistID
	if run.PlaylistID == "" {
		playlistID = nil
	}

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Cadence,
		run.PoolSize,
		run.Selected,
		playlistID,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (models.PipelineRun, error) {
	query := `
		SELECT id, cadence, pool_size, selected, playlist_id, started_at, finished_at
		FROM pipeline_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PipelineRun{}, fmt.Errorf("run not found: %s", id)
	}
	return run, err
}

// List returns the most recent runs, newest first. A non-positive limit returns every run.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	query := `
		SELECT id, cadence, pool_size, selected, playlist_id, started_at, finished_at
		FROM pipeline_runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a [sql.Row] or the current row of [sql.Rows] into a [models.PipelineRun]
func scanRun(row scanner) (models.PipelineRun, error) {
	var (
		run        models.PipelineRun
		playlistID sql.NullString
		startedAt  int64
		finishedAt int64
	)

	err := row.Scan(&run.ID, &run.Cadence, &run.PoolSize, &run.Selected, &playlistID, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}

	if playlistID.Valid {
		run.PlaylistID = playlistID.String
	}
	run.StartedAt = time.UnixMilli(startedAt)
	run.FinishedAt = time.UnixMilli(finishedAt)

	return run, nil
}
