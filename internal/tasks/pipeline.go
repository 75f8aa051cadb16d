package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stride/internal/models"
	"github.com/desertthunder/stride/internal/shared"
)

// Collector gathers the seed tracks of a user.
type Collector interface {
	Collect(ctx context.Context, userID string) (*Collection, error)
}

// Expander grows seeds into a candidate pool.
type Expander interface {
	Expand(ctx context.Context, seeds []string, sink ProgressSink) (*Expansion, error)
}

// Resolver answers tempo for track ids.
type Resolver interface {
	Resolve(ctx context.Context, trackIDs []string, sink ProgressSink) (*Resolution, error)
}

// PipelineOptions tunes [Pipeline.Run].
type PipelineOptions struct {
	// ExpandThreshold skips expansion for libraries with at least this many tracks. 0 always expands.
	ExpandThreshold int
}

// Request describes one run.
type Request struct {
	UserID   string
	Cadence  int
	NoExpand bool
}

// Stats counts what a run did at each stage.
type Stats struct {
	LibrarySize      int
	LibraryCached    bool
	ExpansionSkipped bool
	SeedsExpanded    int
	SimilarCacheHits int
	SimilarLookups   int
	SeedFailures     int
	PoolSize         int
	TempoCacheHits   int
	TempoFetched     int
	TempoBatches     int
	TempoUnavailable int
	Selected         int
}

// Result is the outcome of a successful run.
type Result struct {
	RunID      string
	Cadence    int
	Window     Window
	Pool       []string
	Tempos     map[string]models.Tempo
	Selections []Selection
	Stats      Stats
	StartedAt  time.Time
	FinishedAt time.Time
}

// TrackIDs returns the selected track ids in pool order.
func (r *Result) TrackIDs() []string { return SelectionIDs(r.Selections) }

// Run converts the result to a run history record.
func (r *Result) Run(playlistID string) models.PipelineRun {
	return models.PipelineRun{
		ID:         r.RunID,
		Cadence:    r.Cadence,
		PoolSize:   len(r.Pool),
		Selected:   len(r.Selections),
		PlaylistID: playlistID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// Pipeline runs collect, expand, analyze and filter in order.
//
// Any stage error aborts the run; the cache keeps what was stored before the failure, so a retry resumes from it.
type Pipeline struct {
	collector Collector
	expander  Expander
	resolver  Resolver
	opts      PipelineOptions
	logger    *log.Logger
	now       func() time.Time
}

func NewPipeline(collector Collector, expander Expander, resolver Resolver, opts PipelineOptions, logger *log.Logger) *Pipeline {
	return &Pipeline{
		collector: collector,
		expander:  expander,
		resolver:  resolver,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes the pipeline for req, reporting progress to sink.
//
// An empty selection is a successful result.
func (p *Pipeline) Run(ctx context.Context, req Request, sink ProgressSink) (*Result, error) {
	if err := ValidateCadence(req.Cadence); err != nil {
		return nil, err
	}

	sink = sinkOrNop(sink)
	result := &Result{
		RunID:     shared.GenerateID(),
		Cadence:   req.Cadence,
		Window:    WindowFor(req.Cadence),
		StartedAt: p.now(),
	}
	logger := shared.WithLogger(p.logger, "run_id", result.RunID, "cadence", req.Cadence)
	logger.Info("pipeline started", "user", req.UserID)

	sink.Notify(collectStartUpdate())
	library, err := p.collector.Collect(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	result.Stats.LibrarySize = len(library.TrackIDs)
	result.Stats.LibraryCached = library.Cached
	sink.Notify(collectDoneUpdate(len(library.TrackIDs), library.Cached))

	result.Pool = library.TrackIDs
	if p.skipExpansion(req, len(library.TrackIDs)) {
		result.Stats.ExpansionSkipped = true
		sink.Notify(expandSkippedUpdate(len(library.TrackIDs), p.opts.ExpandThreshold))
	} else {
		expansion, err := p.expander.Expand(ctx, library.TrackIDs, sink)
		if err != nil {
			return nil, fmt.Errorf("expand: %w", err)
		}
		result.Pool = expansion.Pool
		result.Stats.SeedsExpanded = expansion.Expanded
		result.Stats.SimilarCacheHits = expansion.CacheHits
		result.Stats.SimilarLookups = expansion.Lookups
		result.Stats.SeedFailures = expansion.Failed
		sink.Notify(expandDoneUpdate(len(expansion.Pool), expansion.Expanded))
	}
	result.Stats.PoolSize = len(result.Pool)

	resolution, err := p.resolver.Resolve(ctx, result.Pool, sink)
	if err != nil {
		logger.Error("tempo resolution failed", "error", err)
		return nil, fmt.Errorf("analyze: %w", err)
	}
	result.Tempos = resolution.Tempos
	result.Stats.TempoCacheHits = resolution.CacheHits
	result.Stats.TempoFetched = resolution.Fetched
	result.Stats.TempoBatches = resolution.Batches
	result.Stats.TempoUnavailable = resolution.Unavailable

	result.Selections, err = SelectTracks(result.Pool, result.Tempos, req.Cadence)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	result.Stats.Selected = len(result.Selections)
	sink.Notify(filterDoneUpdate(len(result.Selections), result.Window))

	result.FinishedAt = p.now()
	logger.Info("pipeline finished",
		"pool", result.Stats.PoolSize,
		"selected", result.Stats.Selected,
		"duration", result.FinishedAt.Sub(result.StartedAt))
	return result, nil
}

func (p *Pipeline) skipExpansion(req Request, librarySize int) bool {
	if req.NoExpand {
		return true
	}
	return p.opts.ExpandThreshold > 0 && librarySize >= p.opts.ExpandThreshold
}
