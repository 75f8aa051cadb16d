package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stride/internal/models"
	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/services"
)

const (
	DefaultPoolCeiling  = 500
	DefaultSimilarLimit = 20
)

// ExpanderOptions bounds candidate expansion.
type ExpanderOptions struct {
	PoolCeiling  int // stop once the pool holds this many tracks
	SimilarLimit int // similar tracks requested per seed, at most [services.MaxSimilarLimit]
}

// Expansion is the outcome of [CandidateExpander.Expand].
type Expansion struct {
	Pool      []string // seeds first, then discovered tracks in discovery order
	Expanded  int      // seeds whose similar tracks were considered
	CacheHits int      // seeds answered from the recommendation cache
	Lookups   int      // similarity service calls
	Failed    int      // seeds skipped after a lookup error
}

// CandidateExpander grows a seed set with similar tracks until the pool ceiling is reached.
type CandidateExpander struct {
	similarity services.SimilarityService
	recs       *repositories.RecommendationRepository
	opts       ExpanderOptions
	logger     *log.Logger
	now        func() time.Time
}

func NewCandidateExpander(similarity services.SimilarityService, recs *repositories.RecommendationRepository, opts ExpanderOptions, logger *log.Logger) *CandidateExpander {
	if opts.PoolCeiling <= 0 {
		opts.PoolCeiling = DefaultPoolCeiling
	}
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = DefaultSimilarLimit
	}
	opts.SimilarLimit = min(opts.SimilarLimit, services.MaxSimilarLimit)

	return &CandidateExpander{
		similarity: similarity,
		recs:       recs,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Expand returns the deduplicated candidate pool for seeds.
//
// Seeds are visited in order. A seed whose lookup fails is logged and skipped. A cancelled context stops
// expansion and returns its error with the pool built so far.
func (e *CandidateExpander) Expand(ctx context.Context, seeds []string, sink ProgressSink) (*Expansion, error) {
	sink = sinkOrNop(sink)
	pool := newOrderedSet(seeds...)
	result := &Expansion{}
	unique := pool.items()

	for i, seed := range unique {
		if pool.len() >= e.opts.PoolCeiling {
			break
		}
		if err := ctx.Err(); err != nil {
			result.Pool = pool.items()
			return result, err
		}

		similar, cached, err := e.similar(ctx, seed)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				result.Pool = pool.items()
				return result, err
			}
			result.Failed++
			e.logger.Warn("similar track lookup failed, skipping seed", "seed", seed, "error", err)
			continue
		}
		if cached {
			result.CacheHits++
		} else {
			result.Lookups++
		}
		result.Expanded++

		added := 0
		for _, id := range similar {
			if pool.len() >= e.opts.PoolCeiling {
				break
			}
			added += pool.add(id)
		}
		sink.Notify(expandSeedUpdate(i+1, len(unique), seed, added))
	}

	result.Pool = pool.items()
	e.logger.Debug("expansion finished", "pool", len(result.Pool), "expanded", result.Expanded, "failed", result.Failed)
	return result, nil
}

// similar returns the similar tracks for seed and whether they came from the cache.
func (e *CandidateExpander) similar(ctx context.Context, seed string) ([]string, bool, error) {
	entry, ok, err := e.recs.Get(ctx, seed)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read recommendations: %w", err)
	}
	if ok {
		return entry.TrackIDs, true, nil
	}

	ids, err := e.similarity.Similar(ctx, seed, e.opts.SimilarLimit)
	if err != nil {
		return nil, false, err
	}

	entry = models.RecommendationEntry{SeedTrackID: seed, TrackIDs: ids, FetchedAt: e.now()}
	if err := e.recs.Save(ctx, entry); err != nil {
		e.logger.Warn("failed to cache recommendations", "seed", seed, "error", err)
	}
	return ids, false, nil
}
