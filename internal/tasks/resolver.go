package tasks

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stride/internal/models"
	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/services"
)

// Resolution is the outcome of [TempoResolver.Resolve].
type Resolution struct {
	Tempos      map[string]models.Tempo
	CacheHits   int // ids answered from stored records, unavailable ones included
	Fetched     int // ids sent to the tempo service
	Batches     int // tempo service calls
	Unavailable int // ids with no tempo in the result
}

// Known counts ids with a known tempo.
func (r *Resolution) Known() int {
	n := 0
	for _, t := range r.Tempos {
		if t.Known {
			n++
		}
	}
	return n
}

// TempoResolver answers tempo for a set of tracks, consulting stored records before the tempo service.
//
// Every fetched id is recorded: resolved when the service returned a tempo, unavailable otherwise.
// Unavailable records are permanent, so those ids are never sent again.
type TempoResolver struct {
	tempo     services.TempoService
	records   *repositories.TempoRepository
	batchSize int
	logger    *log.Logger
	now       func() time.Time
}

func NewTempoResolver(tempo services.TempoService, records *repositories.TempoRepository, batchSize int, logger *log.Logger) *TempoResolver {
	if batchSize <= 0 || batchSize > services.MaxTempoBatch {
		batchSize = services.MaxTempoBatch
	}
	return &TempoResolver{
		tempo:     tempo,
		records:   records,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve returns a tempo for every id in trackIDs.
//
// On a batch failure the returned resolution holds everything resolved before it, along with the error.
// Records for completed batches are already stored.
func (r *TempoResolver) Resolve(ctx context.Context, trackIDs []string, sink ProgressSink) (*Resolution, error) {
	sink = sinkOrNop(sink)
	ids := newOrderedSet(trackIDs...).items()
	result := &Resolution{Tempos: make(map[string]models.Tempo, len(ids))}

	stored, err := r.records.GetMany(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("failed to read tempo records: %w", err)
	}

	var missing []string
	for _, id := range ids {
		rec, ok := stored[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		result.Tempos[id] = rec.Tempo()
		result.CacheHits++
	}
	sink.Notify(analyzeCachedUpdate(len(ids), result.CacheHits))

	batches := slices.Collect(slices.Chunk(missing, r.batchSize))
	for i, batch := range batches {
		sink.Notify(analyzeBatchUpdate(i+1, len(batches), len(batch)))

		if err := r.resolveBatch(ctx, batch, result); err != nil {
			result.Unavailable = len(result.Tempos) - result.Known()
			return result, fmt.Errorf("tempo batch %d of %d: %w", i+1, len(batches), err)
		}
	}

	result.Unavailable = len(result.Tempos) - result.Known()
	sink.Notify(analyzeDoneUpdate(result.Known(), len(ids)))
	r.logger.Debug("tempos resolved", "ids", len(ids), "cached", result.CacheHits, "fetched", result.Fetched, "batches", result.Batches)
	return result, nil
}

func (r *TempoResolver) resolveBatch(ctx context.Context, batch []string, result *Resolution) error {
	result.Batches++
	found, err := r.tempo.Tempos(ctx, batch)
	if err != nil {
		return err
	}
	result.Fetched += len(batch)

	at := r.now()
	for _, id := range batch {
		if bpm, ok := found[id]; ok && bpm > 0 {
			if err := r.records.SaveResolved(ctx, id, bpm, at); err != nil {
				return fmt.Errorf("failed to save tempo for %s: %w", id, err)
			}
			result.Tempos[id] = models.KnownTempo(bpm)
			continue
		}

		if err := r.records.MarkUnavailable(ctx, id, at); err != nil {
			return fmt.Errorf("failed to mark %s unavailable: %w", id, err)
		}
		result.Tempos[id] = models.NoTempo
	}
	return nil
}
