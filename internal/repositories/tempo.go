package repositories

import (
	"context"
	"time"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/models"
)

// TempoRepository caches [models.TempoRecord] values.
//
// The expiry policy follows the record's status: resolved records expire after the retention window,
// unavailable records are stored permanently and are never fetched again.
type TempoRepository struct {
	repo      jsonRepository[models.TempoRecord]
	retention time.Duration
}

// NewTempoRepository creates a repository keeping resolved records for retention.
func NewTempoRepository(store cache.Store, retention time.Duration, opts ...Option) *TempoRepository {
	return &TempoRepository{repo: newJSONRepository[models.TempoRecord](store, cache.TempoRecords, opts), retention: retention}
}

// Get returns the live record for trackID.
func (r *TempoRepository) Get(ctx context.Context, trackID string) (models.TempoRecord, bool, error) {
	return r.repo.get(ctx, trackID)
}

// GetMany returns the live records among trackIDs, keyed by track id.
func (r *TempoRepository) GetMany(ctx context.Context, trackIDs []string) (map[string]models.TempoRecord, error) {
	return r.repo.getMany(ctx, trackIDs)
}

// Save stores record with the policy of its status.
func (r *TempoRepository) Save(ctx context.Context, record models.TempoRecord) error {
	return r.repo.put(ctx, record, r.policy(record.Status))
}

// SaveResolved stores a resolved record for trackID.
func (r *TempoRepository) SaveResolved(ctx context.Context, trackID string, bpm float64, at time.Time) error {
	return r.Save(ctx, models.NewResolvedTempo(trackID, bpm, at))
}

// MarkUnavailable stores a permanent negative record for trackID.
func (r *TempoRepository) MarkUnavailable(ctx context.Context, trackID string, at time.Time) error {
	return r.Save(ctx, models.NewUnavailableTempo(trackID, at))
}

func (r *TempoRepository) policy(status models.TempoStatus) cache.Policy {
	switch status {
	case models.TempoUnavailable:
		return cache.Permanent
	default:
		return cache.TTL(r.retention)
	}
}
