package repositories

import (
	"context"
	"time"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/models"
)

// RecommendationRepository caches the similar tracks returned for each seed.
type RecommendationRepository struct {
	repo jsonRepository[models.RecommendationEntry]
	ttl  time.Duration
}

// NewRecommendationRepository creates a repository whose entries expire ttl after they are saved.
func NewRecommendationRepository(store cache.Store, ttl time.Duration, opts ...Option) *RecommendationRepository {
	return &RecommendationRepository{repo: newJSONRepository[models.RecommendationEntry](store, cache.Recommendations, opts), ttl: ttl}
}

// Get returns the live entry for seedID. An entry with no tracks is still a hit.
func (r *RecommendationRepository) Get(ctx context.Context, seedID string) (models.RecommendationEntry, bool, error) {
	return r.repo.get(ctx, seedID)
}

// Save stores entry under its seed.
func (r *RecommendationRepository) Save(ctx context.Context, entry models.RecommendationEntry) error {
	if entry.TrackIDs == nil {
		entry.TrackIDs = []string{}
	}
	return r.repo.put(ctx, entry, cache.TTL(r.ttl))
}
