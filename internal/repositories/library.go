package repositories

import (
	"context"
	"time"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/models"
)

// LibraryRepository caches one [models.LibrarySnapshot] per user.
type LibraryRepository struct {
	repo jsonRepository[models.LibrarySnapshot]
	ttl  time.Duration
}

// NewLibraryRepository creates a repository whose snapshots expire ttl after they are saved.
func NewLibraryRepository(store cache.Store, ttl time.Duration, opts ...Option) *LibraryRepository {
	return &LibraryRepository{repo: newJSONRepository[models.LibrarySnapshot](store, cache.LibrarySnapshots, opts), ttl: ttl}
}

// Get returns the live snapshot for userID.
func (r *LibraryRepository) Get(ctx context.Context, userID string) (models.LibrarySnapshot, bool, error) {
	return r.repo.get(ctx, userID)
}

// Save stores snapshot, replacing any previous one for the same user.
func (r *LibraryRepository) Save(ctx context.Context, snapshot models.LibrarySnapshot) error {
	return r.repo.put(ctx, snapshot, cache.TTL(r.ttl))
}
