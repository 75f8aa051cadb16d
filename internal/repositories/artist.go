package repositories

import (
	"context"
	"time"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/models"
)

// ArtistTrackRepository caches each artist's top tracks.
type ArtistTrackRepository struct {
	repo jsonRepository[models.ArtistTracks]
	ttl  time.Duration
}

func NewArtistTrackRepository(store cache.Store, ttl time.Duration, opts ...Option) *ArtistTrackRepository {
	return &ArtistTrackRepository{repo: newJSONRepository[models.ArtistTracks](store, cache.ArtistTopTracks, opts), ttl: ttl}
}

func (r *ArtistTrackRepository) Get(ctx context.Context, artistID string) (models.ArtistTracks, bool, error) {
	return r.repo.get(ctx, artistID)
}

func (r *ArtistTrackRepository) Save(ctx context.Context, tracks models.ArtistTracks) error {
	return r.repo.put(ctx, tracks, cache.TTL(r.ttl))
}
