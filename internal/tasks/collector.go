package tasks

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/stride/internal/models"
	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/shared"
)

// savedPageSize is the largest page the saved-tracks endpoint returns.
const savedPageSize = 50

// CollectorOptions controls what the [LibraryCollector] gathers.
type CollectorOptions struct {
	TopLimit       int  // top tracks, also used for top artists
	SavedLimit     int  // 0 = whole saved library
	IncludeArtists bool // add each top artist's top tracks
}

// Collection is the outcome of a library collection.
type Collection struct {
	TrackIDs []string
	Cached   bool
}

// LibraryCollector gathers the seed track set for a user: top tracks, saved tracks and, optionally, top artists' top tracks.
//
// Snapshots are cached per user. Concurrent collections for the same user share one fetch, so a
// collector should be reused across runs in the same process.
type LibraryCollector struct {
	streaming services.StreamingService
	library   *repositories.LibraryRepository
	artists   *repositories.ArtistTrackRepository
	opts      CollectorOptions
	group     singleflight.Group
	logger    *log.Logger
	now       func() time.Time
}

// NewLibraryCollector creates a collector. The artist repository may be nil when artists are not included.
func NewLibraryCollector(streaming services.StreamingService, library *repositories.LibraryRepository, artists *repositories.ArtistTrackRepository, opts CollectorOptions, logger *log.Logger) *LibraryCollector {
	if opts.TopLimit <= 0 {
		opts.TopLimit = savedPageSize
	}
	return &LibraryCollector{
		streaming: streaming,
		library:   library,
		artists:   artists,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Collect returns the deduplicated seed track ids for userID, from cache when a live snapshot exists.
func (c *LibraryCollector) Collect(ctx context.Context, userID string) (*Collection, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}

	// The shared fetch outlives any single caller; an abandoned fetch still fills the cache.
	ch := c.group.DoChan(userID, func() (any, error) {
		return c.collect(context.WithoutCancel(ctx), userID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("library collection shared", "user", userID)
		}
		got := res.Val.(*Collection)
		return &Collection{TrackIDs: slices.Clone(got.TrackIDs), Cached: got.Cached}, nil
	}
}

func (c *LibraryCollector) collect(ctx context.Context, userID string) (*Collection, error) {
	snapshot, ok, err := c.library.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read library snapshot: %w", err)
	}
	if ok {
		c.logger.Debug("library snapshot cache hit", "user", userID, "tracks", len(snapshot.TrackIDs))
		return &Collection{TrackIDs: snapshot.TrackIDs, Cached: true}, nil
	}

	ids, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	snapshot = models.LibrarySnapshot{UserID: userID, TrackIDs: ids, FetchedAt: c.now()}
	if err := c.library.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save library snapshot: %w", err)
	}

	c.logger.Info("library collected", "user", userID, "tracks", len(ids))
	return &Collection{TrackIDs: ids}, nil
}

func (c *LibraryCollector) fetch(ctx context.Context) ([]string, error) {
	seen := newOrderedSet()

	top, err := c.streaming.TopTracks(ctx, c.opts.TopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks: %w", err)
	}
	seen.addTracks(top)

	if err := c.fetchSaved(ctx, seen); err != nil {
		return nil, err
	}

	if c.opts.IncludeArtists && c.artists != nil {
		if err := c.fetchArtists(ctx, seen); err != nil {
			return nil, err
		}
	}

	return seen.items(), nil
}

func (c *LibraryCollector) fetchSaved(ctx context.Context, seen *orderedSet) error {
	for offset := 0; c.opts.SavedLimit == 0 || offset < c.opts.SavedLimit; {
		limit := savedPageSize
		if c.opts.SavedLimit > 0 {
			limit = min(limit, c.opts.SavedLimit-offset)
		}

		page, err := c.streaming.SavedTracks(ctx, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to fetch saved tracks at offset %d: %w", offset, err)
		}
		seen.addTracks(page.Tracks)

		if !page.HasNext || len(page.Tracks) == 0 {
			return nil
		}
		offset += limit
	}
	return nil
}

func (c *LibraryCollector) fetchArtists(ctx context.Context, seen *orderedSet) error {
	artists, err := c.streaming.TopArtists(ctx, c.opts.TopLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch top artists: %w", err)
	}

	for _, artist := range artists {
		cached, ok, err := c.artists.Get(ctx, artist.ID)
		if err != nil {
			return fmt.Errorf("failed to read artist tracks: %w", err)
		}
		if ok {
			seen.add(cached.TrackIDs...)
			continue
		}

		tracks, err := c.streaming.ArtistTopTracks(ctx, artist.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch top tracks for artist %s: %w", artist.ID, err)
		}

		entry := models.ArtistTracks{ArtistID: artist.ID, TrackIDs: trackIDs(tracks), FetchedAt: c.now()}
		if err := c.artists.Save(ctx, entry); err != nil {
			return fmt.Errorf("failed to save artist tracks: %w", err)
		}
		seen.add(entry.TrackIDs...)
	}
	return nil
}

func trackIDs(tracks []services.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// orderedSet keeps first-seen order.
type orderedSet struct {
	index map[string]struct{}
	order []string
}

func newOrderedSet(ids ...string) *orderedSet {
	s := &orderedSet{index: make(map[string]struct{})}
	s.add(ids...)
	return s
}

// add inserts ids not yet present and reports how many were new.
func (s *orderedSet) add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.order = append(s.order, id)
		added++
	}
	return added
}

func (s *orderedSet) addTracks(tracks []services.Track) { s.add(trackIDs(tracks)...) }

func (s *orderedSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *orderedSet) len() int { return len(s.order) }

func (s *orderedSet) items() []string { return slices.Clone(s.order) }
