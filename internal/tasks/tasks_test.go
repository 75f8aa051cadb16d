package tasks

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/repositories"
	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/shared"
	tu "github.com/desertthunder/stride/internal/testing"
)

const (
	libraryTTL = 24 * time.Hour
	retention  = 30 * 24 * time.Hour
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fixture wires the pipeline stages to mocks and an in-memory SQLite cache.
type fixture struct {
	clock      *testClock
	streaming  *tu.MockStreaming
	similarity *tu.MockSimilarity
	tempo      *tu.MockTempo

	library *repositories.LibraryRepository
	artists *repositories.ArtistTrackRepository
	recs    *repositories.RecommendationRepository
	records *repositories.TempoRepository
	logger  *log.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, shared.RunMigrations(db))

	clock := &testClock{now: time.Date(2025, 5, 1, 6, 30, 0, 0, time.UTC)}
	store := cache.NewSQLiteStore(db, cache.WithClock(clock.Now))

	return &fixture{
		clock:      clock,
		streaming:  &tu.MockStreaming{ArtistTracks: map[string][]services.Track{}},
		similarity: &tu.MockSimilarity{Results: map[string][]string{}, Errs: map[string]error{}},
		tempo:      &tu.MockTempo{BPMs: map[string]float64{}},
		library:    repositories.NewLibraryRepository(store, libraryTTL),
		artists:    repositories.NewArtistTrackRepository(store, retention),
		recs:       repositories.NewRecommendationRepository(store, retention),
		records:    repositories.NewTempoRepository(store, retention),
		logger:     log.New(io.Discard),
	}
}

func (f *fixture) collector(opts CollectorOptions) *LibraryCollector {
	c := NewLibraryCollector(f.streaming, f.library, f.artists, opts, f.logger)
	c.now = f.clock.Now
	return c
}

func (f *fixture) expander(opts ExpanderOptions) *CandidateExpander {
	e := NewCandidateExpander(f.similarity, f.recs, opts, f.logger)
	e.now = f.clock.Now
	return e
}

func (f *fixture) resolver(batchSize int) *TempoResolver {
	r := NewTempoResolver(f.tempo, f.records, batchSize, f.logger)
	r.now = f.clock.Now
	return r
}

func (f *fixture) pipeline(opts PipelineOptions) *Pipeline {
	p := NewPipeline(
		f.collector(CollectorOptions{TopLimit: 50, IncludeArtists: true}),
		f.expander(ExpanderOptions{PoolCeiling: 500, SimilarLimit: 20}),
		f.resolver(40),
		opts,
		f.logger,
	)
	p.now = f.clock.Now
	return p
}

// trackIDRange returns n ids of the form prefix000.
func trackIDRange(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return ids
}

// recorder collects progress updates.
type recorder struct{ updates []ProgressUpdate }

func (r *recorder) Notify(u ProgressUpdate) { r.updates = append(r.updates, u) }

func (r *recorder) phases() []Phase {
	var phases []Phase
	for _, u := range r.updates {
		if len(phases) == 0 || phases[len(phases)-1] != u.Phase {
			phases = append(phases, u.Phase)
		}
	}
	return phases
}
