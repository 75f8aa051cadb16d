// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/stride/internal/services"
)

// MockStreaming is a test double for [services.StreamingService].
//
// Saved tracks are paged out of Saved by limit and offset. Every call is counted.
// Read counters through [MockStreaming.Counts] while calls may still be in flight.
type MockStreaming struct {
	mu sync.Mutex

	User         services.User
	Top          []services.Track
	Saved        []services.Track
	Artists      []services.Artist
	ArtistTracks map[string][]services.Track
	Playlist     services.Playlist

	UserErr, TopErr, SavedErr, ArtistsErr, ArtistTracksErr, CreateErr error

	// TopGate, when set, holds every TopTracks call after it is counted until the gate is closed.
	TopGate chan struct{}

	TopCalls, SavedCalls, ArtistsCalls, ArtistTrackCalls, CreateCalls int
	CreatedTracks                                                     []string
	CreatedDetails                                                    services.PlaylistDetails
}

// Counts returns the top-track and saved-track call counters.
func (m *MockStreaming) Counts() (top, saved int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TopCalls, m.SavedCalls
}

func (m *MockStreaming) CurrentUser(ctx context.Context) (*services.User, error) {
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	user := m.User
	return &user, nil
}

func (m *MockStreaming) TopTracks(ctx context.Context, limit int) ([]services.Track, error) {
	m.mu.Lock()
	m.TopCalls++
	gate := m.TopGate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TopErr != nil {
		return nil, m.TopErr
	}
	return slices.Clone(m.Top[:min(limit, len(m.Top))]), nil
}

func (m *MockStreaming) SavedTracks(ctx context.Context, limit, offset int) (*services.SavedTracksPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SavedCalls++
	if m.SavedErr != nil {
		return nil, m.SavedErr
	}

	start := min(offset, len(m.Saved))
	end := min(start+limit, len(m.Saved))
	return &services.SavedTracksPage{
		Tracks:  slices.Clone(m.Saved[start:end]),
		Total:   len(m.Saved),
		HasNext: end < len(m.Saved),
	}, nil
}

func (m *MockStreaming) TopArtists(ctx context.Context, limit int) ([]services.Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtistsCalls++
	if m.ArtistsErr != nil {
		return nil, m.ArtistsErr
	}
	return slices.Clone(m.Artists[:min(limit, len(m.Artists))]), nil
}

func (m *MockStreaming) ArtistTopTracks(ctx context.Context, artistID string) ([]services.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtistTrackCalls++
	if m.ArtistTracksErr != nil {
		return nil, m.ArtistTracksErr
	}
	return slices.Clone(m.ArtistTracks[artistID]), nil
}

func (m *MockStreaming) CreatePlaylist(ctx context.Context, userID string, details services.PlaylistDetails, trackIDs []string) (*services.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.CreatedDetails = details
	m.CreatedTracks = slices.Clone(trackIDs)

	playlist := m.Playlist
	playlist.Name = details.Name
	playlist.TrackCount = len(trackIDs)
	return &playlist, nil
}

// Tracks builds tracks with the given ids.
func Tracks(ids ...string) []services.Track {
	tracks := make([]services.Track, len(ids))
	for i, id := range ids {
		tracks[i] = services.Track{ID: id, Name: "Track " + id}
	}
	return tracks
}

// MockSimilarity is a test double for [services.SimilarityService].
type MockSimilarity struct {
	mu sync.Mutex

	Results map[string][]string // seed -> similar ids
	Errs    map[string]error    // seed -> failure

	Seeds  []string // seeds queried, in order
	Limits []int
}

func (m *MockSimilarity) Similar(ctx context.Context, trackID string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Seeds = append(m.Seeds, trackID)
	m.Limits = append(m.Limits, limit)

	if err := m.Errs[trackID]; err != nil {
		return nil, err
	}
	ids := m.Results[trackID]
	return slices.Clone(ids[:min(limit, len(ids))]), nil
}

// Calls returns the number of similarity lookups made.
func (m *MockSimilarity) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Seeds)
}

// MockTempo is a test double for [services.TempoService].
//
// Ids missing from BPMs have no data. When FailOnCall is n > 0, the nth call returns Err.
type MockTempo struct {
	mu sync.Mutex

	BPMs       map[string]float64
	FailOnCall int
	Err        error

	Batches [][]string
}

func (m *MockTempo) Tempos(ctx context.Context, trackIDs []string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches = append(m.Batches, slices.Clone(trackIDs))

	if m.FailOnCall > 0 && len(m.Batches) == m.FailOnCall {
		return nil, m.Err
	}

	found := make(map[string]float64)
	for _, id := range trackIDs {
		if bpm, ok := m.BPMs[id]; ok {
			found[id] = bpm
		}
	}
	return found, nil
}

// Calls returns the number of batch lookups made.
func (m *MockTempo) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Batches)
}

// Requested returns every id sent to the service, in order.
func (m *MockTempo) Requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, b := range m.Batches {
		ids = append(ids, b...)
	}
	return ids
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
