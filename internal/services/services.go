// package services defines the collaborators the pipeline calls over HTTP
//
// Spotify (library, playlists), ReccoBeats (similarity, tempo)
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/stride/internal/shared"
)

// MaxTempoBatch is the most track ids a single tempo lookup may carry.
const MaxTempoBatch = 40

// MaxSimilarLimit caps the similar tracks requested per seed.
const MaxSimilarLimit = 100

// StreamingService reads the user's library and writes playlists.
//
// Implementations manage their own token refresh. Errors are returned as-is; callers do not retry.
type StreamingService interface {
	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*User, error)
	// TopTracks returns up to limit of the user's top tracks, ranked.
	TopTracks(ctx context.Context, limit int) ([]Track, error)
	// SavedTracks returns one page of the user's saved tracks, most recent first.
	SavedTracks(ctx context.Context, limit, offset int) (*SavedTracksPage, error)
	// TopArtists returns up to limit of the user's top artists, ranked.
	TopArtists(ctx context.Context, limit int) ([]Artist, error)
	// ArtistTopTracks returns an artist's most popular tracks.
	ArtistTopTracks(ctx context.Context, artistID string) ([]Track, error)
	// CreatePlaylist creates a playlist for userID holding trackIDs in order.
	CreatePlaylist(ctx context.Context, userID string, details PlaylistDetails, trackIDs []string) (*Playlist, error)
}

// SimilarityService finds tracks similar to a seed.
type SimilarityService interface {
	// Similar returns up to limit track ids similar to trackID. An empty result is not an error.
	Similar(ctx context.Context, trackID string, limit int) ([]string, error)
}

// TempoService looks up track tempos in batches of at most [MaxTempoBatch].
type TempoService interface {
	// Tempos returns the BPM of every id the service has data for. Ids absent from the map have no data;
	// callers treat a non-positive BPM the same way.
	Tempos(ctx context.Context, trackIDs []string) (map[string]float64, error)
}

// Track is a track from the streaming service.
type Track struct {
	ID     string
	Name   string
	Artist string
}

// Artist is an artist from the streaming service.
type Artist struct {
	ID   string
	Name string
}

// User is the authenticated streaming-service user.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// SavedTracksPage is one page of saved tracks.
type SavedTracksPage struct {
	Tracks  []Track
	Total   int
	HasNext bool
}

// PlaylistDetails describes a playlist to create.
type PlaylistDetails struct {
	Name        string
	Description string
	Public      bool
}

// Playlist is a created playlist.
type Playlist struct {
	ID         string
	Name       string
	URL        string
	EmbedURL   string
	TrackCount int
}

// StatusError is a non-2xx response from an upstream API.
//
// It matches [shared.ErrAPIRequest] with [errors.Is]; a 401 also matches [shared.ErrNotAuthenticated].
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case shared.ErrServiceUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode == http.StatusBadGateway
	}
	return false
}

// IsStatus reports whether err carries an upstream response with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// truncate shortens response bodies kept in errors.
func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
