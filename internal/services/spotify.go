// Spotify Web API implementation of [StreamingService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/stride/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// DefaultRedirectURI is used when no redirect_uri is configured.
	DefaultRedirectURI = "http://127.0.0.1:3000/callback"

	// spotifyPlaylistChunk is the most tracks one add-items request may carry.
	spotifyPlaylistChunk = 100
	spotifyEmbedURL      = "https://open.spotify.com/embed/playlist/"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyPlaylist is the subset of the playlist object returned on creation.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// SpotifyService implements [StreamingService] for the Spotify Web API.
// Uses [oauth2] for authentication; the token source refreshes expired access tokens.
type SpotifyService struct {
	config     *oauth2.Config
	tokens     oauth2.TokenSource
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-top-read",
			"user-library-read",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}, nil
}

// Authenticate sets up the authenticated client.
// Expects either an "access_token" (with optional "refresh_token") or an "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		s.SetToken(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.SetToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// SetToken authenticates the service with an existing token.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.tokens = s.config.TokenSource(ctx, token)
	s.httpClient = oauth2.NewClient(ctx, s.tokens)
}

// Token returns the current token, refreshing it first when expired.
// Callers persist it so the next run starts with a valid token.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.tokens == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.tokens.Token()
}

// OAuthConfig exposes the OAuth2 configuration for the authorization-code callback handler.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// doRequest performs an authenticated JSON request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.tokens == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: token refresh failed: %v", shared.ErrNotAuthenticated, retrieveErr)
		}
		return fmt.Errorf("%w: spotify request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Service: "spotify", StatusCode: resp.StatusCode, Body: truncate(bytes.TrimSpace(data), 200)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser implements [StreamingService].
func (s *SpotifyService) CurrentUser(ctx context.Context) (*User, error) {
	profile, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &User{ID: profile.ID, DisplayName: profile.DisplayName, Email: profile.Email}, nil
}

// TopTracks implements [StreamingService] using the medium-term time range.
func (s *SpotifyService) TopTracks(ctx context.Context, limit int) ([]Track, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d&time_range=medium_term", clampLimit(limit, 50))

	var response struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return convertTracks(response.Items), nil
}

// SavedTracks implements [StreamingService].
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SavedTracksPage, error) {
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", clampLimit(limit, 50), offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	items := make([]SpotifyTrack, len(response.Items))
	for i, item := range response.Items {
		items[i] = item.Track
	}

	return &SavedTracksPage{
		Tracks:  convertTracks(items),
		Total:   response.Total,
		HasNext: response.Next != nil && len(response.Items) > 0,
	}, nil
}

// TopArtists implements [StreamingService] using the medium-term time range.
func (s *SpotifyService) TopArtists(ctx context.Context, limit int) ([]Artist, error) {
	endpoint := fmt.Sprintf("/me/top/artists?limit=%d&time_range=medium_term", clampLimit(limit, 50))

	var response struct {
		Items []SpotifyArtist `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]Artist, 0, len(response.Items))
	for _, a := range response.Items {
		if a.ID != "" {
			artists = append(artists, Artist{ID: a.ID, Name: a.Name})
		}
	}
	return artists, nil
}

// ArtistTopTracks implements [StreamingService] for the market of the token's user.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID string) ([]Track, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=from_token", url.PathEscape(artistID))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return convertTracks(response.Tracks), nil
}

// CreatePlaylist implements [StreamingService]. Tracks are added in chunks of 100 in the given order.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID string, details PlaylistDetails, trackIDs []string) (*Playlist, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	if details.Name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	body := map[string]any{
		"name":          details.Name,
		"description":   details.Description,
		"public":        details.Public,
		"collaborative": false,
	}

	var created SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	for start := 0; start < len(trackIDs); start += spotifyPlaylistChunk {
		end := min(start+spotifyPlaylistChunk, len(trackIDs))
		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}

		endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(created.ID))
		if err := s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil); err != nil {
			return nil, fmt.Errorf("failed to add tracks %d-%d: %w", start, end, err)
		}
	}

	return &Playlist{
		ID:         created.ID,
		Name:       created.Name,
		URL:        created.ExternalURLs.Spotify,
		EmbedURL:   spotifyEmbedURL + created.ID,
		TrackCount: len(trackIDs),
	}, nil
}

// convertTracks maps API tracks, dropping local files and tracks without an id.
func convertTracks(items []SpotifyTrack) []Track {
	tracks := make([]Track, 0, len(items))
	for _, t := range items {
		if t.ID == "" || t.IsLocal {
			continue
		}

		track := Track{ID: t.ID, Name: t.Name}
		if len(t.Artists) > 0 {
			names := make([]string, len(t.Artists))
			for i, a := range t.Artists {
				names[i] = a.Name
			}
			track.Artist = strings.Join(names, ", ")
		}
		tracks = append(tracks, track)
	}
	return tracks
}

func clampLimit(limit, ceiling int) int {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}
