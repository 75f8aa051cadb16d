package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/stride/internal/shared"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
}

// newTestSpotify returns an authenticated service pointed at an httptest server running handler.
func newTestSpotify(t *testing.T, handler http.Handler) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.baseURL = server.URL
	srv.SetToken(context.Background(), &oauth2.Token{AccessToken: "test_access_token"})
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:4000/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://127.0.0.1:4000/callback" {
				t.Errorf("expected configured redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != DefaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")

		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
		if !strings.Contains(authURL, "user-top-read") {
			t.Error("auth URL should request the top-read scope")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("Unauthenticated requests fail", func(t *testing.T) {
			_, err := srv.CurrentUser(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("WithAccessToken", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{
				"access_token":  "test_access_token",
				"refresh_token": "test_refresh_token",
			})
			if err != nil {
				t.Fatalf("expected no error with access token, got %v", err)
			}

			token, err := srv.Token()
			if err != nil {
				t.Fatalf("expected token, got %v", err)
			}
			if token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", token.AccessToken)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
				t.Errorf("expected bearer token, got %q", got)
			}
			writeJSON(t, w, map[string]any{"id": "u1", "display_name": "Runner", "email": "r@example.com"})
		}))

		user, err := srv.CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "u1" || user.DisplayName != "Runner" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("TopTracks skips local files", func(t *testing.T) {
		srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/top/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("limit") != "50" {
				t.Errorf("expected limit 50, got %s", r.URL.Query().Get("limit"))
			}
			writeJSON(t, w, map[string]any{"items": []map[string]any{
				{"id": "a", "name": "A", "artists": []map[string]any{{"name": "X"}, {"name": "Y"}}},
				{"id": "", "name": "local", "is_local": true},
				{"id": "b", "name": "B"},
			}})
		}))

		tracks, err := srv.TopTracks(context.Background(), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].Artist != "X, Y" {
			t.Errorf("expected joined artists, got %q", tracks[0].Artist)
		}
	})

	t.Run("SavedTracks pagination", func(t *testing.T) {
		srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next := "https://api.spotify.com/v1/me/tracks?offset=50"
			body := map[string]any{
				"items": []map[string]any{{"track": map[string]any{"id": "s1"}}},
				"total": 51,
				"next":  &next,
			}
			if r.URL.Query().Get("offset") == "50" {
				body["next"] = nil
			}
			writeJSON(t, w, body)
		}))

		page, err := srv.SavedTracks(context.Background(), 50, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !page.HasNext || page.Total != 51 || page.Tracks[0].ID != "s1" {
			t.Errorf("unexpected first page %+v", page)
		}

		page, err = srv.SavedTracks(context.Background(), 50, 50)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.HasNext {
			t.Error("expected last page")
		}
	})

	t.Run("TopArtists and ArtistTopTracks", func(t *testing.T) {
		srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/me/top/artists":
				writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "ar1", "name": "Artist"}}})
			case "/artists/ar1/top-tracks":
				if r.URL.Query().Get("market") != "from_token" {
					t.Errorf("expected market=from_token")
				}
				writeJSON(t, w, map[string]any{"tracks": []map[string]any{{"id": "t1"}, {"id": "t2"}}})
			default:
				http.NotFound(w, r)
			}
		}))

		artists, err := srv.TopArtists(context.Background(), 10)
		if err != nil || len(artists) != 1 {
			t.Fatalf("unexpected artists %v err=%v", artists, err)
		}

		tracks, err := srv.ArtistTopTracks(context.Background(), artists[0].ID)
		if err != nil || len(tracks) != 2 {
			t.Fatalf("unexpected tracks %v err=%v", tracks, err)
		}
	})

	t.Run("CreatePlaylist adds tracks in chunks of 100", func(t *testing.T) {
		var (
			mu      sync.Mutex
			chunks  [][]string
			created map[string]any
		)

		srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()

			body, _ := io.ReadAll(r.Body)
			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/users/u1/playlists":
				_ = json.Unmarshal(body, &created)
				w.WriteHeader(http.StatusCreated)
				writeJSON(t, w, map[string]any{
					"id":            "pl1",
					"name":          created["name"],
					"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/pl1"},
				})
			case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl1/tracks":
				var payload struct {
					URIs []string `json:"uris"`
				}
				_ = json.Unmarshal(body, &payload)
				chunks = append(chunks, payload.URIs)
				w.WriteHeader(http.StatusCreated)
				writeJSON(t, w, map[string]any{"snapshot_id": "x"})
			default:
				http.NotFound(w, r)
			}
		}))

		ids := make([]string, 205)
		for i := range ids {
			ids[i] = "t" + strings.Repeat("x", i%3) + string(rune('a'+i%26))
		}

		playlist, err := srv.CreatePlaylist(context.Background(), "u1", PlaylistDetails{Name: "Run Cadence 170 BPM"}, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if created["public"] != false || created["name"] != "Run Cadence 170 BPM" {
			t.Errorf("unexpected create body %v", created)
		}
		if len(chunks) != 3 || len(chunks[0]) != 100 || len(chunks[2]) != 5 {
			t.Fatalf("expected chunks of 100/100/5, got %d chunks", len(chunks))
		}
		if chunks[0][0] != "spotify:track:"+ids[0] {
			t.Errorf("expected track uri, got %s", chunks[0][0])
		}
		if playlist.EmbedURL != "https://open.spotify.com/embed/playlist/pl1" {
			t.Errorf("unexpected embed url %s", playlist.EmbedURL)
		}
		if playlist.URL != "https://open.spotify.com/playlist/pl1" || playlist.TrackCount != 205 {
			t.Errorf("unexpected playlist %+v", playlist)
		}
	})

	t.Run("status errors", func(t *testing.T) {
		tests := []struct {
			status int
			target error
		}{
			{http.StatusUnauthorized, shared.ErrNotAuthenticated},
			{http.StatusTooManyRequests, shared.ErrAPIRequest},
			{http.StatusServiceUnavailable, shared.ErrServiceUnavailable},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, `{"error":"nope"}`, tt.status)
				}))

				_, err := srv.TopTracks(context.Background(), 50)
				if !errors.Is(err, tt.target) {
					t.Errorf("expected %v, got %v", tt.target, err)
				}
				if !errors.Is(err, shared.ErrAPIRequest) {
					t.Errorf("every status error should match ErrAPIRequest, got %v", err)
				}
				if !IsStatus(err, tt.status) {
					t.Errorf("expected status %d in %v", tt.status, err)
				}
			})
		}
	})
}
