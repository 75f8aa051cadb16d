// ReccoBeats implementation of [SimilarityService] and [TempoService]
//
// API reference: https://reccobeats.com/docs/apis
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/stride/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultReccoBeatsURL is the public API host.
	DefaultReccoBeatsURL = "https://api.reccobeats.com"

	reccoBeatsTimeout = 20 * time.Second
)

// reccoBeatsTrack is one entry of a ReccoBeats content list.
// Tracks are identified by their Spotify href; id is ReccoBeats' own identifier.
type reccoBeatsTrack struct {
	ID    string   `json:"id"`
	Href  string   `json:"href"`
	Tempo *float64 `json:"tempo"`
}

type reccoBeatsContent struct {
	Content []reccoBeatsTrack `json:"content"`
}

// ReccoBeatsClient calls the ReccoBeats API. Every request waits on a shared rate limiter.
type ReccoBeatsClient struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// ReccoBeatsOptions configures [NewReccoBeatsClient]. Zero values use defaults.
type ReccoBeatsOptions struct {
	BaseURL           string
	RequestsPerSecond float64 // <= 0 disables pacing
	Timeout           time.Duration
}

// NewReccoBeatsClient creates a client for the ReccoBeats API.
func NewReccoBeatsClient(opts ReccoBeatsOptions) *ReccoBeatsClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultReccoBeatsURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = reccoBeatsTimeout
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &ReccoBeatsClient{client: client, limiter: rate.NewLimiter(limit, 1)}
}

func (c *ReccoBeatsClient) Name() string {
	return "ReccoBeats"
}

// Tempos implements [TempoService]. Tracks returned with a null tempo are left out, as are tracks not returned at all.
func (c *ReccoBeatsClient) Tempos(ctx context.Context, trackIDs []string) (map[string]float64, error) {
	tempos := make(map[string]float64, len(trackIDs))
	if len(trackIDs) == 0 {
		return tempos, nil
	}
	if len(trackIDs) > MaxTempoBatch {
		return nil, fmt.Errorf("%w: %d ids exceeds the batch limit of %d", shared.ErrInvalidArgument, len(trackIDs), MaxTempoBatch)
	}

	content, err := c.get(ctx, "/v1/audio-features", map[string]string{"ids": strings.Join(trackIDs, ",")})
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		requested[id] = true
	}

	for _, item := range content {
		id := TrackIDFromHref(item.Href)
		if id == "" && requested[item.ID] {
			id = item.ID
		}
		if !requested[id] || item.Tempo == nil || *item.Tempo <= 0 {
			continue
		}
		tempos[id] = *item.Tempo
	}

	return tempos, nil
}

// Similar implements [SimilarityService]. The seed itself and duplicates are dropped.
func (c *ReccoBeatsClient) Similar(ctx context.Context, trackID string, limit int) ([]string, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: seed track id", shared.ErrMissingArgument)
	}
	limit = clampLimit(limit, MaxSimilarLimit)

	content, err := c.get(ctx, "/v1/track/recommendation", map[string]string{
		"size":  strconv.Itoa(limit),
		"seeds": trackID,
	})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{trackID: true}
	ids := make([]string, 0, len(content))
	for _, item := range content {
		id := TrackIDFromHref(item.Href)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids, nil
}

func (c *ReccoBeatsClient) get(ctx context.Context, path string, params map[string]string) ([]reccoBeatsTrack, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: reccobeats rate limiter: %w", shared.ErrAPIRequest, err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reccobeats request failed: %w", shared.ErrAPIRequest, err)
	}

	if resp.IsError() {
		return nil, &StatusError{Service: "reccobeats", StatusCode: resp.StatusCode(), Body: truncate(resp.Body(), 200)}
	}

	var payload reccoBeatsContent
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode reccobeats response: %v", shared.ErrAPIRequest, err)
	}

	return payload.Content, nil
}

// TrackIDFromHref extracts the Spotify track id from a link such as
// https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc. It returns "" when href has no track segment.
func TrackIDFromHref(href string) string {
	_, rest, ok := strings.Cut(href, "track/")
	if !ok {
		return ""
	}

	if i := strings.IndexAny(rest, "?/#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
