package models

import (
	"fmt"
	"time"
)

// Entity is implemented by every value stored in the shared cache.
type Entity interface {
	Key() string     // Key returns the cache key within the entity's namespace
	Validate() error // Validate checks the entity before it is written
}

// TempoStatus tags a [TempoRecord] as resolved or unavailable.
type TempoStatus string

const (
	TempoResolved    TempoStatus = "resolved"    // BPM known; expires after the retention window
	TempoUnavailable TempoStatus = "unavailable" // service has no data; never expires
)

// TempoRecord is the cached tempo of one track.
//
// A resolved record always carries a positive BPM; an unavailable record never does.
// Build records with [NewResolvedTempo] or [NewUnavailableTempo].
type TempoRecord struct {
	TrackID   string      `json:"track_id"`
	BPM       *float64    `json:"bpm,omitempty"`
	FetchedAt time.Time   `json:"fetched_at"`
	Status    TempoStatus `json:"status"`
}

// NewResolvedTempo returns a resolved record for trackID.
func NewResolvedTempo(trackID string, bpm float64, fetchedAt time.Time) TempoRecord {
	return TempoRecord{TrackID: trackID, BPM: &bpm, FetchedAt: fetchedAt, Status: TempoResolved}
}

// NewUnavailableTempo returns a permanent negative record for trackID.
func NewUnavailableTempo(trackID string, fetchedAt time.Time) TempoRecord {
	return TempoRecord{TrackID: trackID, FetchedAt: fetchedAt, Status: TempoUnavailable}
}

func (r TempoRecord) Key() string { return r.TrackID }

// Validate checks the record against its status tag.
func (r TempoRecord) Validate() error {
	if r.TrackID == "" {
		return fmt.Errorf("tempo record: track id is required")
	}

	switch r.Status {
	case TempoResolved:
		if r.BPM == nil || *r.BPM <= 0 {
			return fmt.Errorf("tempo record %s: resolved record needs a positive bpm", r.TrackID)
		}
	case TempoUnavailable:
		if r.BPM != nil {
			return fmt.Errorf("tempo record %s: unavailable record cannot carry a bpm", r.TrackID)
		}
	default:
		return fmt.Errorf("tempo record %s: unknown status %q", r.TrackID, r.Status)
	}
	return nil
}

// Tempo converts the record into the resolver's result value.
func (r TempoRecord) Tempo() Tempo {
	if r.Status == TempoResolved && r.BPM != nil {
		return KnownTempo(*r.BPM)
	}
	return NoTempo
}

// Tempo is a resolved BPM or the absence of one.
type Tempo struct {
	BPM   float64 `json:"bpm"`
	Known bool    `json:"known"`
}

// NoTempo marks a track without tempo data.
var NoTempo = Tempo{}

// KnownTempo wraps a BPM value.
func KnownTempo(bpm float64) Tempo { return Tempo{BPM: bpm, Known: true} }

func (t Tempo) String() string {
	if !t.Known {
		return "no tempo"
	}
	return fmt.Sprintf("%.1f", t.BPM)
}

// LibrarySnapshot is a user's merged library: top tracks first, then saved tracks, then artist tracks.
type LibrarySnapshot struct {
	UserID    string    `json:"user_id"`
	TrackIDs  []string  `json:"track_ids"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (s LibrarySnapshot) Key() string { return s.UserID }

func (s LibrarySnapshot) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("library snapshot: user id is required")
	}
	return nil
}

// RecommendationEntry holds the similar tracks returned for one seed. An empty list is a valid entry.
type RecommendationEntry struct {
	SeedTrackID string    `json:"seed_track_id"`
	TrackIDs    []string  `json:"track_ids"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func (e RecommendationEntry) Key() string { return e.SeedTrackID }

func (e RecommendationEntry) Validate() error {
	if e.SeedTrackID == "" {
		return fmt.Errorf("recommendation entry: seed track id is required")
	}
	return nil
}

// ArtistTracks holds the top tracks of one artist.
type ArtistTracks struct {
	ArtistID  string    `json:"artist_id"`
	TrackIDs  []string  `json:"track_ids"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (a ArtistTracks) Key() string { return a.ArtistID }

func (a ArtistTracks) Validate() error {
	if a.ArtistID == "" {
		return fmt.Errorf("artist tracks: artist id is required")
	}
	return nil
}

// PipelineRun summarizes one generate run.
type PipelineRun struct {
	ID         string
	Cadence    int
	PoolSize   int
	Selected   int
	PlaylistID string // empty when no playlist was written
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r PipelineRun) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("pipeline run: id is required")
	case r.Cadence <= 0:
		return fmt.Errorf("pipeline run %s: cadence must be positive", r.ID)
	case r.FinishedAt.Before(r.StartedAt):
		return fmt.Errorf("pipeline run %s: finished before it started", r.ID)
	}
	return nil
}

// Duration returns how long the run took.
func (r PipelineRun) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
