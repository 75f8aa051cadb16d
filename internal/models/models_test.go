package models

import (
	"testing"
	"time"
)

func TestTempoRecord(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("resolved record", func(t *testing.T) {
		rec := NewResolvedTempo("a", 172, now)
		if err := rec.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
		if got := rec.Tempo(); !got.Known || got.BPM != 172 {
			t.Errorf("expected known tempo 172, got %+v", got)
		}
	})

	t.Run("unavailable record", func(t *testing.T) {
		rec := NewUnavailableTempo("b", now)
		if err := rec.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
		if got := rec.Tempo(); got.Known {
			t.Errorf("expected no tempo, got %+v", got)
		}
	})

	tests := []struct {
		name string
		rec  TempoRecord
	}{
		{"missing track id", TempoRecord{Status: TempoUnavailable}},
		{"resolved without bpm", TempoRecord{TrackID: "a", Status: TempoResolved}},
		{"resolved with zero bpm", NewResolvedTempo("a", 0, now)},
		{"unavailable with bpm", TempoRecord{TrackID: "a", BPM: new(float64), Status: TempoUnavailable}},
		{"unknown status", TempoRecord{TrackID: "a", Status: "stale"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rec.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTempoString(t *testing.T) {
	if got := NoTempo.String(); got != "no tempo" {
		t.Errorf("expected no tempo, got %q", got)
	}
	if got := KnownTempo(171.5).String(); got != "171.5" {
		t.Errorf("unexpected formatted tempo %q", got)
	}
}

func TestEntityKeys(t *testing.T) {
	entities := map[string]Entity{
		"u1": LibrarySnapshot{UserID: "u1"},
		"s1": RecommendationEntry{SeedTrackID: "s1"},
		"a1": ArtistTracks{ArtistID: "a1"},
		"t1": NewUnavailableTempo("t1", time.Now()),
	}

	for want, e := range entities {
		if e.Key() != want {
			t.Errorf("expected key %s, got %s", want, e.Key())
		}
		if err := e.Validate(); err != nil {
			t.Errorf("unexpected validation error for %s: %v", want, err)
		}
	}
}

func TestPipelineRun(t *testing.T) {
	start := time.Now()
	run := PipelineRun{ID: "r1", Cadence: 170, StartedAt: start, FinishedAt: start.Add(2 * time.Second)}

	if err := run.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Duration() != 2*time.Second {
		t.Errorf("expected 2s, got %v", run.Duration())
	}

	run.FinishedAt = start.Add(-time.Second)
	if err := run.Validate(); err == nil {
		t.Error("expected error for run finishing before start")
	}
}
