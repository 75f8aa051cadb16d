package repositories

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/models"
	"github.com/desertthunder/stride/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// setupStore creates a SQLite-backed cache store with a controllable clock
func setupStore(t *testing.T) (*cache.SQLiteStore, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	return cache.NewSQLiteStore(setupTestDB(t), cache.WithClock(clock.Now)), clock
}

const retention = 30 * 24 * time.Hour

func TestTempoRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveResolved and Get", func(t *testing.T) {
		store, clock := setupStore(t)
		repo := NewTempoRepository(store, retention)

		if err := repo.SaveResolved(ctx, "a", 172.4, clock.Now()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		rec, ok, err := repo.Get(ctx, "a")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if rec.Status != models.TempoResolved || *rec.BPM != 172.4 {
			t.Errorf("unexpected record %+v", rec)
		}
		if !rec.FetchedAt.Equal(clock.Now()) {
			t.Errorf("expected fetched_at %v, got %v", clock.Now(), rec.FetchedAt)
		}
	})

	t.Run("resolved records expire after retention", func(t *testing.T) {
		store, clock := setupStore(t)
		repo := NewTempoRepository(store, retention)

		if err := repo.SaveResolved(ctx, "a", 170, clock.Now()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		clock.Advance(retention - time.Hour)
		if _, ok, _ := repo.Get(ctx, "a"); !ok {
			t.Error("expected hit inside retention window")
		}

		clock.Advance(2 * time.Hour)
		if _, ok, _ := repo.Get(ctx, "a"); ok {
			t.Error("expected miss after retention window")
		}
	})

	t.Run("unavailable records never expire", func(t *testing.T) {
		store, clock := setupStore(t)
		repo := NewTempoRepository(store, retention)

		if err := repo.MarkUnavailable(ctx, "x", clock.Now()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		clock.Advance(5 * 365 * 24 * time.Hour)
		rec, ok, err := repo.Get(ctx, "x")
		if err != nil || !ok {
			t.Fatalf("expected permanent hit, got ok=%v err=%v", ok, err)
		}
		if rec.Status != models.TempoUnavailable || rec.BPM != nil {
			t.Errorf("unexpected record %+v", rec)
		}
	})

	t.Run("GetMany", func(t *testing.T) {
		store, clock := setupStore(t)
		repo := NewTempoRepository(store, retention)

		_ = repo.SaveResolved(ctx, "a", 150, clock.Now())
		_ = repo.MarkUnavailable(ctx, "b", clock.Now())

		records, err := repo.GetMany(ctx, []string{"a", "b", "c"})
		if err != nil {
			t.Fatalf("failed to get many: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records["b"].Status != models.TempoUnavailable {
			t.Errorf("expected b to be unavailable, got %s", records["b"].Status)
		}
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		store, clock := setupStore(t)
		repo := NewTempoRepository(store, retention)

		if err := repo.SaveResolved(ctx, "a", 0, clock.Now()); err == nil {
			t.Error("expected error for zero bpm")
		}
	})

	t.Run("undecodable entry reads as a logged miss", func(t *testing.T) {
		store, _ := setupStore(t)
		var logs bytes.Buffer
		repo := NewTempoRepository(store, retention, WithLogger(shared.NewLogger(&logs)))

		if err := store.Put(ctx, cache.TempoRecords, "bad", []byte("{not json"), cache.Permanent); err != nil {
			t.Fatalf("failed to write raw entry: %v", err)
		}

		if _, ok, err := repo.Get(ctx, "bad"); ok || err != nil {
			t.Errorf("expected miss, got ok=%v err=%v", ok, err)
		}
		records, err := repo.GetMany(ctx, []string{"bad"})
		if err != nil || len(records) != 0 {
			t.Errorf("expected no records, got %v err=%v", records, err)
		}

		out := logs.String()
		if strings.Count(out, "discarding undecodable cache entry") != 2 {
			t.Errorf("expected both reads to log the bad entry, got %q", out)
		}
		if !strings.Contains(out, "namespace=tempo_records") || !strings.Contains(out, "key=bad") {
			t.Errorf("expected namespace and key in log, got %q", out)
		}
	})
}

func TestLibraryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshot round trip and expiry", func(t *testing.T) {
		store, clock := setupStore(t)
		repo := NewLibraryRepository(store, 24*time.Hour)

		snap := models.LibrarySnapshot{UserID: "u1", TrackIDs: []string{"a", "b"}, FetchedAt: clock.Now()}
		if err := repo.Save(ctx, snap); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}

		got, ok, err := repo.Get(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if len(got.TrackIDs) != 2 || got.TrackIDs[0] != "a" {
			t.Errorf("unexpected snapshot %+v", got)
		}

		clock.Advance(25 * time.Hour)
		if _, ok, _ := repo.Get(ctx, "u1"); ok {
			t.Error("expected snapshot to expire")
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		store, _ := setupStore(t)
		repo := NewLibraryRepository(store, time.Hour)

		if err := repo.Save(ctx, models.LibrarySnapshot{}); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestRecommendationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("empty result is a cacheable hit", func(t *testing.T) {
		store, clock := setupStore(t)
		repo := NewRecommendationRepository(store, retention)

		if err := repo.Save(ctx, models.RecommendationEntry{SeedTrackID: "s", FetchedAt: clock.Now()}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		entry, ok, err := repo.Get(ctx, "s")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if entry.TrackIDs == nil || len(entry.TrackIDs) != 0 {
			t.Errorf("expected empty non-nil track list, got %#v", entry.TrackIDs)
		}
	})
}

func TestArtistTrackRepository(t *testing.T) {
	ctx := context.Background()
	store, clock := setupStore(t)
	repo := NewArtistTrackRepository(store, retention)

	if err := repo.Save(ctx, models.ArtistTracks{ArtistID: "ar", TrackIDs: []string{"t1"}, FetchedAt: clock.Now()}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	got, ok, err := repo.Get(ctx, "ar")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.TrackIDs[0] != "t1" {
		t.Errorf("unexpected tracks %v", got.TrackIDs)
	}
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Create and Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.PipelineRun{
			ID: "r1", Cadence: 170, PoolSize: 300, Selected: 12, PlaylistID: "pl",
			StartedAt: start, FinishedAt: start.Add(3 * time.Second),
		}

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Selected != 12 || got.PlaylistID != "pl" {
			t.Errorf("unexpected run %+v", got)
		}
		if got.Duration() != 3*time.Second {
			t.Errorf("expected 3s duration, got %v", got.Duration())
		}
	})

	t.Run("Get missing run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if _, err := repo.Get(ctx, "nope"); err == nil {
			t.Error("expected error for missing run")
		}
	})

	t.Run("List newest first with limit", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		for i, id := range []string{"old", "mid", "new"} {
			at := start.Add(time.Duration(i) * time.Hour)
			if err := repo.Create(ctx, models.PipelineRun{ID: id, Cadence: 160, StartedAt: at, FinishedAt: at}); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		runs, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
			t.Errorf("unexpected order %+v", runs)
		}
		if runs[0].PlaylistID != "" {
			t.Errorf("expected empty playlist id, got %q", runs[0].PlaylistID)
		}
	})

	t.Run("invalid run is rejected", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if err := repo.Create(ctx, models.PipelineRun{}); err == nil {
			t.Error("expected validation error")
		}
	})
}
