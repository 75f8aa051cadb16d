package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/stride/internal/models"
)

func TestTempoResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("85 uncached ids take three batches", func(t *testing.T) {
		f := newFixture(t)
		ids := trackIDRange("t", 85)
		for _, id := range ids[:60] {
			f.tempo.BPMs[id] = 170
		}

		res, err := f.resolver(40).Resolve(ctx, ids, nil)
		require.NoError(t, err)

		require.Len(t, f.tempo.Batches, 3)
		assert.Len(t, f.tempo.Batches[0], 40)
		assert.Len(t, f.tempo.Batches[1], 40)
		assert.Len(t, f.tempo.Batches[2], 5)
		assert.Equal(t, ids, f.tempo.Requested())

		assert.Len(t, res.Tempos, 85)
		assert.Equal(t, 60, res.Known())
		assert.Equal(t, 25, res.Unavailable)
		assert.Equal(t, 85, res.Fetched)
		assert.Equal(t, 3, res.Batches)
		assert.Equal(t, models.KnownTempo(170), res.Tempos["t000"])
		assert.Equal(t, models.NoTempo, res.Tempos["t084"])
	})

	t.Run("second pass makes no calls", func(t *testing.T) {
		f := newFixture(t)
		ids := trackIDRange("t", 85)
		for _, id := range ids[:10] {
			f.tempo.BPMs[id] = 160
		}
		r := f.resolver(40)

		first, err := r.Resolve(ctx, ids, nil)
		require.NoError(t, err)
		calls := f.tempo.Calls()

		second, err := r.Resolve(ctx, ids, nil)
		require.NoError(t, err)
		assert.Equal(t, calls, f.tempo.Calls())
		assert.Equal(t, first.Tempos, second.Tempos)
		assert.Equal(t, 85, second.CacheHits)
		assert.Zero(t, second.Batches)
	})

	t.Run("unavailable ids are never refetched", func(t *testing.T) {
		f := newFixture(t)
		r := f.resolver(40)

		_, err := r.Resolve(ctx, []string{"gone"}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, f.tempo.Calls())

		rec, ok, err := f.records.Get(ctx, "gone")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, models.TempoUnavailable, rec.Status)

		f.clock.Advance(3 * retention)
		f.tempo.BPMs["gone"] = 171

		res, err := r.Resolve(ctx, []string{"gone"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, f.tempo.Calls())
		assert.Equal(t, models.NoTempo, res.Tempos["gone"])
	})

	t.Run("non-positive tempos are recorded as unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.tempo.BPMs = map[string]float64{"zero": 0, "negative": -12, "ok": 168}

		res, err := f.resolver(40).Resolve(ctx, []string{"zero", "negative", "ok"}, nil)
		require.NoError(t, err)
		assert.Equal(t, models.NoTempo, res.Tempos["zero"])
		assert.Equal(t, models.NoTempo, res.Tempos["negative"])
		assert.Equal(t, models.KnownTempo(168), res.Tempos["ok"])
		assert.Equal(t, 2, res.Unavailable)

		for _, id := range []string{"zero", "negative"} {
			rec, ok, err := f.records.Get(ctx, id)
			require.NoError(t, err)
			require.True(t, ok, id)
			assert.Equal(t, models.TempoUnavailable, rec.Status, id)
		}
	})

	t.Run("resolved records are refetched after retention", func(t *testing.T) {
		f := newFixture(t)
		f.tempo.BPMs["a"] = 165
		r := f.resolver(40)

		_, err := r.Resolve(ctx, []string{"a"}, nil)
		require.NoError(t, err)

		f.clock.Advance(retention + 1)
		_, err = r.Resolve(ctx, []string{"a"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, f.tempo.Calls())
	})

	t.Run("batch failure keeps earlier results", func(t *testing.T) {
		f := newFixture(t)
		ids := trackIDRange("t", 85)
		for _, id := range ids {
			f.tempo.BPMs[id] = 150
		}
		boom := errors.New("reccobeats down")
		f.tempo.FailOnCall = 2
		f.tempo.Err = boom
		r := f.resolver(40)

		res, err := r.Resolve(ctx, ids, nil)
		require.ErrorIs(t, err, boom)
		require.NotNil(t, res)
		assert.Len(t, res.Tempos, 40)
		for _, id := range ids[:40] {
			assert.Equal(t, models.KnownTempo(150), res.Tempos[id])
		}

		f.tempo.FailOnCall = 0
		retry, err := r.Resolve(ctx, ids, nil)
		require.NoError(t, err)
		assert.Equal(t, 40, retry.CacheHits)
		assert.Equal(t, 2, retry.Batches)
		assert.Len(t, retry.Tempos, 85)
	})

	t.Run("duplicate ids are fetched once", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.resolver(40).Resolve(ctx, []string{"a", "b", "a"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, f.tempo.Requested())
		assert.Len(t, res.Tempos, 2)
	})

	t.Run("empty input makes no calls", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.resolver(40).Resolve(ctx, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Tempos)
		assert.Zero(t, f.tempo.Calls())
	})

	t.Run("batch size is configurable and capped", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.resolver(10).Resolve(ctx, trackIDRange("s", 85), nil)
		require.NoError(t, err)
		assert.Equal(t, 9, f.tempo.Calls())

		g := newFixture(t)
		_, err = g.resolver(100).Resolve(ctx, trackIDRange("s", 85), nil)
		require.NoError(t, err)
		assert.Equal(t, 3, g.tempo.Calls())
	})

	t.Run("reports progress", func(t *testing.T) {
		f := newFixture(t)
		rec := &recorder{}
		_, err := f.resolver(40).Resolve(ctx, trackIDRange("t", 45), rec)
		require.NoError(t, err)

		require.Len(t, rec.updates, 4)
		assert.Equal(t, []Phase{PhaseAnalyze}, rec.phases())
		assert.Equal(t, 2, rec.updates[2].Step)
		assert.Equal(t, 2, rec.updates[2].Total)
		assert.True(t, rec.updates[3].Done)
	})
}
