package tasks

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "collect", PhaseCollect.String())
	assert.Equal(t, "expand", PhaseExpand.String())
	assert.Equal(t, "analyze", PhaseAnalyze.String())
	assert.Equal(t, "filter", PhaseFilter.String())
	assert.Equal(t, "create_playlist", PhaseCreatePlaylist.String())
	assert.Equal(t, "", Phase(99).String())
}

func TestSinks(t *testing.T) {
	t.Run("ChannelSink drops updates when full", func(t *testing.T) {
		ch := make(chan ProgressUpdate, 1)
		sink := ChannelSink(ch)

		sink.Notify(ProgressUpdate{Message: "first"})
		sink.Notify(ProgressUpdate{Message: "second"})

		assert.Len(t, ch, 1)
		assert.Equal(t, "first", (<-ch).Message)
	})

	t.Run("nil ChannelSink is a no-op", func(t *testing.T) {
		var sink ChannelSink
		assert.NotPanics(t, func() { sink.Notify(ProgressUpdate{}) })
	})

	t.Run("SinkFunc", func(t *testing.T) {
		var got []string
		sink := SinkFunc(func(u ProgressUpdate) { got = append(got, u.Message) })
		sink.Notify(ProgressUpdate{Message: "x"})
		assert.Equal(t, []string{"x"}, got)
	})

	t.Run("LogSink", func(t *testing.T) {
		var buf bytes.Buffer
		sink := LogSink{Logger: log.New(&buf)}
		sink.Notify(analyzeBatchUpdate(2, 3, 40))

		assert.Contains(t, buf.String(), "Fetching tempos for 40 tracks")
		assert.Contains(t, buf.String(), "phase=analyze")
		assert.Contains(t, buf.String(), "step=2")
	})
}
