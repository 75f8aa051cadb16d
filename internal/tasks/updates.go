package tasks

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline stage
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase; 0 when unknown
	Message string // Human-readable message for display
	Done    bool   // Set on the last update of a phase
	Data    any    // Optional phase-specific data for advanced UIs
}

// Pipeline stage enumeration
type Phase int

const (
	PhaseCollect Phase = iota
	PhaseExpand
	PhaseAnalyze
	PhaseFilter
	PhaseCreatePlaylist
)

func (p Phase) String() string {
	switch p {
	case PhaseCollect:
		return "collect"
	case PhaseExpand:
		return "expand"
	case PhaseAnalyze:
		return "analyze"
	case PhaseFilter:
		return "filter"
	case PhaseCreatePlaylist:
		return "create_playlist"
	default:
		return ""
	}
}

// ProgressSink receives one-way progress notifications. The pipeline never waits on or reads from it.
type ProgressSink interface {
	Notify(update ProgressUpdate)
}

// ChannelSink forwards updates to a channel without blocking; updates are dropped when the channel is full.
type ChannelSink chan<- ProgressUpdate

func (c ChannelSink) Notify(update ProgressUpdate) {
	if c == nil {
		return
	}
	select {
	case c <- update:
	default:
	}
}

// SinkFunc adapts a function to [ProgressSink].
type SinkFunc func(ProgressUpdate)

func (f SinkFunc) Notify(update ProgressUpdate) { f(update) }

// NopSink discards every update.
type NopSink struct{}

func (NopSink) Notify(ProgressUpdate) {}

// LogSink writes updates to a logger at info level.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Notify(update ProgressUpdate) {
	kv := []any{"phase", update.Phase}
	if update.Total > 0 {
		kv = append(kv, "step", update.Step, "total", update.Total)
	}
	s.Logger.Info(update.Message, kv...)
}

// sinkOrNop lets callers pass a nil sink.
func sinkOrNop(sink ProgressSink) ProgressSink {
	if sink == nil {
		return NopSink{}
	}
	return sink
}

func collectStartUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCollect,
		Message: "Collecting top and saved tracks...",
	}
}

func collectDoneUpdate(n int, cached bool) ProgressUpdate {
	source := "from Spotify"
	if cached {
		source = "from cache"
	}
	return ProgressUpdate{
		Phase:   PhaseCollect,
		Step:    1,
		Total:   1,
		Done:    true,
		Message: fmt.Sprintf("Collected %d library tracks %s", n, source),
	}
}

func expandSkippedUpdate(librarySize, threshold int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExpand,
		Done:    true,
		Message: fmt.Sprintf("Skipping expansion: library has %d tracks (threshold %d)", librarySize, threshold),
	}
}

func expandSeedUpdate(step, total int, seed string, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExpand,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: +%d candidates", step, total, seed, added),
	}
}

func expandDoneUpdate(poolSize, expanded int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExpand,
		Done:    true,
		Message: fmt.Sprintf("Candidate pool has %d tracks after expanding %d seeds", poolSize, expanded),
	}
}

func analyzeCachedUpdate(total, cached int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAnalyze,
		Message: fmt.Sprintf("%d of %d tempos cached", cached, total),
	}
}

func analyzeBatchUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAnalyze,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching tempos for %d tracks...", step, total, size),
	}
}

func analyzeDoneUpdate(known, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAnalyze,
		Done:    true,
		Message: fmt.Sprintf("Tempo known for %d of %d tracks", known, total),
	}
}

func filterDoneUpdate(selected int, w Window) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFilter,
		Done:    true,
		Message: fmt.Sprintf("Found %d tracks between %s BPM", selected, w),
		Data:    selected,
	}
}

func createPlaylistStartUpdate(name string, n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCreatePlaylist,
		Message: fmt.Sprintf("Creating %q with %d tracks...", name, n),
	}
}

func createPlaylistDoneUpdate(name, url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCreatePlaylist,
		Done:    true,
		Message: fmt.Sprintf("Playlist created: %s (%s)", name, url),
		Data:    url,
	}
}
