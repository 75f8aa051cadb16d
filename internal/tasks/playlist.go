package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/shared"
)

const DefaultNameTemplate = "Run Cadence %d BPM"

// PlaylistOptions describes the playlist written for a run.
type PlaylistOptions struct {
	NameTemplate string // may contain one %d for the cadence
	Description  string
	Public       bool
}

// PlaylistName renders template for cadence.
func PlaylistName(template string, cadence int) string {
	if template == "" {
		template = DefaultNameTemplate
	}
	if !strings.Contains(template, "%d") {
		return template
	}
	return fmt.Sprintf(template, cadence)
}

// CreatePlaylist writes the selected tracks of result to a new playlist owned by userID.
//
// It returns [shared.ErrNoTracks] without calling the service when nothing was selected.
func CreatePlaylist(ctx context.Context, streaming services.StreamingService, userID string, result *Result, opts PlaylistOptions, sink ProgressSink) (*services.Playlist, error) {
	sink = sinkOrNop(sink)
	ids := result.TrackIDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: cadence %d (%s BPM)", shared.ErrNoTracks, result.Cadence, result.Window)
	}

	details := services.PlaylistDetails{
		Name:        PlaylistName(opts.NameTemplate, result.Cadence),
		Description: opts.Description,
		Public:      opts.Public,
	}
	sink.Notify(createPlaylistStartUpdate(details.Name, len(ids)))

	playlist, err := streaming.CreatePlaylist(ctx, userID, details, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	sink.Notify(createPlaylistDoneUpdate(playlist.Name, playlist.URL))
	return playlist, nil
}
