package tasks

import (
	"fmt"

	"github.com/desertthunder/stride/internal/models"
	"github.com/desertthunder/stride/internal/shared"
)

// Accepted running cadences, in steps per minute.
const (
	MinCadence = 140
	MaxCadence = 190
)

// The tempo window around a cadence reaches further above it than below.
const (
	WindowBelow = 4
	WindowAbove = 5
)

// ValidateCadence reports whether cadence is within [MinCadence, MaxCadence].
func ValidateCadence(cadence int) error {
	if cadence < MinCadence || cadence > MaxCadence {
		return fmt.Errorf("%w: %d is outside %d-%d", shared.ErrInvalidCadence, cadence, MinCadence, MaxCadence)
	}
	return nil
}

// Window is an inclusive tempo range in BPM.
type Window struct {
	Low, High float64
}

// WindowFor returns the tempo window matching cadence.
func WindowFor(cadence int) Window {
	return Window{Low: float64(cadence - WindowBelow), High: float64(cadence + WindowAbove)}
}

// Contains reports whether bpm lies within the window, bounds included.
func (w Window) Contains(bpm float64) bool {
	return bpm >= w.Low && bpm <= w.High
}

func (w Window) String() string {
	return fmt.Sprintf("%.0f-%.0f", w.Low, w.High)
}

// Selection is a track chosen for a playlist.
type Selection struct {
	TrackID string
	BPM     float64
}

// SelectTracks keeps the pool tracks whose known tempo falls in the cadence window, in pool order.
//
// Tracks with no tempo, or missing from tempos, are excluded.
func SelectTracks(pool []string, tempos map[string]models.Tempo, cadence int) ([]Selection, error) {
	if err := ValidateCadence(cadence); err != nil {
		return nil, err
	}

	window := WindowFor(cadence)
	selected := make([]Selection, 0)
	for _, id := range pool {
		tempo, ok := tempos[id]
		if !ok || !tempo.Known || !window.Contains(tempo.BPM) {
			continue
		}
		selected = append(selected, Selection{TrackID: id, BPM: tempo.BPM})
	}
	return selected, nil
}

// FilterByCadence is [SelectTracks] reduced to track ids.
func FilterByCadence(pool []string, tempos map[string]models.Tempo, cadence int) ([]string, error) {
	selected, err := SelectTracks(pool, tempos, cadence)
	if err != nil {
		return nil, err
	}
	return SelectionIDs(selected), nil
}

// SelectionIDs returns the track ids of selected, in order.
func SelectionIDs(selected []Selection) []string {
	ids := make([]string, len(selected))
	for i, s := range selected {
		ids[i] = s.TrackID
	}
	return ids
}
