package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/stride/internal/tasks"
)

var _ list.Item = trackItem{}

// trackItem wraps [tasks.Selection] to implement [list.Item].
type trackItem struct {
	position  int
	selection tasks.Selection
}

func (i trackItem) FilterValue() string { return i.selection.TrackID }
func (i trackItem) Title() string       { return fmt.Sprintf("%d. %s", i.position, i.selection.TrackID) }
func (i trackItem) Description() string { return fmt.Sprintf("%.1f BPM", i.selection.BPM) }

func trackItems(selections []tasks.Selection) []list.Item {
	items := make([]list.Item, len(selections))
	for i, s := range selections {
		items[i] = trackItem{position: i + 1, selection: s}
	}
	return items
}
