package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgRunComplete
	MsgPlaylistCreated
)

type runOutcome struct {
	result *tasks.Result
	err    error
}

type playlistOutcome struct {
	playlist *services.Playlist
	err      error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.Result, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runOutcome{result, err}}
}

// playlistCreatedMsg is the constructor for [MsgPlaylistCreated]
func playlistCreatedMsg(playlist *services.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistCreated, data: playlistOutcome{playlist, err}}
}
