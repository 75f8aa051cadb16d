// Package ui implements an interactive terminal interface for a generate run using bubbletea's Elm architecture.
//
// The TUI moves through these views:
//  1. [RunView] : pipeline stages with a spinner on the active one
//  2. [ResultView] : run statistics and the selected tracks
//  3. [ConfirmView] : confirm playlist creation
//  4. [CreatingView] : playlist creation in progress
//  5. [DoneView] : the created playlist's link
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress flows through a [tasks.ChannelSink], so a slow render never blocks the pipeline.
package ui
