// Package tasks builds cadence playlists from a user's library with real-time progress reporting.
//
// # Stages
//
// A [Pipeline] run moves through four stages:
//
//  1. [LibraryCollector] : top tracks, saved tracks and top artists' top tracks
//     - Snapshots are cached per user with a TTL
//     - Concurrent collections for one user share a single fetch
//
//  2. [CandidateExpander] : similar tracks for each seed
//     - Seeds first, then discoveries, deduplicated, capped at the pool ceiling
//     - A failing seed is logged and skipped
//
//  3. [TempoResolver] : tempo for every candidate
//     - Stored records first, then batches of at most [services.MaxTempoBatch]
//     - Ids the service has no data for are marked unavailable and never refetched
//
//  4. [SelectTracks] : keep tracks within the cadence window, in pool order
//
// [CreatePlaylist] writes the selection back to the streaming service.
//
// # Progress Reporting
//
// Stages report to a [ProgressSink]. [ChannelSink] uses select with default so a slow
// reader never blocks the pipeline.
package tasks
