// Package models defines the entities the discovery pipeline caches and the values it passes between stages.
//
// Cached entities, one per cache namespace:
//   - [LibrarySnapshot] : a user's collected library, keyed by user id
//   - [RecommendationEntry] : similar tracks returned for one seed track
//   - [ArtistTracks] : top tracks of one artist, used as extra seeds
//   - [TempoRecord] : tagged tempo result for one track, either resolved or unavailable
//
// Every cached entity implements [Entity], which gives repositories its cache key and a validation hook.
//
// [Tempo] is the resolver's per-track result: a BPM value or "no tempo".
// [PipelineRun] is the persisted summary of one generate run.
package models
