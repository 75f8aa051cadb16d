// Package repositories gives the pipeline typed access to persisted state.
//
// Cache repositories wrap a [cache.Store] and own the JSON encoding and expiry policy of one entity kind:
//   - [LibraryRepository] : library snapshots, short TTL
//   - [RecommendationRepository] : per-seed similar tracks, retention TTL
//   - [ArtistTrackRepository] : per-artist top tracks, retention TTL
//   - [TempoRepository] : tempo records; resolved records use the retention TTL, unavailable records are permanent
//
// An entry that fails to decode reads as a miss, so the next fetch overwrites it.
//
// [RunRepository] stores pipeline run history in SQLite directly; it is not cache data and never expires.
package repositories
