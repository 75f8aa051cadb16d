// Package services defines the external collaborators of the discovery pipeline and implements them over HTTP.
//
// # Collaborator Interfaces
//
//   - [StreamingService] : the user's library (top tracks, saved tracks, top artists) and playlist creation
//   - [SimilarityService] : similar tracks for a seed
//   - [TempoService] : tempo for batches of at most [MaxTempoBatch] tracks
//
// The pipeline depends only on these interfaces, so tests substitute doubles.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// The token source refreshes expired access tokens using the refresh token; [SpotifyService.Token]
// returns the current token so the CLI can persist it.
//
// # ReccoBeats Implementation
//
// [ReccoBeatsClient] implements both [SimilarityService] and [TempoService] with resty.
// Requests share a token-bucket rate limiter. ReccoBeats identifies tracks by Spotify href;
// [TrackIDFromHref] extracts the id.
//
// # Error Handling
//
// Non-2xx responses are returned as [*StatusError], which matches:
//   - [shared.ErrAPIRequest] : always
//   - [shared.ErrNotAuthenticated] : status 401
//   - [shared.ErrServiceUnavailable] : status 502 or 503
//
// Transport failures wrap [shared.ErrAPIRequest] and the underlying error, so context cancellation stays visible.
// No client retries.
package services
