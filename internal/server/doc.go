// Package server provides HTTP routing, middleware and the OAuth callback used by `stride spotify auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] implements it on
// [http.ServeMux] with method filtering. [Middleware] runs in the order it is added.
//
// # OAuth Callback
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It validates the state parameter,
// exchanges the code for tokens and sends the result through a channel. Only one callback is processed.
//
// [ListenCallback] binds the redirect URI's host and port, and [CallbackServer.Wait] blocks until the
// browser returns or the context ends, then shuts the server down.
package server
