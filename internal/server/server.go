// package server contains the router, middleware and OAuth callback handler used by the CLI
package server

import "net/http"

// Middleware decorates a handler, e.g. with request logging.
type Middleware func(http.Handler) http.Handler

// Handler is a browser-facing GET endpoint that reports its own paths.
//
// [OAuthHandler] derives its path from the redirect URI, so the router cannot know it up front.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router mounts handlers behind a shared middleware stack.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
}
