// Package server provides HTTP routing, middleware, and OAuth callback handling.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. The [BasicRouter] implementation uses
// [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow. The
// handler validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens, and sends the result through a channel. It
// only processes one callback to prevent replay attacks. A state mismatch is
// reported as [shared.ErrStateMismatch] and never proceeds to the exchange.
//
// Two consumers share this infrastructure: the authentication orchestrator
// spins up a short-lived callback listener during interactive authorization,
// and the monitoring web UI (internal/web) serves its dashboard and status
// API through the same router and middleware stack.
package server
