// Package auth manages the OAuth token lifecycle for both tracking services.
//
// The [Store] is a pure data holder: it loads and saves one token record per
// service with atomic writes and restrictive permissions, and answers expiry
// queries with a safety margin.
//
// The [Orchestrator] drives the authorization-code flow (local callback
// listener, anti-forgery state, bounded grant wait) and the refresh flow.
// Refresh capability is a per-service [Descriptor] flag rather than scattered
// branching: MyAnimeList refreshes in place, AniList never does, so an
// expired AniList credential always surfaces as requiring manual
// re-authorization.
package auth
