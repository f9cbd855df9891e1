// Package services defines the [Service] interface for anime list providers and implements it for AniList and MyAnimeList.
//
// # Service Interface
//
// Both providers implement a common abstraction so the sync engine can fetch
// snapshots and apply updates uniformly, without knowing which side of the
// pair it is talking to.
//
// # AniList Implementation
//
// [AniListService] speaks GraphQL against a single endpoint. List fetches
// request scores in POINT_100 format so no per-user score setting leaks into
// the normalized model. Writes go through the SaveMediaListEntry mutation.
//
// AniList media IDs differ from MAL IDs, so the client consults a
// [MappingResolver] cache and falls back to a title search when writing an
// entry that originated on MyAnimeList.
//
// # MyAnimeList Implementation
//
// [MALService] uses the v2 REST API. List fetches follow the paging.next
// links until exhausted; writes PATCH the per-anime my_list_status resource
// with a form-encoded body. Scores are converted to MAL's 0-10 scale on the
// way out.
//
// # Error Handling
//
// Responses are classified into sentinel errors from the shared package:
//   - [shared.ErrAuthFailed] : 401/403, credentials rejected
//   - [shared.ErrTransient] : 429/5xx and network timeouts, safe to retry
//   - [shared.ErrRejected] : 400/422, the payload itself was refused
//   - [shared.ErrProtocol] : unexpected status or undecodable body
//
// Every call runs through a [Pacer], which enforces a per-service minimum
// request interval and retries transient failures with bounded backoff.
package services
