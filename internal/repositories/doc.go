// Package repositories provides SQLite-backed persistence for the ID
// mapping cache.
//
// AniList and MyAnimeList assign independent numeric IDs to the same
// series. [MappingRepository] stores resolved pairs so a correlation is
// searched remotely at most once, then answered locally on every
// subsequent sync cycle.
package repositories
