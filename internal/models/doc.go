// package models defines the domain types shared across the application.
//
// A [ListEntry] is the normalized view of one tracked title on one service.
// Scores are stored on a canonical 0-100 scale; [NormalizeScore] and
// [ScoresEquivalent] define the conversion and comparison rules between the
// AniList 100-point scale and the MyAnimeList 10-point integer scale.
//
// [SyncDecision] values are computed purely from two [ListSnapshot] inputs;
// nothing outside the snapshots influences the outcome.
package models
