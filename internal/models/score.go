package models

import "math"

// ScoreScale identifies a service's native rating scale.
type ScoreScale int

const (
	ScaleHundred ScoreScale = iota // AniList POINT_100
	ScaleTen                       // MyAnimeList 0-10 integers
)

// NormalizeScore converts a raw service score to the canonical 0-100 scale.
//
// Normalization is idempotent: a value already on the 100-point scale passes
// through unchanged, and round-tripping a 10-point integer via
// [DenormalizeTen] recovers the original value.
func NormalizeScore(v float64, scale ScoreScale) float64 {
	if scale == ScaleTen {
		return v * 10
	}
	return v
}

// DenormalizeTen converts a canonical 0-100 score back to the nearest
// 10-point integer.
func DenormalizeTen(v float64) int {
	return int(math.Round(v / 10))
}

// ScoresEquivalent compares two canonical scores for sync purposes.
//
// The 10-point scale cannot represent ones digits, so scores are equivalent
// when they fall in the same decile bucket: a MAL 7 normalizes to 70 and
// matches any AniList score in 70-79. A score crossing a decile boundary
// (79 vs 80) is a real difference. Nil means "unscored" and only matches nil.
func ScoresEquivalent(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return scoreBucket(*a) == scoreBucket(*b)
}

func scoreBucket(v float64) int {
	return int(math.Floor(v / 10))
}
