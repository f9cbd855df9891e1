package models

import (
	"time"
)

// ServiceName identifies one of the two tracking services.
type ServiceName string

const (
	ServiceAniList ServiceName = "anilist"
	ServiceMAL     ServiceName = "myanimelist"
)

// WatchStatus is the closed set of watch states both services map into.
type WatchStatus string

const (
	StatusWatching  WatchStatus = "watching"
	StatusCompleted WatchStatus = "completed"
	StatusPlanned   WatchStatus = "planned"
	StatusDropped   WatchStatus = "dropped"
	StatusPaused    WatchStatus = "paused"
)

// ListEntry is a normalized anime list entry from either service.
//
// Key is the cross-service correlation key (the MAL numeric ID as a string;
// AniList entries carry it as idMal). An empty Key means the entry cannot be
// correlated and is surfaced as unresolvable rather than silently dropped.
type ListEntry struct {
	Key       string      `json:"key"`
	Title     string      `json:"title"`
	Status    WatchStatus `json:"status"`
	Progress  int         `json:"progress"`
	Score     *float64    `json:"score,omitempty"` // canonical 0-100 scale
	UpdatedAt time.Time   `json:"updated_at"`
}

// EquivalentTo reports whether two entries carry the same synchronized state.
//
// Scores are compared with [ScoresEquivalent] so lossy 10-point rounding does
// not produce false diffs. UpdatedAt is deliberately excluded: it orders
// conflicts, it is not synchronized state.
func (e ListEntry) EquivalentTo(other ListEntry) bool {
	return e.Status == other.Status &&
		e.Progress == other.Progress &&
		ScoresEquivalent(e.Score, other.Score)
}

// WithoutScore returns a copy of the entry with the score cleared. Used
// when score syncing is disabled so scores neither produce diffs nor
// travel with writes.
func (e ListEntry) WithoutScore() ListEntry {
	e.Score = nil
	return e
}

// ListSnapshot is a point-in-time read of one service's full tracked list.
type ListSnapshot struct {
	Service   ServiceName `json:"service"`
	FetchedAt time.Time   `json:"fetched_at"`
	Entries   []ListEntry `json:"entries"`
}

// Index returns the snapshot's correlatable entries keyed by correlation key.
// Entries without a key are excluded; callers surface those separately.
func (s *ListSnapshot) Index() map[string]ListEntry {
	idx := make(map[string]ListEntry, len(s.Entries))
	for _, e := range s.Entries {
		if e.Key != "" {
			idx[e.Key] = e
		}
	}
	return idx
}

// DecisionKind enumerates the outcomes for one correlated title.
type DecisionKind int

const (
	DecisionNoOp DecisionKind = iota
	DecisionUpdate
	DecisionUnresolvable
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionNoOp:
		return "noop"
	case DecisionUpdate:
		return "update"
	case DecisionUnresolvable:
		return "unresolvable"
	default:
		return ""
	}
}

// SyncDecision is the resolver's verdict for one title.
//
// When Kind is [DecisionUpdate], Target names the service to write to and
// Entry carries the authoritative values to apply.
type SyncDecision struct {
	Key    string       `json:"key"`
	Kind   DecisionKind `json:"kind"`
	Target ServiceName  `json:"target,omitempty"`
	Entry  ListEntry    `json:"entry"`
	Reason string       `json:"reason,omitempty"`
}

// TokenRecord holds the persisted OAuth credentials for one service.
//
// RefreshToken is empty for services that do not issue one; such tokens can
// only be renewed by a full re-authorization.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the token should be treated as expired at now.
// The margin expires tokens slightly early so a request never races expiry.
func (t TokenRecord) Expired(now time.Time, margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(t.ExpiresAt.Add(-margin))
}

// Refreshable reports whether the record carries a refresh token.
func (t TokenRecord) Refreshable() bool {
	return t.RefreshToken != ""
}

// Outcome classifies a completed sync cycle.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial_failure"
	OutcomeAborted        Outcome = "aborted"
)

func (o Outcome) String() string {
	return string(o)
}
