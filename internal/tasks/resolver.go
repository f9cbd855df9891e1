package tasks

import (
	"fmt"
	"sort"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// SyncMode selects the direction of list propagation.
type SyncMode string

const (
	ModeBidirectional SyncMode = "bidirectional"
	ModeAniListToMAL  SyncMode = "anilist-to-mal"
	ModeMALToAniList  SyncMode = "mal-to-anilist"
)

// ParseMode validates a mode string from configuration or a CLI flag.
func ParseMode(raw string) (SyncMode, error) {
	switch SyncMode(raw) {
	case ModeBidirectional, ModeAniListToMAL, ModeMALToAniList:
		return SyncMode(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown sync mode %q", shared.ErrInvalidConfig, raw)
	}
}

// source returns the authoritative service for one-way modes.
func (m SyncMode) source() models.ServiceName {
	if m == ModeMALToAniList {
		return models.ServiceMAL
	}
	return models.ServiceAniList
}

// target returns the writable service for one-way modes.
func (m SyncMode) target() models.ServiceName {
	if m == ModeMALToAniList {
		return models.ServiceAniList
	}
	return models.ServiceMAL
}

// Resolve computes the per-title decisions needed to converge two snapshots.
//
// The result is a pure function of the snapshots, the mode and the score
// setting: decisions are emitted in sorted key order, entries without a
// correlation key surface as Unresolvable, and no hidden state influences
// the outcome.
//
// In bidirectional mode the entry with the strictly greater UpdatedAt wins a
// conflict; equal timestamps with differing content resolve to NoOp so two
// hosts never oscillate writes at each other. In one-way modes the configured
// source is authoritative regardless of timestamps, and titles present only
// on the target are left alone rather than created on the source.
//
// With scoreSync disabled, scores are invisible: they neither count as
// differences nor travel with the emitted update entries.
func Resolve(a, b *models.ListSnapshot, mode SyncMode, scoreSync bool) []models.SyncDecision {
	if !scoreSync {
		a, b = stripScores(a), stripScores(b)
	}

	var decisions []models.SyncDecision

	for _, snapshot := range []*models.ListSnapshot{a, b} {
		for _, entry := range snapshot.Entries {
			if entry.Key == "" {
				decisions = append(decisions, models.SyncDecision{
					Kind:   models.DecisionUnresolvable,
					Entry:  entry,
					Reason: fmt.Sprintf("no correlation key for %q on %s", entry.Title, snapshot.Service),
				})
			}
		}
	}

	indexA, indexB := a.Index(), b.Index()

	keys := make([]string, 0, len(indexA)+len(indexB))
	for key := range indexA {
		keys = append(keys, key)
	}
	for key := range indexB {
		if _, seen := indexA[key]; !seen {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		entryA, inA := indexA[key]
		entryB, inB := indexB[key]

		switch {
		case inA && inB:
			decisions = append(decisions, resolvePair(a.Service, b.Service, entryA, entryB, mode))
		case inA:
			decisions = append(decisions, resolveSingle(a.Service, b.Service, entryA, mode))
		default:
			decisions = append(decisions, resolveSingle(b.Service, a.Service, entryB, mode))
		}
	}

	return decisions
}

// stripScores copies a snapshot with every entry's score cleared.
func stripScores(s *models.ListSnapshot) *models.ListSnapshot {
	out := &models.ListSnapshot{Service: s.Service, FetchedAt: s.FetchedAt, Entries: make([]models.ListEntry, len(s.Entries))}
	for i, entry := range s.Entries {
		out.Entries[i] = entry.WithoutScore()
	}
	return out
}

// resolveSingle handles a title known to only one service. from is the
// service holding the entry, to the one missing it.
func resolveSingle(from, to models.ServiceName, entry models.ListEntry, mode SyncMode) models.SyncDecision {
	if mode != ModeBidirectional && to != mode.target() {
		return models.SyncDecision{
			Key:    entry.Key,
			Kind:   models.DecisionNoOp,
			Reason: fmt.Sprintf("only on %s, which is not writable in %s mode", from, mode),
		}
	}

	return models.SyncDecision{
		Key:    entry.Key,
		Kind:   models.DecisionUpdate,
		Target: to,
		Entry:  entry,
		Reason: fmt.Sprintf("missing on %s", to),
	}
}

// resolvePair handles a title present in both snapshots.
func resolvePair(serviceA, serviceB models.ServiceName, entryA, entryB models.ListEntry, mode SyncMode) models.SyncDecision {
	if entryA.EquivalentTo(entryB) {
		return models.SyncDecision{Key: entryA.Key, Kind: models.DecisionNoOp, Reason: "in sync"}
	}

	if mode != ModeBidirectional {
		winner, target := entryA, serviceB
		if mode.source() == serviceB {
			winner, target = entryB, serviceA
		}
		return models.SyncDecision{
			Key:    winner.Key,
			Kind:   models.DecisionUpdate,
			Target: target,
			Entry:  winner,
			Reason: fmt.Sprintf("%s is authoritative in %s mode", mode.source(), mode),
		}
	}

	switch {
	case entryA.UpdatedAt.After(entryB.UpdatedAt):
		return models.SyncDecision{
			Key:    entryA.Key,
			Kind:   models.DecisionUpdate,
			Target: serviceB,
			Entry:  entryA,
			Reason: fmt.Sprintf("%s entry is newer", serviceA),
		}
	case entryB.UpdatedAt.After(entryA.UpdatedAt):
		return models.SyncDecision{
			Key:    entryB.Key,
			Kind:   models.DecisionUpdate,
			Target: serviceA,
			Entry:  entryB,
			Reason: fmt.Sprintf("%s entry is newer", serviceB),
		}
	default:
		return models.SyncDecision{
			Key:    entryA.Key,
			Kind:   models.DecisionNoOp,
			Reason: "entries differ but timestamps are equal",
		}
	}
}
