package tasks

import (
	"testing"
	"time"

	"github.com/desertthunder/anisync/internal/models"
)

var (
	t1 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
)

func scorePtr(v float64) *float64 { return &v }

func snapshot(service models.ServiceName, entries ...models.ListEntry) *models.ListSnapshot {
	return &models.ListSnapshot{Service: service, FetchedAt: time.Now(), Entries: entries}
}

func entry(key string, status models.WatchStatus, progress int, score *float64, updatedAt time.Time) models.ListEntry {
	return models.ListEntry{
		Key:       key,
		Title:     "Title " + key,
		Status:    status,
		Progress:  progress,
		Score:     score,
		UpdatedAt: updatedAt,
	}
}

func single(t *testing.T, decisions []models.SyncDecision) models.SyncDecision {
	t.Helper()
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d: %+v", len(decisions), decisions)
	}
	return decisions[0]
}

func TestResolve(t *testing.T) {
	t.Run("Equivalent Entries Yield NoOp Regardless Of Timestamps", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusWatching, 5, scorePtr(70), t2))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusWatching, 5, scorePtr(75), t1))

		decision := single(t, Resolve(a, b, ModeBidirectional, true))
		if decision.Kind != models.DecisionNoOp {
			t.Errorf("expected noop, got %s (%s)", decision.Kind, decision.Reason)
		}
	})

	t.Run("Score Only Diff Updates When Score Sync Is On", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusWatching, 5, scorePtr(90), t2))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusWatching, 5, scorePtr(70), t1))

		decision := single(t, Resolve(a, b, ModeBidirectional, true))
		if decision.Kind != models.DecisionUpdate || decision.Target != models.ServiceMAL {
			t.Fatalf("expected update targeting myanimelist, got %+v", decision)
		}
		if decision.Entry.Score == nil || *decision.Entry.Score != 90 {
			t.Errorf("update should carry the winning score, got %v", decision.Entry.Score)
		}
	})

	t.Run("Score Sync Disabled Ignores Score Diffs", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusWatching, 5, scorePtr(90), t2))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusWatching, 5, scorePtr(70), t1))

		decision := single(t, Resolve(a, b, ModeBidirectional, false))
		if decision.Kind != models.DecisionNoOp {
			t.Errorf("score diffs must be invisible when score sync is off, got %s (%s)", decision.Kind, decision.Reason)
		}
	})

	t.Run("Score Sync Disabled Omits Scores From Writes", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusWatching, 8, scorePtr(90), t2))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusWatching, 5, scorePtr(70), t1))

		decision := single(t, Resolve(a, b, ModeBidirectional, false))
		if decision.Kind != models.DecisionUpdate {
			t.Fatalf("progress diff should still update, got %s", decision.Kind)
		}
		if decision.Entry.Score != nil {
			t.Errorf("write must not carry a score when score sync is off, got %v", decision.Entry.Score)
		}
	})

	t.Run("Newer Entry Wins And Targets The Other Service", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusCompleted, 12, scorePtr(85), t2))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusWatching, 10, scorePtr(80), t1))

		decision := single(t, Resolve(a, b, ModeBidirectional, true))
		if decision.Kind != models.DecisionUpdate {
			t.Fatalf("expected update, got %s", decision.Kind)
		}
		if decision.Target != models.ServiceMAL {
			t.Errorf("expected target myanimelist, got %s", decision.Target)
		}
		if decision.Entry.Status != models.StatusCompleted || decision.Entry.Progress != 12 {
			t.Errorf("decision should carry the newer entry's values, got %+v", decision.Entry)
		}
	})

	t.Run("Newer Entry On B Targets A", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusWatching, 3, nil, t1))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusWatching, 7, nil, t2))

		decision := single(t, Resolve(a, b, ModeBidirectional, true))
		if decision.Target != models.ServiceAniList {
			t.Errorf("expected target anilist, got %s", decision.Target)
		}
		if decision.Entry.Progress != 7 {
			t.Errorf("expected authoritative progress 7, got %d", decision.Entry.Progress)
		}
	})

	t.Run("Equal Timestamps With Differing Content Yield NoOp", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusCompleted, 12, nil, t1))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusWatching, 10, nil, t1))

		decision := single(t, Resolve(a, b, ModeBidirectional, true))
		if decision.Kind != models.DecisionNoOp {
			t.Errorf("equal timestamps must not produce a write, got %s", decision.Kind)
		}
	})

	t.Run("Missing Title Is Created On The Other Side", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusPlanned, 0, nil, t1))
		b := snapshot(models.ServiceMAL)

		decision := single(t, Resolve(a, b, ModeBidirectional, true))
		if decision.Kind != models.DecisionUpdate || decision.Target != models.ServiceMAL {
			t.Errorf("expected update targeting myanimelist, got %+v", decision)
		}
	})

	t.Run("One Way Mode Never Creates On The Source", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusPlanned, 0, nil, t1))
		b := snapshot(models.ServiceMAL)

		// mal-to-anilist: AniList is the writable target. The title only
		// exists on AniList, so nothing may be written anywhere.
		decision := single(t, Resolve(a, b, ModeMALToAniList, true))
		if decision.Kind != models.DecisionNoOp {
			t.Errorf("expected noop, got %s (%s)", decision.Kind, decision.Reason)
		}
	})

	t.Run("One Way Mode Pushes Missing Titles To The Target", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, entry("1", models.StatusPlanned, 0, nil, t1))
		b := snapshot(models.ServiceMAL)

		decision := single(t, Resolve(a, b, ModeAniListToMAL, true))
		if decision.Kind != models.DecisionUpdate || decision.Target != models.ServiceMAL {
			t.Errorf("expected update targeting myanimelist, got %+v", decision)
		}
	})

	t.Run("One Way Source Is Authoritative Regardless Of Timestamps", func(t *testing.T) {
		// The MAL entry is newer, but anilist-to-mal still pushes AniList's
		// state because one-way modes ignore timestamps.
		a := snapshot(models.ServiceAniList, entry("1", models.StatusWatching, 4, nil, t1))
		b := snapshot(models.ServiceMAL, entry("1", models.StatusCompleted, 12, nil, t2))

		decision := single(t, Resolve(a, b, ModeAniListToMAL, true))
		if decision.Kind != models.DecisionUpdate || decision.Target != models.ServiceMAL {
			t.Fatalf("expected update targeting myanimelist, got %+v", decision)
		}
		if decision.Entry.Progress != 4 {
			t.Errorf("expected the source's progress 4, got %d", decision.Entry.Progress)
		}
	})

	t.Run("Uncorrelated Entries Surface As Unresolvable", func(t *testing.T) {
		a := snapshot(models.ServiceAniList, models.ListEntry{Title: "No MAL ID", UpdatedAt: t1})
		b := snapshot(models.ServiceMAL)

		decision := single(t, Resolve(a, b, ModeBidirectional, true))
		if decision.Kind != models.DecisionUnresolvable {
			t.Errorf("expected unresolvable, got %s", decision.Kind)
		}
	})

	t.Run("Decisions Are Emitted In Sorted Key Order", func(t *testing.T) {
		a := snapshot(models.ServiceAniList,
			entry("30", models.StatusWatching, 1, nil, t2),
			entry("10", models.StatusWatching, 1, nil, t2),
		)
		b := snapshot(models.ServiceMAL, entry("20", models.StatusWatching, 1, nil, t2))

		decisions := Resolve(a, b, ModeBidirectional, true)
		if len(decisions) != 3 {
			t.Fatalf("expected 3 decisions, got %d", len(decisions))
		}
		for i, want := range []string{"10", "20", "30"} {
			if decisions[i].Key != want {
				t.Errorf("position %d: expected key %s, got %s", i, want, decisions[i].Key)
			}
		}
	})

	t.Run("Deterministic Across Invocations", func(t *testing.T) {
		a := snapshot(models.ServiceAniList,
			entry("5", models.StatusWatching, 2, scorePtr(60), t1),
			entry("9", models.StatusCompleted, 24, scorePtr(90), t2),
		)
		b := snapshot(models.ServiceMAL,
			entry("5", models.StatusWatching, 3, scorePtr(60), t2),
			entry("7", models.StatusDropped, 1, nil, t1),
		)

		first := Resolve(a, b, ModeBidirectional, true)
		for i := 0; i < 5; i++ {
			again := Resolve(a, b, ModeBidirectional, true)
			if len(again) != len(first) {
				t.Fatalf("length varied between runs: %d != %d", len(again), len(first))
			}
			for j := range first {
				if first[j].Key != again[j].Key || first[j].Kind != again[j].Kind || first[j].Target != again[j].Target {
					t.Fatalf("decision %d varied between runs: %+v != %+v", j, first[j], again[j])
				}
			}
		}
	})
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"bidirectional", "anilist-to-mal", "mal-to-anilist"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("expected %q to parse, got %v", valid, err)
		}
	}

	if _, err := ParseMode("upstream"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}
