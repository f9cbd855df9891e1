package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// EntryError records one per-entry write failure within a cycle.
type EntryError struct {
	Key     string             `json:"key"`
	Title   string             `json:"title"`
	Target  models.ServiceName `json:"target"`
	Message string             `json:"message"`
}

// Report summarizes one completed sync cycle for the CLI, logs, and the
// monitoring surface.
type Report struct {
	ID         string         `json:"id"`
	Mode       SyncMode       `json:"mode"`
	Outcome    models.Outcome `json:"outcome"`
	DryRun     bool           `json:"dry_run"`
	NoOps      int            `json:"no_ops"`
	Updated    int            `json:"updated"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Errors     []EntryError   `json:"errors,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func newReport(mode SyncMode, dryRun bool) *Report {
	return &Report{
		ID:        shared.GenerateID(),
		Mode:      mode,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

// Duration returns the wall-clock length of the cycle.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary renders a one-line human-readable digest.
func (r *Report) Summary() string {
	label := ""
	if r.DryRun {
		label = " (dry run)"
	}
	return fmt.Sprintf("%s%s: %d updated, %d in sync, %d failed, %d skipped in %s",
		r.Outcome, label, r.Updated, r.NoOps, r.Failed, r.Skipped, r.Duration().Round(time.Millisecond))
}

// finish stamps the end time and derives the outcome from the counters.
func (r *Report) finish() *Report {
	r.FinishedAt = time.Now().UTC()
	if r.Outcome == "" {
		if r.Failed > 0 {
			r.Outcome = models.OutcomePartialFailure
		} else {
			r.Outcome = models.OutcomeSuccess
		}
	}
	return r
}
