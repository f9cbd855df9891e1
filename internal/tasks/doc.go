// Package tasks implements list synchronization between AniList and
// MyAnimeList.
//
// The core abstraction is [Engine], which drives the cycle state machine:
// token checks, snapshot fetches, conflict resolution, and write
// application. [Resolve] is the pure decision function at the center; given
// two normalized snapshots and a mode it produces a deterministic, sorted
// sequence of per-title decisions.
//
// Cycles run one at a time. [Engine.RunCycle] refuses to overlap with a
// running cycle, and [Engine.RunLoop] repeats cycles on an interval,
// coalescing manual triggers from the monitoring surface. Operations emit
// progress updates via channels for non-blocking status reporting to
// CLI/UI layers.
package tasks
