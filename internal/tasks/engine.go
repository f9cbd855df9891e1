package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
)

// ErrCycleInProgress is returned when a cycle is requested while another
// one is still running. At most one cycle executes at a time.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// TokenProvider supplies usable credentials per service. Implemented by
// auth.Orchestrator; abstracted so the engine can be tested without a
// browser flow.
type TokenProvider interface {
	// Token returns a valid token, refreshing or authenticating as needed.
	Token(ctx context.Context, service models.ServiceName) (models.TokenRecord, error)

	// Reauthenticate performs a full authorization after a live call was
	// rejected with an authorization failure.
	Reauthenticate(ctx context.Context, service models.ServiceName) (models.TokenRecord, error)
}

// Settings is the runtime-adjustable slice of the engine configuration.
// A configuration reload swaps in a new value through [Engine.Reconfigure];
// each cycle and each sleep reads the current value.
type Settings struct {
	Mode      SyncMode
	DryRun    bool
	ScoreSync bool
	Interval  time.Duration
}

// Engine drives sync cycles between the two services. It owns the cycle
// state machine and the process-wide [RunState].
type Engine struct {
	anilist services.Service
	mal     services.Service
	tokens  TokenProvider
	state   *RunState
	logger  *log.Logger

	mu       sync.RWMutex
	settings Settings

	running sync.Mutex
	trigger chan struct{}
}

// EngineOpts contains construction options for an [Engine].
type EngineOpts struct {
	AniList   services.Service
	MAL       services.Service
	Tokens    TokenProvider
	Mode      SyncMode
	DryRun    bool
	ScoreSync bool
	Logger    *log.Logger
}

// NewEngine creates a sync engine.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Mode == "" {
		opts.Mode = ModeBidirectional
	}

	return &Engine{
		anilist: opts.AniList,
		mal:     opts.MAL,
		tokens:  opts.Tokens,
		state:   NewRunState(),
		logger:  opts.Logger,
		settings: Settings{
			Mode:      opts.Mode,
			DryRun:    opts.DryRun,
			ScoreSync: opts.ScoreSync,
		},
		trigger: make(chan struct{}, 1),
	}
}

// State exposes the run state for the monitoring surface.
func (e *Engine) State() *RunState {
	return e.state
}

// Settings returns the currently effective settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Reconfigure replaces the engine's settings. Takes effect on the next
// cycle and the next sleep; a cycle in flight keeps the settings it
// started with.
func (e *Engine) Reconfigure(settings Settings) {
	if settings.Mode == "" {
		settings.Mode = ModeBidirectional
	}
	e.mu.Lock()
	e.settings = settings
	e.mu.Unlock()
	e.logger.Info("engine reconfigured",
		"mode", settings.Mode, "dry_run", settings.DryRun,
		"score_sync", settings.ScoreSync, "interval", settings.Interval)
}

// Mode returns the configured sync direction.
func (e *Engine) Mode() SyncMode {
	return e.Settings().Mode
}

// Trigger requests an immediate cycle from the scheduled loop. Requests
// arriving while a cycle runs coalesce into at most one pending cycle.
// Reports whether the request was accepted rather than already pending.
func (e *Engine) Trigger() bool {
	select {
	case e.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// service returns the client for a service name.
func (e *Engine) service(name models.ServiceName) services.Service {
	if name == models.ServiceMAL {
		return e.mal
	}
	return e.anilist
}

// RunCycle executes one fetch, resolve, apply cycle. Returns
// [ErrCycleInProgress] without side effects when a cycle is already
// running. The returned report is non-nil whenever a cycle actually ran,
// including aborted ones.
func (e *Engine) RunCycle(ctx context.Context, progress chan<- ProgressUpdate) (*Report, error) {
	if !e.running.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer e.running.Unlock()
	defer e.state.setPhase(Idle)

	settings := e.Settings()
	report := newReport(settings.Mode, settings.DryRun)

	abort := func(err error) (*Report, error) {
		report.Outcome = models.OutcomeAborted
		e.state.recordReport(report.finish())
		e.logger.Error("sync cycle aborted", "error", err)
		return report, err
	}

	e.state.setPhase(FetchingTokens)
	e.sendProgress(progress, ProgressUpdate{Phase: FetchingTokens, Message: "checking credentials"})
	for _, svc := range []services.Service{e.anilist, e.mal} {
		token, err := e.tokens.Token(ctx, svc.Name())
		if err != nil {
			return abort(fmt.Errorf("no usable token for %s: %w", svc.Name(), err))
		}
		svc.Authorize(token)
	}

	e.state.setPhase(FetchingSnapshots)
	e.sendProgress(progress, ProgressUpdate{Phase: FetchingSnapshots, Message: "fetching list snapshots"})
	snapshotA, err := e.fetchSnapshot(ctx, e.anilist)
	if err != nil {
		return abort(fmt.Errorf("failed to fetch %s snapshot: %w", e.anilist.Name(), err))
	}
	snapshotB, err := e.fetchSnapshot(ctx, e.mal)
	if err != nil {
		return abort(fmt.Errorf("failed to fetch %s snapshot: %w", e.mal.Name(), err))
	}

	e.state.setPhase(Resolving)
	e.sendProgress(progress, ProgressUpdate{Phase: Resolving, Message: "resolving differences"})
	decisions := Resolve(snapshotA, snapshotB, settings.Mode, settings.ScoreSync)

	e.state.setPhase(ApplyingWrites)
	total := len(decisions)
	for i, decision := range decisions {
		e.sendProgress(progress, ProgressUpdate{
			Phase:   ApplyingWrites,
			Step:    i + 1,
			Total:   total,
			Message: decision.Reason,
		})

		switch decision.Kind {
		case models.DecisionNoOp:
			report.NoOps++
		case models.DecisionUnresolvable:
			report.Skipped++
			e.logger.Warn("skipping unresolvable entry", "reason", decision.Reason)
		case models.DecisionUpdate:
			// A shutdown mid-cycle finishes the in-flight write and
			// leaves the rest for the next run.
			if ctx.Err() != nil {
				report.Skipped += total - i
				report.Outcome = models.OutcomeAborted
				e.state.recordReport(report.finish())
				return report, ctx.Err()
			}
			e.applyDecision(ctx, report, decision, settings.DryRun)
		}
	}

	e.state.setPhase(Reporting)
	e.state.recordReport(report.finish())
	e.logger.Info("sync cycle finished", "outcome", report.Outcome, "summary", report.Summary())
	return report, nil
}

// fetchSnapshot retrieves one service's list, reauthenticating once if the
// call is rejected with an authorization failure.
func (e *Engine) fetchSnapshot(ctx context.Context, svc services.Service) (*models.ListSnapshot, error) {
	snapshot, err := svc.FetchSnapshot(ctx)
	if err == nil || !errors.Is(err, shared.ErrAuthFailed) {
		return snapshot, err
	}

	e.logger.Warn("snapshot fetch rejected, reauthenticating", "service", svc.Name())
	token, authErr := e.tokens.Reauthenticate(ctx, svc.Name())
	if authErr != nil {
		return nil, fmt.Errorf("reauthentication failed: %w", authErr)
	}
	svc.Authorize(token)
	return svc.FetchSnapshot(ctx)
}

// applyDecision writes one update, retrying exactly once after a
// reauthentication if the write was rejected as unauthorized. Failures are
// recorded per entry and never abort the remaining writes.
//
// The write itself runs on a non-cancelable context: shutdown is decided
// at the pre-write check, and an in-flight write is allowed to finish
// rather than be torn down mid-request.
func (e *Engine) applyDecision(ctx context.Context, report *Report, decision models.SyncDecision, dryRun bool) {
	if dryRun {
		e.logger.Info("dry run, skipping write",
			"target", decision.Target, "title", decision.Entry.Title, "reason", decision.Reason)
		report.Updated++
		return
	}

	writeCtx := context.WithoutCancel(ctx)
	svc := e.service(decision.Target)
	err := svc.ApplyUpdate(writeCtx, decision.Entry)
	if errors.Is(err, shared.ErrAuthFailed) {
		e.logger.Warn("write rejected, reauthenticating", "service", decision.Target)
		token, authErr := e.tokens.Reauthenticate(ctx, decision.Target)
		if authErr != nil {
			err = fmt.Errorf("reauthentication failed: %w", authErr)
		} else {
			svc.Authorize(token)
			err = svc.ApplyUpdate(writeCtx, decision.Entry)
		}
	}

	if err != nil {
		report.Failed++
		report.Errors = append(report.Errors, EntryError{
			Key:     decision.Key,
			Title:   decision.Entry.Title,
			Target:  decision.Target,
			Message: err.Error(),
		})
		e.logger.Error("failed to apply update",
			"target", decision.Target, "title", decision.Entry.Title, "error", err)
		return
	}

	report.Updated++
	e.logger.Debug("applied update", "target", decision.Target, "title", decision.Entry.Title)
}

// RunLoop executes cycles until the context is canceled. Manual triggers
// interrupt the sleep phase; cycle failures are logged and never terminate
// the loop. interval is the fallback pace; a reconfigured
// [Settings.Interval] takes precedence from the next sleep on.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) error {
	for {
		if !e.state.ConfigValid() {
			e.logger.Warn("configuration invalid, sync paused until it is fixed")
		} else if _, err := e.RunCycle(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("scheduled cycle failed", "error", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		every := e.Settings().Interval
		if every <= 0 {
			every = interval
		}

		e.state.setNextSync(time.Now().UTC().Add(every))
		e.state.setPhase(Sleeping)
		e.logger.Info("sleeping until next cycle", "interval", every)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.trigger:
			e.logger.Info("manual sync triggered")
		case <-time.After(every):
		}
	}
}
