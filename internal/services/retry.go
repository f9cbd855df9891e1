package services

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/anisync/internal/shared"
	"golang.org/x/time/rate"
)

// Backoff defaults. Both services impose per-account limits, so a capped
// doubling series keeps a flaky cycle from hammering them.
const (
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffCap  = 8 * time.Second
	defaultMaxAttempts = 4
)

// Pacer enforces minimum spacing between requests to one service and retries
// transient failures with bounded exponential backoff.
//
// Authorization failures are never retried here: retrying with the same bad
// credential cannot succeed, so they pass straight through to the sync
// orchestrator's re-authentication path.
type Pacer struct {
	limiter     *rate.Limiter
	base        time.Duration
	cap         time.Duration
	maxAttempts int
}

// NewPacer creates a pacer with the given minimum interval between requests.
func NewPacer(minInterval time.Duration) *Pacer {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Pacer{
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		base:        defaultBackoffBase,
		cap:         defaultBackoffCap,
		maxAttempts: defaultMaxAttempts,
	}
}

// Do runs op under the pacing rule, retrying only transient failures.
func (p *Pacer) Do(ctx context.Context, op func() error) error {
	delay := p.base

	for attempt := 1; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		err := op()
		if err == nil || !errors.Is(err, shared.ErrTransient) || attempt >= p.maxAttempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > p.cap {
			delay = p.cap
		}
	}
}
