package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/anisync/internal/auth"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the full browser authorization flow for one service.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	service, err := serviceByName(cmd.StringArg("service"))
	if err != nil {
		return err
	}
	if err := r.requireValidConfig(); err != nil {
		return err
	}

	orchestrator := r.buildOrchestrator()
	record, err := orchestrator.Authenticate(ctx, service)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	r.writePlain("✓ %s authorized\n", service)
	if !record.ExpiresAt.IsZero() {
		r.writePlain("Token expires: %s\n", record.ExpiresAt.Local().Format(time.RFC822))
	}
	if !record.Refreshable() && orchestrator.CanRefresh(service) {
		r.logger.Warn("no refresh token issued, expiry will require a new login")
	}

	return nil
}

// AuthRefresh exchanges the refresh token for a new access token. For
// AniList, which issues no refresh token, this reports that a full login
// is the only way to renew.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	service, err := serviceByName(cmd.StringArg("service"))
	if err != nil {
		return err
	}

	orchestrator := r.buildOrchestrator()
	if !orchestrator.CanRefresh(service) {
		r.writePlain("✗ %s does not support token refresh, run 'anisync auth login %s' instead\n",
			service, cmd.StringArg("service"))
		return nil
	}

	record, err := orchestrator.Refresh(ctx, service)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	r.writePlain("✓ %s token refreshed, expires %s\n", service, record.ExpiresAt.Local().Format(time.RFC822))
	return nil
}

// tokenStatus is the per-service row reported by AuthStatus.
type tokenStatus struct {
	Service     models.ServiceName `json:"service"`
	Present     bool               `json:"present"`
	Expired     bool               `json:"expired"`
	Refreshable bool               `json:"refreshable"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
}

// AuthStatus reports the stored token state for both services.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store := auth.NewStore(r.config.Tokens.Path)
	records, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load token store: %w", err)
	}

	now := time.Now()
	var rows []tokenStatus
	for _, service := range []models.ServiceName{models.ServiceAniList, models.ServiceMAL} {
		row := tokenStatus{Service: service}
		if record, ok := records[service]; ok {
			row.Present = true
			row.Expired = store.IsExpired(record, now)
			row.Refreshable = record.Refreshable()
			if !record.ExpiresAt.IsZero() {
				expiresAt := record.ExpiresAt
				row.ExpiresAt = &expiresAt
			}
		}
		rows = append(rows, row)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	for _, row := range rows {
		switch {
		case !row.Present:
			r.writePlain("✗ %s: not authorized\n", row.Service)
		case row.Expired && row.Refreshable:
			r.writePlain("! %s: expired, will refresh automatically\n", row.Service)
		case row.Expired:
			r.writePlain("✗ %s: expired, run 'anisync auth login' to renew\n", row.Service)
		default:
			r.writePlain("✓ %s: authorized", row.Service)
			if row.ExpiresAt != nil {
				r.writePlain(" (expires %s)", row.ExpiresAt.Local().Format(time.RFC822))
			}
			r.writePlain("\n")
		}
	}

	return nil
}
