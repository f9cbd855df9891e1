package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
	"github.com/desertthunder/anisync/internal/ui"
	"github.com/urfave/cli/v3"
)

// dashboardURL picks the base URL of the running process's dashboard.
func (r *Runner) dashboardURL(cmd *cli.Command) string {
	if url := cmd.String("url"); url != "" {
		return url
	}
	host := r.config.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, r.config.Server.Port)
}

// Status queries a running sync process and prints its state. With
// --watch it opens the interactive live monitor instead.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	baseURL := r.dashboardURL(cmd)

	if cmd.Bool("watch") {
		return ui.Run(ctx, baseURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/status", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: is 'anisync run' running at %s?", shared.ErrTimeout, baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var snapshot tasks.StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshot, true)
	}

	r.writePlain("Phase: %s\n", snapshot.Phase)
	r.writePlain("Config valid: %t\n", snapshot.ConfigValid)
	r.writePlain("Cycles: %d\n", snapshot.CycleCount)
	if !snapshot.LastSyncAt.IsZero() {
		r.writePlain("Last sync: %s\n", snapshot.LastSyncAt.Local().Format(time.RFC822))
	}
	if !snapshot.NextSyncAt.IsZero() {
		r.writePlain("Next sync: %s\n", snapshot.NextSyncAt.Local().Format(time.RFC822))
	}
	if report := snapshot.LastReport; report != nil {
		r.writePlain("Last cycle: %s\n", report.Summary())
	}

	return nil
}
