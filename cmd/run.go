package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/desertthunder/anisync/internal/auth"
	"github.com/desertthunder/anisync/internal/formatter"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
	"github.com/desertthunder/anisync/internal/web"
	"github.com/urfave/cli/v3"
)

// Run executes sync cycles: a single cycle with --once, otherwise a
// scheduled loop with the monitoring dashboard alongside.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	modeRaw := cmd.String("mode")
	if modeRaw == "" {
		modeRaw = r.config.Sync.Mode
	}
	mode, err := tasks.ParseMode(modeRaw)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run") || r.config.Sync.DryRun
	interval := time.Duration(r.config.Sync.IntervalMinutes) * time.Minute
	if cmd.Int("interval") > 0 {
		interval = time.Duration(cmd.Int("interval")) * time.Minute
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.buildEngine(db, mode, dryRun)

	if cmd.Bool("once") {
		if err := r.requireValidConfig(); err != nil {
			return err
		}
		return r.runOnce(ctx, engine, cmd.String("report"))
	}

	return r.runScheduled(ctx, cmd, engine, interval)
}

// runOnce performs a single cycle and propagates a failing outcome as the
// exit status. A non-empty reportPath exports the cycle report there.
func (r *Runner) runOnce(ctx context.Context, engine *tasks.Engine, reportPath string) error {
	report, err := engine.RunCycle(ctx, nil)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", report.Summary())
	for _, entryErr := range report.Errors {
		r.writePlain("  ✗ %s (%s): %s\n", entryErr.Title, entryErr.Target, entryErr.Message)
	}

	if reportPath != "" {
		if err := saveReport(reportPath, report); err != nil {
			return err
		}
		r.writePlain("report written to %s\n", reportPath)
	}

	if report.Outcome != models.OutcomeSuccess {
		return fmt.Errorf("sync finished with outcome %s", report.Outcome)
	}
	return nil
}

// saveReport exports a cycle report, choosing the format by extension.
func saveReport(path string, report *tasks.Report) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".md", ".markdown":
		data, err = formatter.ReportToMarkdown(report)
	default:
		data, err = formatter.ReportToText(report)
	}
	if err != nil {
		return err
	}
	return formatter.WriteFile(path, data)
}

// runScheduled runs the loop until interrupted. Cycle failures never stop
// the loop; an invalid configuration pauses it until the file is fixed.
func (r *Runner) runScheduled(ctx context.Context, cmd *cli.Command, engine *tasks.Engine, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if valid, invalid := r.config.Validate(); !valid {
		engine.State().SetConfigValid(false)
		r.logger.Warn("credentials not configured, sync paused", "fields", invalid)
	}

	var app *web.App
	if !cmd.Bool("no-web") {
		port := r.config.Server.Port
		if cmd.Int("port") > 0 {
			port = cmd.Int("port")
		}
		addr := fmt.Sprintf("%s:%d", r.config.Server.Host, port)

		app = web.NewApp(web.AppOpts{
			Engine:     engine,
			Config:     r.config,
			ConfigPath: r.configPath,
			Tokens:     auth.NewStore(r.config.Tokens.Path),
			Logger:     r.logger,
		})
		go func() {
			if err := app.Serve(ctx, addr); err != nil {
				r.logger.Error("dashboard stopped", "error", err)
			}
		}()
	}

	go r.watchConfig(ctx, engine, app)

	r.logger.Info("starting scheduled sync", "mode", engine.Mode(), "interval", interval)
	if err := engine.RunLoop(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	r.logger.Info("shutting down")
	return nil
}

// watchConfig revalidates the configuration whenever the file changes,
// flips the engine's pause flag accordingly and pushes the reloaded sync
// settings into the running engine and dashboard.
func (r *Runner) watchConfig(ctx context.Context, engine *tasks.Engine, app *web.App) {
	err := shared.WatchConfig(ctx, r.configPath, r.logger, func() {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			r.logger.Warn("config reload failed", "error", err)
			engine.State().SetConfigValid(false)
			return
		}

		valid, invalid := config.Validate()
		engine.State().SetConfigValid(valid)
		if !valid {
			r.logger.Warn("reloaded config is invalid", "fields", invalid)
			return
		}

		mode, err := tasks.ParseMode(config.Sync.Mode)
		if err != nil {
			r.logger.Warn("reloaded config has an unknown sync mode, keeping current settings", "error", err)
			return
		}

		engine.Reconfigure(tasks.Settings{
			Mode:      mode,
			DryRun:    config.Sync.DryRun,
			ScoreSync: config.Sync.ScoreSync,
			Interval:  time.Duration(config.Sync.IntervalMinutes) * time.Minute,
		})
		if app != nil {
			app.SetConfig(config)
		}
		r.logger.Info("configuration reloaded")
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("config watcher stopped", "error", err)
	}
}
