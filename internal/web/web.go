// Package web serves the monitoring dashboard: a read-only projection of
// the sync engine's run state plus a manual-trigger button.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/server"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
)

const shutdownTimeout = 5 * time.Second

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<title>anisync</title>
<meta http-equiv="refresh" content="15">
<style>
body { font-family: monospace; max-width: 640px; margin: 2rem auto; color: #222; }
h1 { color: #2E51A2; }
table { border-collapse: collapse; width: 100%; }
td { padding: 0.3rem 0.6rem; border-bottom: 1px solid #ddd; }
button { background: #2E51A2; color: white; border: none; padding: 0.5rem 1rem; cursor: pointer; }
</style>
</head>
<body>
<h1>anisync</h1>
<table>
<tr><td>Phase</td><td>{{.Phase}}</td></tr>
<tr><td>Config valid</td><td>{{.ConfigValid}}</td></tr>
<tr><td>Cycles run</td><td>{{.CycleCount}}</td></tr>
{{if not .LastSyncAt.IsZero}}<tr><td>Last sync</td><td>{{.LastSyncAt.Format "2006-01-02 15:04:05 MST"}}</td></tr>{{end}}
{{if not .NextSyncAt.IsZero}}<tr><td>Next sync</td><td>{{.NextSyncAt.Format "2006-01-02 15:04:05 MST"}}</td></tr>{{end}}
{{with .LastReport}}
<tr><td>Last outcome</td><td>{{.Outcome}}</td></tr>
<tr><td>Last summary</td><td>{{.Summary}}</td></tr>
{{end}}
</table>
<form method="post" action="/api/sync"><button type="submit">Sync now</button></form>
</body>
</html>`))

// TokenReader reports which services hold persisted credentials.
// Implemented by auth.Store.
type TokenReader interface {
	Load() (map[models.ServiceName]models.TokenRecord, error)
}

// App is the dashboard HTTP application.
//
// The config is shared with the reload watcher, so every access goes
// through mu.
type App struct {
	engine     *tasks.Engine
	configPath string
	tokens     TokenReader
	logger     *log.Logger
	router     *server.BasicRouter

	mu     sync.RWMutex
	config *shared.Config
}

// AppOpts contains construction options for an [App].
type AppOpts struct {
	Engine     *tasks.Engine
	Config     *shared.Config
	ConfigPath string
	Tokens     TokenReader
	Logger     *log.Logger
}

// NewApp creates the dashboard application and registers its routes.
func NewApp(opts AppOpts) *App {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	app := &App{
		engine:     opts.Engine,
		config:     opts.Config,
		configPath: opts.ConfigPath,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
		router:     server.NewBasicRouter(),
	}

	app.router.Use(server.Logging(app.logger))
	app.router.Handle(http.MethodGet, "/", http.HandlerFunc(app.handleDashboard))
	app.router.Handle(http.MethodGet, "/api/status", http.HandlerFunc(app.handleStatus))
	app.router.Handle(http.MethodPost, "/api/sync", http.HandlerFunc(app.handleTrigger))
	app.router.Handle(http.MethodGet, "/api/config", http.HandlerFunc(app.handleConfigGet))
	app.router.Handle(http.MethodPost, "/api/config", http.HandlerFunc(app.handleConfigPost))
	app.router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(app.handleHealth))
	return app
}

// Router exposes the configured router, mainly for tests.
func (a *App) Router() http.Handler {
	return a.router
}

// SetConfig swaps in a freshly reloaded configuration.
func (a *App) SetConfig(config *shared.Config) {
	a.mu.Lock()
	a.config = config
	a.mu.Unlock()
}

// Serve runs the HTTP server until the context is canceled, then shuts
// down gracefully.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.router}

	errs := make(chan error, 1)
	go func() {
		a.logger.Info("dashboard listening", "addr", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := shared.MarshalJSON(data, true)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, a.engine.State().Snapshot()); err != nil {
		a.logger.Error("failed to render dashboard", "error", err)
	}
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.engine.State().Snapshot())
}

func (a *App) handleTrigger(w http.ResponseWriter, r *http.Request) {
	accepted := a.engine.Trigger()
	a.writeJSON(w, http.StatusAccepted, map[string]any{
		"triggered": accepted,
		"pending":   !accepted,
	})
}

// configView is the externally visible slice of the configuration. Client
// secrets never leave the process.
type configView struct {
	Mode            string `json:"mode"`
	IntervalMinutes int    `json:"interval_minutes"`
	DryRun          bool   `json:"dry_run"`
	ScoreSync       bool   `json:"score_sync"`
}

func (a *App) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	view := configView{
		Mode:            a.config.Sync.Mode,
		IntervalMinutes: a.config.Sync.IntervalMinutes,
		DryRun:          a.config.Sync.DryRun,
		ScoreSync:       a.config.Sync.ScoreSync,
	}
	a.mu.RUnlock()

	a.writeJSON(w, http.StatusOK, view)
}

// handleConfigPost updates the sync section of the configuration file. The
// running engine picks the change up through the config watcher.
func (a *App) handleConfigPost(w http.ResponseWriter, r *http.Request) {
	var update configView
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if _, err := tasks.ParseMode(update.Mode); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if update.IntervalMinutes <= 0 {
		http.Error(w, "interval_minutes must be positive", http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	a.config.Sync.Mode = update.Mode
	a.config.Sync.IntervalMinutes = update.IntervalMinutes
	a.config.Sync.DryRun = update.DryRun
	a.config.Sync.ScoreSync = update.ScoreSync

	var saveErr error
	if a.configPath != "" {
		saveErr = shared.SaveConfig(a.configPath, a.config)
	}
	a.mu.Unlock()

	if saveErr != nil {
		a.logger.Error("failed to persist config", "error", saveErr)
		http.Error(w, "failed to persist config", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, update)
}

// handleHealth reports per-service token presence. Missing credentials for
// either service answer 503 so external monitoring sees the process as
// unable to sync, not merely alive.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	records := map[models.ServiceName]models.TokenRecord{}
	if a.tokens != nil {
		loaded, err := a.tokens.Load()
		if err != nil {
			a.logger.Error("failed to read token store", "error", err)
		} else {
			records = loaded
		}
	}

	services := map[models.ServiceName]bool{}
	healthy := true
	for _, name := range []models.ServiceName{models.ServiceAniList, models.ServiceMAL} {
		present := records[name].AccessToken != ""
		services[name] = present
		healthy = healthy && present
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	a.writeJSON(w, code, map[string]any{"status": status, "services": services})
}
