package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/auth"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/repositories"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, runCommand, statusCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig re-reads the configuration file if it exists.
func (r *Runner) reloadConfig() {
	if _, err := os.Stat(r.configPath); err != nil {
		return
	}
	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		r.logger.Warn("failed to reload config", "error", err)
		return
	}
	r.config = config
}

// buildOrchestrator wires the token store and OAuth descriptors.
func (r *Runner) buildOrchestrator() *auth.Orchestrator {
	return auth.NewOrchestrator(auth.OrchestratorOpts{
		Store:       auth.NewStore(r.config.Tokens.Path),
		Descriptors: auth.Descriptors(r.config),
		ListenAddr:  fmt.Sprintf("%s:%d", r.config.OAuth.Host, r.config.OAuth.Port),
		Logger:      r.logger,
	})
}

// openDatabase opens the mapping cache and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// buildServices constructs both API clients sharing the mapping cache.
func (r *Runner) buildServices(db *sql.DB) (anilist, mal services.Service) {
	mappings := repositories.NewMappingRepository(db)

	anilist = services.NewAniListService(services.AniListOpts{
		Username:   r.config.AniList.Username,
		HTTPClient: r.httpClient,
		Mappings:   mappings,
		Logger:     r.logger,
	})
	mal = services.NewMALService(services.MALOpts{
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	return anilist, mal
}

// buildEngine assembles the sync engine for the given mode.
func (r *Runner) buildEngine(db *sql.DB, mode tasks.SyncMode, dryRun bool) *tasks.Engine {
	anilist, mal := r.buildServices(db)

	return tasks.NewEngine(tasks.EngineOpts{
		AniList:   anilist,
		MAL:       mal,
		Tokens:    r.buildOrchestrator(),
		Mode:      mode,
		DryRun:    dryRun,
		ScoreSync: r.config.Sync.ScoreSync,
		Logger:    r.logger,
	})
}

// requireValidConfig fails with actionable output when credentials are
// still placeholders.
func (r *Runner) requireValidConfig() error {
	valid, invalid := r.config.Validate()
	if valid {
		return nil
	}
	for _, field := range invalid {
		r.writePlain("✗ %s is not configured\n", field)
	}
	return fmt.Errorf("%w: edit %s and fill in your API credentials", shared.ErrMissingCredentials, r.configPath)
}

// serviceByName maps a CLI service argument onto a service identity.
func serviceByName(name string) (models.ServiceName, error) {
	switch name {
	case "anilist":
		return models.ServiceAniList, nil
	case "mal", "myanimelist":
		return models.ServiceMAL, nil
	default:
		return "", fmt.Errorf("%w: unknown service %q (use anilist or mal)", shared.ErrInvalidArgument, name)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
