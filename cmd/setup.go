package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/anisync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the configuration file from the embedded template, opens
// the mapping cache database and applies migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
		if config, err := shared.LoadConfig(configPath); err == nil {
			r.config = config
			r.configPath = configPath
		}
	} else {
		if err := shared.CreateConfigFile(configPath); err != nil && !errors.Is(err, shared.ErrInvalidInput) {
			return err
		}
		r.logger.Info("config file created", "path", configPath)
		r.configPath = configPath
	}

	r.logger.Info("initializing mapping cache", "path", r.config.Database.Path)
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.writePlain("✓ Config: %s\n", configPath)
	r.writePlain("✓ Database: %s\n", r.config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Register API clients at https://anilist.co/settings/developer and https://myanimelist.net/apiconfig\n")
	r.writePlain("2. Fill in the client credentials in %s\n", configPath)
	r.writePlain("3. Run 'anisync auth login anilist' and 'anisync auth login mal'\n")
	r.writePlain("4. Run 'anisync run --once --dry-run' to preview your first sync\n")

	return nil
}
