package main

import (
	"context"

	"github.com/desertthunder/anisync/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheStats reports the size of the ID mapping cache.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	mappings := repositories.NewMappingRepository(db)
	count, err := mappings.Count(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Cached correlations: %d\n", count)
	return nil
}

// CacheClear drops all cached correlations. They are re-learned on the
// next sync cycle's snapshot fetch.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	mappings := repositories.NewMappingRepository(db)
	if err := mappings.Clear(ctx); err != nil {
		return err
	}

	r.logger.Info("mapping cache cleared")
	r.writePlain("✓ Mapping cache cleared\n")
	return nil
}
