package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MappingRepository persists resolved AniList <-> MyAnimeList ID
// correlations so title searches only happen once per series.
//
// Implements services.MappingResolver.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new MappingRepository with the given database connection
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Resolve looks up the AniList media ID for a MAL ID. The second return
// value reports whether a mapping exists.
func (r *MappingRepository) Resolve(ctx context.Context, malID int) (int, bool, error) {
	query := `SELECT anilist_id FROM id_mappings WHERE mal_id = ?`

	var anilistID int
	err := r.db.QueryRowContext(ctx, query, malID).Scan(&anilistID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query mapping: %w", err)
	}
	return anilistID, true, nil
}

// Remember stores a correlation, replacing any previous row for the MAL ID.
func (r *MappingRepository) Remember(ctx context.Context, anilistID, malID int, title string) error {
	query := `
		INSERT INTO id_mappings (mal_id, anilist_id, title, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mal_id) DO UPDATE SET anilist_id = excluded.anilist_id, title = excluded.title
	`

	if _, err := r.db.ExecContext(ctx, query, malID, anilistID, title, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert mapping: %w", err)
	}
	return nil
}

// Count returns the number of cached correlations.
func (r *MappingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM id_mappings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return count, nil
}

// Clear removes every cached correlation.
func (r *MappingRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM id_mappings`); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	return nil
}
