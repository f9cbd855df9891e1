package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/desertthunder/anisync/internal/shared"
)

func newTestRepository(t *testing.T) (*MappingRepository, *sql.DB) {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	return NewMappingRepository(db), db
}

func TestMappingRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolve Miss", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		id, ok, err := repo.Resolve(ctx, 42)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if ok || id != 0 {
			t.Errorf("expected a miss, got id=%d ok=%v", id, ok)
		}
	})

	t.Run("Remember Then Resolve", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		if err := repo.Remember(ctx, 100, 42, "Shingeki no Kyojin"); err != nil {
			t.Fatalf("remember failed: %v", err)
		}

		id, ok, err := repo.Resolve(ctx, 42)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if !ok || id != 100 {
			t.Errorf("expected id 100, got id=%d ok=%v", id, ok)
		}
	})

	t.Run("Remember Upserts", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		if err := repo.Remember(ctx, 100, 42, "Shingeki no Kyojin"); err != nil {
			t.Fatal(err)
		}
		if err := repo.Remember(ctx, 200, 42, "Shingeki no Kyojin"); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		id, ok, _ := repo.Resolve(ctx, 42)
		if !ok || id != 200 {
			t.Errorf("expected replacement id 200, got id=%d ok=%v", id, ok)
		}

		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("upsert should not add rows, got %d", count)
		}
	})

	t.Run("Count And Clear", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		for malID, anilistID := range map[int]int{42: 100, 99: 300, 7: 55} {
			if err := repo.Remember(ctx, anilistID, malID, "title"); err != nil {
				t.Fatal(err)
			}
		}

		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 mappings, got %d", count)
		}

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		count, _ = repo.Count(ctx)
		if count != 0 {
			t.Errorf("expected empty cache, got %d", count)
		}
	})
}
