package shared

import (
	"testing"
)

func TestRunMigrations(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	t.Run("Creates Schema", func(t *testing.T) {
		if err := RunMigrations(db); err != nil {
			t.Fatalf("migrations failed: %v", err)
		}

		for _, table := range []string{"schema_migrations", "id_mappings"} {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("expected table %s to exist: %v", table, err)
			}
		}
	})

	t.Run("Records Applied Versions", func(t *testing.T) {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to count versions: %v", err)
		}
		if count == 0 {
			t.Error("expected at least one recorded migration")
		}
	})

	t.Run("Second Run Is A No Op", func(t *testing.T) {
		var before int
		db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&before)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("rerun failed: %v", err)
		}

		var after int
		db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&after)
		if before != after {
			t.Errorf("rerun should not apply migrations again: %d -> %d", before, after)
		}
	})
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected embedded migrations")
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Errorf("migrations out of order: %d before %d", migrations[i-1].Version, migrations[i].Version)
		}
	}
}
