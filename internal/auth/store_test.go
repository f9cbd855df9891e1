package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

func TestStore(t *testing.T) {
	t.Run("Load Missing File Yields Empty Map", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "tokens.json"))

		records, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected empty map, got %d records", len(records))
		}
	})

	t.Run("Save And Load Round Trip", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "tokens.json"))
		expiry := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

		records := map[models.ServiceName]models.TokenRecord{
			models.ServiceAniList: {AccessToken: "al-token", ExpiresAt: expiry},
			models.ServiceMAL:     {AccessToken: "mal-token", RefreshToken: "mal-refresh", ExpiresAt: expiry},
		}
		if err := store.Save(records); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded[models.ServiceMAL].RefreshToken != "mal-refresh" {
			t.Errorf("refresh token lost in round trip: %+v", loaded[models.ServiceMAL])
		}
		if !loaded[models.ServiceAniList].ExpiresAt.Equal(expiry) {
			t.Errorf("expiry lost in round trip: %v", loaded[models.ServiceAniList].ExpiresAt)
		}
	})

	t.Run("Token File Has Restrictive Permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.json")
		store := NewStore(path)

		if err := store.Put(models.ServiceAniList, models.TokenRecord{AccessToken: "secret"}); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected 0600 permissions, got %o", perm)
		}
	})

	t.Run("Save Leaves No Temp Files Behind", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(filepath.Join(dir, "tokens.json"))

		if err := store.Save(map[models.ServiceName]models.TokenRecord{}); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("readdir failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != "tokens.json" {
			t.Errorf("expected only tokens.json in %s, got %v", dir, entries)
		}
	})

	t.Run("Put Preserves Other Services", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "tokens.json"))

		if err := store.Put(models.ServiceAniList, models.TokenRecord{AccessToken: "a"}); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if err := store.Put(models.ServiceMAL, models.TokenRecord{AccessToken: "m"}); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		records, err := store.Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("expected both services persisted, got %v", records)
		}
	})

	t.Run("Corrupt File Surfaces As Persistence Error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		_, err := NewStore(path).Load()
		if !errors.Is(err, shared.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})

	t.Run("IsExpired Applies The Safety Margin", func(t *testing.T) {
		store := NewStore("unused.json")
		now := time.Now()

		inMargin := models.TokenRecord{AccessToken: "a", ExpiresAt: now.Add(ExpiryMargin / 2)}
		if !store.IsExpired(inMargin, now) {
			t.Error("token inside the margin should be treated as expired")
		}

		fresh := models.TokenRecord{AccessToken: "a", ExpiresAt: now.Add(2 * ExpiryMargin)}
		if store.IsExpired(fresh, now) {
			t.Error("token outside the margin should not be expired")
		}
	})
}
