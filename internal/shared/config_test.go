package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	t.Run("OAuth Listener", func(t *testing.T) {
		if config.OAuth.Port != 18080 {
			t.Errorf("expected callback port 18080, got %d", config.OAuth.Port)
		}
		if config.OAuth.RedirectURI != "http://localhost:18080/callback" {
			t.Errorf("unexpected redirect URI %q", config.OAuth.RedirectURI)
		}
	})

	t.Run("Sync Defaults", func(t *testing.T) {
		if config.Sync.Mode != "bidirectional" {
			t.Errorf("expected bidirectional default, got %q", config.Sync.Mode)
		}
		if config.Sync.IntervalMinutes != 360 {
			t.Errorf("expected 360 minute interval, got %d", config.Sync.IntervalMinutes)
		}
		if config.Sync.DryRun {
			t.Error("dry run should default off")
		}
		if !config.Sync.ScoreSync {
			t.Error("score sync should default on")
		}
	})

	t.Run("Service Endpoints", func(t *testing.T) {
		if !strings.Contains(config.AniList.TokenURL, "anilist.co") {
			t.Errorf("unexpected anilist token URL %q", config.AniList.TokenURL)
		}
		if !strings.Contains(config.MAL.TokenURL, "myanimelist.net") {
			t.Errorf("unexpected myanimelist token URL %q", config.MAL.TokenURL)
		}
	})

	t.Run("Storage Paths", func(t *testing.T) {
		if config.Database.Path == "" {
			t.Error("database path should have a default")
		}
		if config.Tokens.Path == "" {
			t.Error("token file path should have a default")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("Placeholders Are Flagged", func(t *testing.T) {
		config := DefaultConfig()
		valid, invalid := config.Validate()
		if valid {
			t.Error("placeholder credentials should not validate")
		}
		if len(invalid) != 4 {
			t.Errorf("expected all four credential fields flagged, got %v", invalid)
		}
	})

	t.Run("Real Credentials Pass", func(t *testing.T) {
		config := DefaultConfig()
		config.AniList.ClientID = "12345"
		config.AniList.ClientSecret = "anilist-secret"
		config.MAL.ClientID = "abcdef"
		config.MAL.ClientSecret = "mal-secret"

		valid, invalid := config.Validate()
		if !valid {
			t.Errorf("expected valid config, got invalid fields %v", invalid)
		}
	})

	t.Run("Partial Credentials Name The Offender", func(t *testing.T) {
		config := DefaultConfig()
		config.AniList.ClientID = "12345"
		config.AniList.ClientSecret = "anilist-secret"
		config.MAL.ClientID = "abcdef"

		valid, invalid := config.Validate()
		if valid {
			t.Error("missing secret should not validate")
		}
		if len(invalid) != 1 || invalid[0] != "myanimelist.client_secret" {
			t.Errorf("expected myanimelist.client_secret flagged, got %v", invalid)
		}
	})
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	config := DefaultConfig()
	config.AniList.ClientID = "12345"
	config.Sync.Mode = "mal-to-anilist"
	config.Sync.IntervalMinutes = 90

	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.AniList.ClientID != "12345" {
		t.Errorf("client id lost in round trip, got %q", loaded.AniList.ClientID)
	}
	if loaded.Sync.Mode != "mal-to-anilist" {
		t.Errorf("sync mode lost in round trip, got %q", loaded.Sync.Mode)
	}
	if loaded.Sync.IntervalMinutes != 90 {
		t.Errorf("interval lost in round trip, got %d", loaded.Sync.IntervalMinutes)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("Malformed TOML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("not [valid toml"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestCreateConfigFile(t *testing.T) {
	t.Run("Writes The Example Config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("created file should parse: %v", err)
		}
		if valid, _ := config.Validate(); valid {
			t.Error("fresh config should carry placeholder credentials")
		}
	})

	t.Run("Refuses To Overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := CreateConfigFile(path); err != nil {
			t.Fatal(err)
		}

		err := CreateConfigFile(path)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for an existing file, got %v", err)
		}
	})
}
