package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Placeholder values that indicate unconfigured credentials.
var placeholderValues = map[string]struct{}{
	"your_anilist_client_id":     {},
	"your_anilist_client_secret": {},
	"your_mal_client_id":         {},
	"your_mal_client_secret":     {},
	"":                           {},
}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	OAuth    OAuthConfig    `toml:"oauth"`
	AniList  ServiceConfig  `toml:"anilist"`
	MAL      ServiceConfig  `toml:"myanimelist"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Tokens   TokensConfig   `toml:"tokens"`
}

// OAuthConfig contains the local callback listener settings shared by both services.
type OAuthConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	RedirectURI string `toml:"redirect_uri"`
}

// ServiceConfig contains per-service OAuth client credentials and endpoints.
type ServiceConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
}

// SyncConfig contains synchronization behavior settings.
type SyncConfig struct {
	Mode            string `toml:"mode"`
	IntervalMinutes int    `toml:"interval_minutes"`
	DryRun          bool   `toml:"dry_run"`
	ScoreSync       bool   `toml:"score_sync"`
}

// ServerConfig contains monitoring web UI settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig contains SQLite mapping cache settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// TokensConfig locates the persisted token file.
type TokensConfig struct {
	Path string `toml:"path"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// SaveConfig writes the configuration back to disk as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidInput, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports whether both services have real (non-placeholder) credentials.
//
// Returns the list of offending fields so callers can print actionable errors.
func (c *Config) Validate() (bool, []string) {
	var invalid []string

	check := func(name, value string) {
		if _, bad := placeholderValues[value]; bad {
			invalid = append(invalid, name)
		}
	}

	check("anilist.client_id", c.AniList.ClientID)
	check("anilist.client_secret", c.AniList.ClientSecret)
	check("myanimelist.client_id", c.MAL.ClientID)
	check("myanimelist.client_secret", c.MAL.ClientSecret)

	return len(invalid) == 0, invalid
}
