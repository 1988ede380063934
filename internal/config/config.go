package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StorageConfig selects the event store backend.
type StorageConfig struct {
	// Driver is "memory" (default) or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the database connection string for the postgres driver.
	DSN string `yaml:"dsn" json:"dsn"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig controls the process-wide logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used when a request does not name one.
	Timezone string `yaml:"timezone" json:"timezone"`

	// SecondaryTimezone, if set, adds a second label column to grid views.
	SecondaryTimezone string `yaml:"secondary_timezone" json:"secondary_timezone"`

	// BaseURL is prefixed to share links in API responses and ICS exports.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// TTLDays is how long an event lives after creation.
	TTLDays int `yaml:"ttl_days" json:"ttl_days"`

	// MaxGuestsSoftLimit logs a warning once an event has more guests.
	MaxGuestsSoftLimit int `yaml:"max_guests_soft_limit" json:"max_guests_soft_limit"`

	// PurgeCron is a cron spec for deleting expired events.
	PurgeCron string `yaml:"purge" json:"purge"`

	Storage StorageConfig `yaml:"storage" json:"storage"`
	Log     LogConfig     `yaml:"log" json:"log"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:             "127.0.0.1:8080",
		Timezone:           "Asia/Tokyo",
		BaseURL:            "http://localhost:8080",
		TTLDays:            90,
		MaxGuestsSoftLimit: 20,
		PurgeCron:          "0 * * * *",
		Storage:            StorageConfig{Driver: "memory"},
		Log:                LogConfig{Level: "info", Format: "text"},
		CORSOrigins:        []string{},
		BasicAuth:          nil,
	}
}

// Normalize fills in missing/zero values so partially-filled files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.TTLDays <= 0 {
		c.TTLDays = def.TTLDays
	}
	if c.MaxGuestsSoftLimit <= 0 {
		c.MaxGuestsSoftLimit = def.MaxGuestsSoftLimit
	}
	if c.PurgeCron == "" {
		c.PurgeCron = def.PurgeCron
	}
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		c.Storage.Driver = "memory"
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format != "json" {
		c.Log.Format = "text"
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
}

// Load loads configuration from the given YAML path and then applies
// environment overrides (see ApplyEnv).
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	return &cfg, nil
}

// ApplyEnv loads a .env file from the working directory when present and
// lets MEETGRID_* variables override file values. Production deployments
// (MEETGRID_ENV=production) skip the .env file and rely on the real
// environment.
func (c *Config) ApplyEnv() {
	if os.Getenv("MEETGRID_ENV") != "production" {
		_ = godotenv.Load()
	}

	if v := os.Getenv("MEETGRID_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MEETGRID_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("MEETGRID_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("MEETGRID_DATABASE_URL"); v != "" {
		c.Storage.Driver = "postgres"
		c.Storage.DSN = v
	}
	if v := os.Getenv("MEETGRID_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if os.Getenv("MEETGRID_ENV") == "production" {
		c.Log.Format = "json"
	}
	c.Normalize()
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".meetgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
