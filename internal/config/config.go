// Package config loads gwlens settings from a TOML file, .env files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/theirongolddev/gwlens/internal/gateway"
)

// Environment overrides. They win over the config file.
const (
	EnvBaseURL  = "GWLENS_BASE_URL"
	EnvUserID   = gateway.EnvUserID
	EnvGateway  = "GWLENS_GATEWAY"
	EnvDays     = "GWLENS_DAYS"
	EnvLogLevel = "GWLENS_LOG_LEVEL"
)

// Config holds all gwlens configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Cache      CacheConfig      `toml:"cache"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultDays    int    `toml:"default_days"`
	DefaultGateway string `toml:"default_gateway,omitempty"`
	LogLevel       string `toml:"log_level"`
}

// GatewayConfig holds backend connection settings.
type GatewayConfig struct {
	BaseURL    string `toml:"base_url"`
	UserID     string `toml:"user_id,omitempty"`
	TimeoutSec int    `toml:"timeout_sec"`
}

// CacheConfig controls the local snapshot cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled"`
	TTLSec  int  `toml:"ttl_sec"`
}

// DaemonConfig controls `gwlens daemon`.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// ValidDays are the ranges the dashboard offers.
var ValidDays = []int{1, 7, 30}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays: 30,
			LogLevel:    "info",
		},
		Gateway: GatewayConfig{
			BaseURL:    gateway.DefaultBaseURL,
			TimeoutSec: 30,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTLSec:  15,
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:8787",
			IntervalSec: 60,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gwlens")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gwlens")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// CachePath returns the XDG-compliant path of the snapshot cache database.
func CachePath() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "gwlens", "snapshots.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "gwlens", "snapshots.db")
}

// EnvPaths lists the .env files consulted, in priority order.
func EnvPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	return append(paths, filepath.Join(ConfigDir(), ".env"))
}

// Load reads the config file, returning defaults if it doesn't exist, then
// applies .env files and environment overrides.
func Load() (Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return cfg, err
	}
	for _, path := range EnvPaths() {
		if _, err := os.Stat(path); err == nil {
			// Existing environment variables are never overwritten.
			_ = godotenv.Load(path)
		}
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile reads one config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv copies environment overrides into cfg.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUserID)); v != "" {
		cfg.Gateway.UserID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGateway)); v != "" {
		cfg.General.DefaultGateway = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.General.LogLevel = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvDays))); err == nil && v > 0 {
		cfg.General.DefaultDays = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Credentials returns the identity source for backend requests: the
// environment and .env files first, then the config file's user_id.
func (c Config) Credentials() gateway.CredentialProvider {
	return gateway.Chain{
		gateway.EnvCredentials{Files: EnvPaths()},
		gateway.StaticCredentials(c.Gateway.UserID),
	}
}

// ValidDay reports whether days is one of ValidDays.
func ValidDay(days int) bool {
	for _, d := range ValidDays {
		if d == days {
			return true
		}
	}
	return false
}
