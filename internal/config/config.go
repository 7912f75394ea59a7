// Package config loads the service configuration from TOML, with an
// fsnotify watcher for hot log-level changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/deckforge/internal/rules"
)

// Config represents the service configuration.
type Config struct {
	// HTTP server configuration
	Server ServerConfig `toml:"server"`

	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Cache configuration
	Cache CacheConfig `toml:"cache"`

	// LLM provider configuration
	LLM LLMConfig `toml:"llm"`

	// Deck building loop configuration
	Builder BuilderConfig `toml:"builder"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Host            string   `toml:"host"`             // Bind address
	Port            int      `toml:"port"`             // Listen port
	RequestTimeout  string   `toml:"request_timeout"`  // Per-request timeout (e.g., "90s")
	ShutdownTimeout string   `toml:"shutdown_timeout"` // Graceful shutdown window
	AllowedOrigins  []string `toml:"allowed_origins"`  // CORS origins
}

// DatabaseConfig contains sqlite settings.
type DatabaseConfig struct {
	Path        string `toml:"path"`         // Path to the sqlite database
	AutoMigrate bool   `toml:"auto_migrate"` // Run schema migrations at startup
	BackupDir   string `toml:"backup_dir"`   // Directory for database backups
}

// CacheConfig sizes the tiered card cache.
type CacheConfig struct {
	HotCapacity      int `toml:"hot_capacity"`      // L1 entries
	WarmCapacity     int `toml:"warm_capacity"`     // L2 entries
	ColdCapacity     int `toml:"cold_capacity"`     // L3 entries
	PromoteThreshold int `toml:"promote_threshold"` // Accesses before promotion
}

// LLMConfig contains the model provider settings. The API key is taken from
// the GEMINI_API_KEY environment variable when unset here.
type LLMConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`        // Model name (e.g., "gemini-2.5-flash")
	MaxInFlight int     `toml:"max_in_flight"` // Concurrent request cap
	Temperature float64 `toml:"temperature"`
}

// BuilderConfig tunes the build-and-refine loop.
type BuilderConfig struct {
	QualityThreshold float64 `toml:"quality_threshold"` // Overall score that stops refinement
	MaxIterations    int     `toml:"max_iterations"`    // Build-plus-refine cap
	PhaseTimeout     string  `toml:"phase_timeout"`     // Per-phase timeout (e.g., "60s")
	DefaultFormat    string  `toml:"default_format"`    // Format when the request names none
}

// AppConfig contains general application settings.
type AppConfig struct {
	LogLevel  string `toml:"log_level"`  // zap level: debug, info, warn, error
	DebugMode bool   `toml:"debug_mode"` // Development logger output
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			RequestTimeout:  "120s",
			ShutdownTimeout: "10s",
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Path:        "deckforge.db",
			AutoMigrate: true,
			BackupDir:   "backups",
		},
		Cache: CacheConfig{
			HotCapacity:      100,
			WarmCapacity:     500,
			ColdCapacity:     2000,
			PromoteThreshold: 5,
		},
		LLM: LLMConfig{
			Model:       "gemini-2.5-flash",
			MaxInFlight: 4,
			Temperature: 0.7,
		},
		Builder: BuilderConfig{
			QualityThreshold: 0.7,
			MaxIterations:    5,
			PhaseTimeout:     "60s",
			DefaultFormat:    string(rules.FormatStandard),
		},
		App: AppConfig{
			LogLevel:  "info",
			DebugMode: false,
		},
	}
}

// Load loads the configuration from the given path. A missing file yields
// the defaults; the GEMINI_API_KEY environment variable overrides the
// configured API key either way.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to the given path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, err := time.ParseDuration(c.Server.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request timeout %q: %w", c.Server.RequestTimeout, err)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown timeout %q: %w", c.Server.ShutdownTimeout, err)
	}
	if _, err := time.ParseDuration(c.Builder.PhaseTimeout); err != nil {
		return fmt.Errorf("invalid phase timeout %q: %w", c.Builder.PhaseTimeout, err)
	}

	if c.Cache.HotCapacity < 0 || c.Cache.WarmCapacity < 0 || c.Cache.ColdCapacity < 0 {
		return fmt.Errorf("cache capacities cannot be negative")
	}
	if c.Builder.QualityThreshold < 0 || c.Builder.QualityThreshold > 1 {
		return fmt.Errorf("quality threshold %f out of [0,1]", c.Builder.QualityThreshold)
	}
	if c.Builder.MaxIterations < 0 {
		return fmt.Errorf("max iterations cannot be negative: %d", c.Builder.MaxIterations)
	}
	if _, err := rules.ParseFormat(c.Builder.DefaultFormat); err != nil {
		return fmt.Errorf("invalid default format: %w", err)
	}
	return nil
}

// GetRequestTimeout returns the request timeout as a duration.
func (c *Config) GetRequestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.RequestTimeout)
}

// GetShutdownTimeout returns the shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.ShutdownTimeout)
}

// GetPhaseTimeout returns the builder phase timeout as a duration.
func (c *Config) GetPhaseTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Builder.PhaseTimeout)
}

// Addr returns the host:port the server should bind.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
