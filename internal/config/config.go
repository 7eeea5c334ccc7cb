// Package config loads and validates the DocuDepth engine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the per-workspace configuration file.
const FileName = ".docudepth.yaml"

// MaxFileSize is the content ceiling for synced files. Files larger than
// this are silently skipped, never uploaded. Fixed, not configurable.
const MaxFileSize = 100 * 1024

// Config represents the complete engine configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	API     APIConfig     `yaml:"api" json:"api"`
	Sync    SyncConfig    `yaml:"sync" json:"sync"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig configures the remote analysis service.
type APIConfig struct {
	// Endpoint is the base URL of the DocuDepth API.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Token is the bearer token. Usually set via DOCUDEPTH_TOKEN instead
	// of the config file so it stays out of version control.
	Token string `yaml:"token" json:"token"`
	// RequestTimeout is the per-request timeout (default: 30s).
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
}

// SyncConfig configures change batching and job polling.
type SyncConfig struct {
	// DebounceMs is the quiet period after the last edit before a flush
	// fires (default: 3000).
	DebounceMs int `yaml:"debounce_ms" json:"debounce_ms"`
	// MaxFilesPerBatch caps how many changes ship per flush; the overflow
	// is retained for the next cycle (default: 50).
	MaxFilesPerBatch int `yaml:"max_files_per_batch" json:"max_files_per_batch"`
	// PollInterval is the delay between job status polls (default: "2s").
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	// PollMaxAttempts bounds status polling before the job is reported as
	// timed out (default: 900, about 30 minutes at the default interval).
	PollMaxAttempts int `yaml:"poll_max_attempts" json:"poll_max_attempts"`
}

// PathsConfig configures which paths are excluded from sync and where the
// local cache lives.
type PathsConfig struct {
	// ExcludeDirs are directory names matched as whole path segments.
	// Empty uses the built-in defaults.
	ExcludeDirs []string `yaml:"exclude_dirs" json:"exclude_dirs"`
	// ExcludeGlobs are file name patterns (suffix wildcards).
	// Empty uses the built-in defaults.
	ExcludeGlobs []string `yaml:"exclude_globs" json:"exclude_globs"`
	// CacheDir is the cache directory relative to the workspace root
	// (default: ".docudepth").
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// LoggingConfig configures engine logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig creates a Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		API: APIConfig{
			Endpoint:       "https://api.docudepth.ai",
			RequestTimeout: "30s",
		},
		Sync: SyncConfig{
			DebounceMs:       3000,
			MaxFilesPerBatch: 50,
			PollInterval:     "2s",
			PollMaxAttempts:  900,
		},
		Paths: PathsConfig{
			CacheDir: ".docudepth",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the workspace config file under root, applies defaults for
// unset fields, then environment overrides. A missing file is not an
// error; the defaults are returned.
func Load(root string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := NewConfig()
	if c.API.Endpoint == "" {
		c.API.Endpoint = def.API.Endpoint
	}
	if c.API.RequestTimeout == "" {
		c.API.RequestTimeout = def.API.RequestTimeout
	}
	if c.Sync.DebounceMs <= 0 {
		c.Sync.DebounceMs = def.Sync.DebounceMs
	}
	if c.Sync.MaxFilesPerBatch <= 0 {
		c.Sync.MaxFilesPerBatch = def.Sync.MaxFilesPerBatch
	}
	if c.Sync.PollInterval == "" {
		c.Sync.PollInterval = def.Sync.PollInterval
	}
	if c.Sync.PollMaxAttempts <= 0 {
		c.Sync.PollMaxAttempts = def.Sync.PollMaxAttempts
	}
	if c.Paths.CacheDir == "" {
		c.Paths.CacheDir = def.Paths.CacheDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// applyEnv applies environment variable overrides. Env always wins over
// the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCUDEPTH_ENDPOINT"); v != "" {
		c.API.Endpoint = v
	}
	if v := os.Getenv("DOCUDEPTH_TOKEN"); v != "" {
		c.API.Token = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint must not be empty")
	}
	if _, err := time.ParseDuration(c.API.RequestTimeout); err != nil {
		return fmt.Errorf("api.request_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Sync.PollInterval); err != nil {
		return fmt.Errorf("sync.poll_interval: %w", err)
	}
	return nil
}

// DebounceDelay returns the flush debounce window as a duration.
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Sync.DebounceMs) * time.Millisecond
}

// PollInterval returns the parsed status poll interval.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Sync.PollInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// RequestTimeout returns the parsed per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CachePath returns the absolute cache directory for a workspace root.
func (c *Config) CachePath(root string) string {
	if filepath.IsAbs(c.Paths.CacheDir) {
		return c.Paths.CacheDir
	}
	return filepath.Join(root, c.Paths.CacheDir)
}
