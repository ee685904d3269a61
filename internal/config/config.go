// Package config loads service settings from an optional YAML file and environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings
const (
	EnvDBPath        = "EDUPORTAL_DB_PATH"
	EnvCatalogDir    = "EDUPORTAL_CATALOG_DIR"
	EnvTrendingURL   = "EDUPORTAL_TRENDING_URL"
	EnvLogLevel      = "EDUPORTAL_LOG_LEVEL"
	EnvStorageQuota  = "EDUPORTAL_STORAGE_QUOTA"
	EnvTrendingLimit = "EDUPORTAL_TRENDING_RPS"
)

// Config holds all service settings
type Config struct {
	DBPath       string `yaml:"db_path"`
	CatalogDir   string `yaml:"catalog_dir"`
	LogLevel     string `yaml:"log_level"`
	StorageQuota int64  `yaml:"storage_quota_bytes"`

	Cache    CacheConfig    `yaml:"cache"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Search   SearchConfig   `yaml:"search"`
	Trending TrendingConfig `yaml:"trending"`
	Import   ImportConfig   `yaml:"import"`
}

// CacheConfig bounds the per-category result caches
type CacheConfig struct {
	MaxEntries    int           `yaml:"max_entries"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// TrackerConfig controls interaction persistence
type TrackerConfig struct {
	FlushDelay time.Duration `yaml:"flush_delay"`
}

// SearchConfig controls query-time behaviour
type SearchConfig struct {
	TypeaheadDelay time.Duration `yaml:"typeahead_delay"`
}

// TrendingConfig configures the remote trending feed. An empty URL disables it.
type TrendingConfig struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RatePerSec float64       `yaml:"rate_per_sec"`
}

// ImportConfig controls catalog file import
type ImportConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// Default returns the built-in settings
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DBPath:       filepath.Join(home, ".eduportal", "catalog.db"),
		LogLevel:     "info",
		StorageQuota: 5 << 20,
		Cache: CacheConfig{
			MaxEntries:    100,
			TTL:           5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Tracker: TrackerConfig{FlushDelay: time.Second},
		Search:  SearchConfig{TypeaheadDelay: 300 * time.Millisecond},
		Trending: TrendingConfig{
			Timeout:    5 * time.Second,
			MaxRetries: 3,
			RatePerSec: 1,
		},
		Import: ImportConfig{Workers: 4, BatchSize: 100},
	}
}

// Load reads path over the defaults, then applies environment overrides. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvCatalogDir); v != "" {
		c.CatalogDir = v
	}
	if v := os.Getenv(EnvTrendingURL); v != "" {
		c.Trending.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvStorageQuota); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvStorageQuota, v, err)
		}
		c.StorageQuota = n
	}
	if v := os.Getenv(EnvTrendingLimit); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTrendingLimit, v, err)
		}
		c.Trending.RatePerSec = f
	}
	return nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q is not a valid level", c.LogLevel))
	}
	if c.StorageQuota < 0 {
		errs = append(errs, errors.New("storage_quota_bytes must be >= 0"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, errors.New("cache.max_entries must be > 0"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be > 0"))
	}
	if c.Cache.SweepInterval < 0 {
		errs = append(errs, errors.New("cache.sweep_interval must be >= 0"))
	}
	if c.Tracker.FlushDelay < 0 {
		errs = append(errs, errors.New("tracker.flush_delay must be >= 0"))
	}
	if c.Search.TypeaheadDelay < 0 {
		errs = append(errs, errors.New("search.typeahead_delay must be >= 0"))
	}
	if c.Trending.Timeout <= 0 {
		errs = append(errs, errors.New("trending.timeout must be > 0"))
	}
	if c.Trending.MaxRetries < 0 {
		errs = append(errs, errors.New("trending.max_retries must be >= 0"))
	}
	if c.Trending.RatePerSec <= 0 {
		errs = append(errs, errors.New("trending.rate_per_sec must be > 0"))
	}
	if c.Import.Workers <= 0 {
		errs = append(errs, errors.New("import.workers must be > 0"))
	}
	if c.Import.BatchSize <= 0 {
		errs = append(errs, errors.New("import.batch_size must be > 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
