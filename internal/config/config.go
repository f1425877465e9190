// Package config provides layered configuration loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/basecamp/prismctl/internal/hostutil"
	"github.com/basecamp/prismctl/internal/resilience"
)

// Config holds the resolved configuration.
type Config struct {
	// Library server
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`

	// Data layer
	PageRate float64       `yaml:"page_rate"` // page requests per second during exhaustive loads, 0 unlimited
	FreshTTL time.Duration `yaml:"fresh_ttl"`

	// watch command
	Schedule    string `yaml:"schedule"`
	MetricsAddr string `yaml:"metrics_addr"`

	CacheDir   string            `yaml:"cache_dir"`
	Format     string            `yaml:"format"`
	Verbose    *int              `yaml:"verbose,omitempty"`
	Resilience resilience.Config `yaml:"resilience"`

	// Sources tracks where each value came from.
	Sources map[string]string `yaml:"-"`
	// Files lists the config files consulted, existing or not, in load order.
	Files []string `yaml:"-"`
	// Warnings collects problems with optional layers that were skipped.
	Warnings []string `yaml:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceFile    Source = "file" // --config
	SourceLocal   Source = "local"
	SourceDotenv  Source = "dotenv"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// EnvPrefix prefixes every environment variable prismctl reads.
const EnvPrefix = "PRISMCTL_"

// LocalFileName is the per-directory config file.
const LocalFileName = ".prismctl.yaml"

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	ConfigFile string
	BaseURL    string
	Format     string
	CacheDir   string
	Verbose    int // -1 when not given
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schedule:   "@every 5m",
		CacheDir:   resilience.DefaultDir(),
		Format:     "auto",
		Resilience: resilience.DefaultConfig(),
		Sources:    make(map[string]string),
	}
}

// Load resolves configuration for a command run in dir.
// Precedence: flags > env > .env > local > global (or --config) > defaults.
func Load(dir string, overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	if overrides.ConfigFile != "" {
		cfg.Files = append(cfg.Files, overrides.ConfigFile)
		if err := loadFromFile(cfg, overrides.ConfigFile, SourceFile); err != nil {
			return nil, err
		}
	} else {
		path := GlobalConfigPath()
		cfg.Files = append(cfg.Files, path)
		if err := loadFromFile(cfg, path, SourceGlobal); err != nil && !errors.Is(err, fs.ErrNotExist) {
			cfg.warn("skipping global config: %v", err)
		}
	}

	local := filepath.Join(dir, LocalFileName)
	cfg.Files = append(cfg.Files, local)
	if err := loadFromFile(cfg, local, SourceLocal); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cfg.warn("skipping local config: %v", err)
	}

	dotenv := filepath.Join(dir, ".env")
	cfg.Files = append(cfg.Files, dotenv)
	if vars, err := godotenv.Read(dotenv); err == nil {
		loadFromEnv(cfg, func(key string) string { return vars[key] }, SourceDotenv)
	} else if !errors.Is(err, fs.ErrNotExist) {
		cfg.warn("skipping %s: %v", dotenv, err)
	}

	loadFromEnv(cfg, os.Getenv, SourceEnv)
	ApplyOverrides(cfg, overrides)
	return cfg, nil
}

func (cfg *Config) warn(format string, args ...any) {
	cfg.Warnings = append(cfg.Warnings, fmt.Sprintf(format, args...))
}

func (cfg *Config) set(key string, source Source) {
	cfg.Sources[key] = string(source)
}

// fileConfig mirrors Config with pointers so absent keys keep lower layers.
type fileConfig struct {
	BaseURL     *string        `yaml:"base_url"`
	Token       *string        `yaml:"token"`
	PageRate    *float64       `yaml:"page_rate"`
	FreshTTL    *time.Duration `yaml:"fresh_ttl"`
	Schedule    *string        `yaml:"schedule"`
	MetricsAddr *string        `yaml:"metrics_addr"`
	CacheDir    *string        `yaml:"cache_dir"`
	Format      *string        `yaml:"format"`
	Verbose     *int           `yaml:"verbose"`
	Resilience  *yaml.Node     `yaml:"resilience"`
}

func loadFromFile(cfg *Config, path string, source Source) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a config location
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// A .prismctl.yaml in a cloned directory must not redirect the token
	// to another server, nor plant one.
	untrusted := source == SourceLocal
	if fc.BaseURL != nil && *fc.BaseURL != "" {
		if untrusted {
			cfg.warn("ignoring base_url from %s: not trusted in local config", path)
		} else {
			cfg.BaseURL = NormalizeBaseURL(*fc.BaseURL)
			cfg.set("base_url", source)
		}
	}
	if fc.Token != nil && *fc.Token != "" {
		if untrusted {
			cfg.warn("ignoring token from %s: not trusted in local config", path)
		} else {
			cfg.Token = *fc.Token
			cfg.set("token", source)
		}
	}
	if fc.PageRate != nil && *fc.PageRate >= 0 {
		cfg.PageRate = *fc.PageRate
		cfg.set("page_rate", source)
	}
	if fc.FreshTTL != nil && *fc.FreshTTL >= 0 {
		cfg.FreshTTL = *fc.FreshTTL
		cfg.set("fresh_ttl", source)
	}
	if fc.Schedule != nil && *fc.Schedule != "" {
		cfg.Schedule = *fc.Schedule
		cfg.set("schedule", source)
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
		cfg.set("metrics_addr", source)
	}
	if fc.CacheDir != nil && *fc.CacheDir != "" {
		cfg.CacheDir = *fc.CacheDir
		cfg.set("cache_dir", source)
	}
	if fc.Format != nil && *fc.Format != "" {
		cfg.Format = *fc.Format
		cfg.set("format", source)
	}
	if fc.Verbose != nil && *fc.Verbose >= 0 && *fc.Verbose <= 2 {
		v := *fc.Verbose
		cfg.Verbose = &v
		cfg.set("verbose", source)
	}
	if fc.Resilience != nil {
		// Decoding over the current value keeps keys the file omits.
		if err := fc.Resilience.Decode(&cfg.Resilience); err != nil {
			return fmt.Errorf("parsing %s: resilience: %w", path, err)
		}
		cfg.set("resilience", source)
	}
	return nil
}

// loadFromEnv applies PRISMCTL_* variables looked up through getenv.
func loadFromEnv(cfg *Config, getenv func(string) string, source Source) {
	str := func(name, key string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
			cfg.set(key, source)
		}
	}
	str("BASE_URL", "base_url", &cfg.BaseURL)
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	str("TOKEN", "token", &cfg.Token)
	str("SCHEDULE", "schedule", &cfg.Schedule)
	str("METRICS_ADDR", "metrics_addr", &cfg.MetricsAddr)
	str("CACHE_DIR", "cache_dir", &cfg.CacheDir)
	str("FORMAT", "format", &cfg.Format)

	if v := getenv(EnvPrefix + "PAGE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.PageRate = f
			cfg.set("page_rate", source)
		} else {
			cfg.warn("ignoring %sPAGE_RATE=%q: not a rate", EnvPrefix, v)
		}
	}
	if v := getenv(EnvPrefix + "FRESH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.FreshTTL = d
			cfg.set("fresh_ttl", source)
		} else {
			cfg.warn("ignoring %sFRESH_TTL=%q: not a duration", EnvPrefix, v)
		}
	}
	if v := getenv(EnvPrefix + "VERBOSE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 2 {
			cfg.Verbose = &n
			cfg.set("verbose", source)
		}
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = NormalizeBaseURL(o.BaseURL)
		cfg.set("base_url", SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.set("format", SourceFlag)
	}
	if o.CacheDir != "" {
		cfg.CacheDir = o.CacheDir
		cfg.set("cache_dir", SourceFlag)
	}
	if o.Verbose >= 0 {
		v := min(o.Verbose, 2)
		cfg.Verbose = &v
		cfg.set("verbose", SourceFlag)
	}
}

// Validate checks the settings every library command needs.
func (cfg *Config) Validate() error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("no library server configured: set base_url in %s, %sBASE_URL or --base-url", GlobalConfigPath(), EnvPrefix)
	}
	return nil
}

// VerboseLevel returns the configured verbosity, zero when unset.
func (cfg *Config) VerboseLevel() int {
	if cfg.Verbose == nil {
		return 0
	}
	return *cfg.Verbose
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "prismctl")
}

// GlobalConfigPath returns the global config file path.
func GlobalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.yaml")
}

// NormalizeBaseURL turns a bare host into a URL and drops the trailing slash.
func NormalizeBaseURL(url string) string {
	return hostutil.Normalize(url)
}
