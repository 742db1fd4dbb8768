package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/engine"
	"github.com/marcelocantos/imgpipe/internal/session"
)

// Config holds the global imgpipe configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
	Audit  AuditConfig  `yaml:"audit"`

	// Defaults overrides the initial option of a category, keyed by
	// category name (e.g. "edge detector": "Sobel").
	Defaults map[string]string `yaml:"defaults"`
}

// EngineConfig locates the processing engine.
type EngineConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Timeout bounds one submission; empty means no timeout of our own.
	Timeout string `yaml:"timeout"`
	// Concurrency limits parallel submissions in batch runs.
	Concurrency int `yaml:"concurrency"`
}

// DefaultConcurrency is used when no concurrency is configured.
const DefaultConcurrency = 4

// TimeoutDuration parses the configured timeout. An empty or invalid value
// yields 0.
func (e *EngineConfig) TimeoutDuration() time.Duration {
	if e.Timeout != "" {
		dur, err := time.ParseDuration(e.Timeout)
		if err == nil && dur > 0 {
			return dur
		}
	}
	return 0
}

// Workers returns the configured concurrency or the default.
func (e *EngineConfig) Workers() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return DefaultConcurrency
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Engine: EngineConfig{
			Endpoint:    engine.DefaultEndpoint,
			Concurrency: DefaultConcurrency,
		},
		Log: LogConfig{
			Level: "info",
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".local", "share", "imgpipe", "audit.jsonl"),
		},
	}
}

// Load reads the config from the standard location (~/.config/imgpipe/config.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	if _, err := os.UserHomeDir(); err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	return cfg, nil
}

func expandHome(p string) string {
	if p != "" && p[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[1:])
	}
	return p
}

// LogLevel parses the configured level, falling back to info.
func (c *Config) LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(c.Log.Level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger creates a text logger at the configured level writing to stderr.
func (c *Config) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(c.LogLevel())
	return l
}

// NewClient creates an engine client for the configured endpoint.
func (c *Config) NewClient(logger *logrus.Logger) *engine.Client {
	return &engine.Client{
		Endpoint: c.Engine.Endpoint,
		Timeout:  c.Engine.TimeoutDuration(),
		Logger:   logger,
	}
}

// ErrDuplicateDefault reports two defaults entries naming the same
// category under different spellings.
var ErrDuplicateDefault = errors.New("category configured twice")

// ApplyDefaults selects the configured initial options on s. Each entry
// behaves like an explicit selection, so numeric slots of the chosen option
// start at 0. Entries are checked before any is applied, so a bad entry
// leaves s untouched.
func (c *Config) ApplyDefaults(s *session.State) error {
	seen := map[catalog.Category]string{}
	for _, name := range slices.Sorted(maps.Keys(c.Defaults)) {
		cat, err := catalog.ParseCategory(name)
		if err != nil {
			return fmt.Errorf("config defaults: %w", err)
		}
		if prev, ok := seen[cat]; ok {
			return fmt.Errorf("config defaults: %q and %q: %w", prev, name, ErrDuplicateDefault)
		}
		if _, err := s.Catalog().Option(cat, c.Defaults[name]); err != nil {
			return fmt.Errorf("config defaults: %w", err)
		}
		seen[cat] = name
	}
	for _, cat := range slices.Sorted(maps.Keys(seen)) {
		if err := s.Select(cat, c.Defaults[seen[cat]]); err != nil {
			return fmt.Errorf("config defaults: %w", err)
		}
	}
	return nil
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "imgpipe", "config.yaml")
}
