// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the tracker service configuration.
//
// Configuration comes from exactly one YAML file, named by the
// --config flag or the TRACKER_CONFIG environment variable. There is
// no discovery and no fallback, and environment variables never
// override file values. The only expansion is ${VAR} and
// ${VAR:-default} inside path values.
//
// The file may carry development, staging, and production sections
// that override the base values when the selected environment
// matches.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "TRACKER_CONFIG"

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config is the tracker service configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Store  StoreConfig  `yaml:"store"`
	Socket SocketConfig `yaml:"socket"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment block may replace.
// Only non-empty values take effect.
type Overrides struct {
	Store  *StoreConfig  `yaml:"store,omitempty"`
	Socket *SocketConfig `yaml:"socket,omitempty"`
	HTTP   *HTTPConfig   `yaml:"http,omitempty"`
	Log    *LogConfig    `yaml:"log,omitempty"`
}

// StoreConfig selects where records and their history live.
type StoreConfig struct {
	// Backend is "memory" (lost on exit) or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file. Used only by the sqlite
	// backend. The parent directory is created on startup.
	Path string `yaml:"path"`

	// PoolSize is the SQLite connection count. Zero picks a default.
	PoolSize int `yaml:"pool_size"`
}

// SocketConfig configures the CBOR Unix socket API.
type SocketConfig struct {
	// Path is the socket file. Empty disables the socket listener.
	Path string `yaml:"path"`
}

// HTTPConfig configures the JSON HTTP API.
type HTTPConfig struct {
	// Address is the TCP listen address. Empty disables HTTP.
	Address string `yaml:"address"`

	// ShutdownTimeout is a Go duration string. Default: 10s.
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LogConfig configures the service logger.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// Default returns the base values a config file is merged over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".cache", "tracker")

	return &Config{
		Environment: Development,
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    filepath.Join(root, "tracker.db"),
		},
		Socket: SocketConfig{
			Path: filepath.Join(root, "tracker.sock"),
		},
		HTTP: HTTPConfig{
			Address:         "127.0.0.1:8080",
			ShutdownTimeout: "10s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the file named by TRACKER_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your tracker.yaml, or use --config", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile reads path over Default, applies the matching environment
// section, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			// Production without a section keeps history on disk.
			overrides = &Overrides{Store: &StoreConfig{Backend: BackendSQLite}}
		}
	}
	if overrides == nil {
		return
	}

	if store := overrides.Store; store != nil {
		setIfNonEmpty(&c.Store.Backend, store.Backend)
		setIfNonEmpty(&c.Store.Path, store.Path)
		if store.PoolSize != 0 {
			c.Store.PoolSize = store.PoolSize
		}
	}
	if socket := overrides.Socket; socket != nil {
		setIfNonEmpty(&c.Socket.Path, socket.Path)
	}
	if http := overrides.HTTP; http != nil {
		setIfNonEmpty(&c.HTTP.Address, http.Address)
		setIfNonEmpty(&c.HTTP.ShutdownTimeout, http.ShutdownTimeout)
	}
	if log := overrides.Log; log != nil {
		setIfNonEmpty(&c.Log.Level, log.Level)
		setIfNonEmpty(&c.Log.Format, log.Format)
	}
}

func setIfNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Socket.Path = expandVars(c.Socket.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return parts[2]
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Store.Backend))
	}
	if c.Store.PoolSize < 0 {
		errs = append(errs, errors.New("store.pool_size must not be negative"))
	}

	if c.Socket.Path == "" && c.HTTP.Address == "" {
		errs = append(errs, errors.New("at least one of socket.path and http.address is required"))
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %s", strings.Join(logLevels, ", ")))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %s", strings.Join(logFormats, ", ")))
	}

	return errors.Join(errs...)
}

// ShutdownTimeout parses HTTP.ShutdownTimeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	if c.HTTP.ShutdownTimeout == "" {
		return 10 * time.Second, nil
	}
	timeout, err := time.ParseDuration(c.HTTP.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("http.shutdown_timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("http.shutdown_timeout must be positive, got %s", timeout)
	}
	return timeout, nil
}

// SlogLevel maps Log.Level to a slog.Level. Unknown values map to
// info; Validate rejects them.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// EnsurePaths creates the parent directories of the database and
// socket files.
func (c *Config) EnsurePaths() error {
	var paths []string
	if c.Store.Backend == BackendSQLite {
		paths = append(paths, c.Store.Path)
	}
	if c.Socket.Path != "" {
		paths = append(paths, c.Socket.Path)
	}
	for _, path := range paths {
		directory := filepath.Dir(path)
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}
