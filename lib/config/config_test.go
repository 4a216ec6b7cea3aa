// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Environment != Development {
		t.Errorf("environment = %s, want development", cfg.Environment)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("store.backend = %s, want memory", cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadRequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")
	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded without " + EnvVar)
	}
	if !strings.HasPrefix(err.Error(), EnvVar+" environment variable not set") {
		t.Errorf("error = %q", err)
	}
}

func TestLoadFromEnvVar(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, `
environment: staging
store:
  backend: sqlite
  path: /var/lib/tracker/tracker.db
  pool_size: 6
socket:
  path: /run/tracker/tracker.sock
http:
  address: ":9090"
  shutdown_timeout: 3s
log:
  level: debug
  format: text
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("environment = %s", cfg.Environment)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.Path != "/var/lib/tracker/tracker.db" || cfg.Store.PoolSize != 6 {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Socket.Path != "/run/tracker/tracker.sock" || cfg.HTTP.Address != ":9090" {
		t.Errorf("socket = %+v, http = %+v", cfg.Socket, cfg.HTTP)
	}
	if timeout, err := cfg.ShutdownTimeout(); err != nil || timeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v, %v", timeout, err)
	}
	if cfg.SlogLevel() != slog.LevelDebug || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: production
store:
  backend: memory
log:
  level: debug
production:
  store:
    backend: sqlite
    path: /prod/tracker.db
  log:
    level: warn
staging:
  log:
    level: error
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.Path != "/prod/tracker.db" {
		t.Errorf("store = %+v, want production override", cfg.Store)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %s, want warn", cfg.Log.Level)
	}
}

func TestProductionDefaultsToSQLite(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("store.backend = %s, want sqlite", cfg.Store.Backend)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("TRACKER_STORE_BACKEND", "sqlite")
	cfg, err := LoadFile(writeConfig(t, "store:\n  backend: memory\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("store.backend = %s; environment variables must not override the file", cfg.Store.Backend)
	}
}

func TestPathExpansion(t *testing.T) {
	t.Setenv("TRACKER_DATA", "/data")
	cfg, err := LoadFile(writeConfig(t, `
store:
  path: ${TRACKER_DATA}/tracker.db
socket:
  path: ${TRACKER_RUN:-/run/tracker}/tracker.sock
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Store.Path != "/data/tracker.db" {
		t.Errorf("store.path = %s", cfg.Store.Path)
	}
	if cfg.Socket.Path != "/run/tracker/tracker.sock" {
		t.Errorf("socket.path = %s", cfg.Socket.Path)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{"${HOME}/tracker", map[string]string{"HOME": "/home/user"}, "/home/user/tracker"},
		{"${MISSING_TRACKER_VAR:-default}", map[string]string{}, "default"},
		{"${PRESENT:-default}", map[string]string{"PRESENT": "value"}, "value"},
		{"${A}/${B}", map[string]string{"A": "first", "B": "second"}, "first/second"},
		{"no variables here", map[string]string{}, "no variables here"},
	}
	for _, tt := range tests {
		if result := expandVars(tt.input, tt.vars); result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"invalid environment", func(c *Config) { c.Environment = "qa" }, "invalid environment"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"sqlite without path", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.Path = "" }, "store.path"},
		{"no listeners", func(c *Config) { c.Socket.Path = ""; c.HTTP.Address = "" }, "socket.path"},
		{"bad timeout", func(c *Config) { c.HTTP.ShutdownTimeout = "soon" }, "http.shutdown_timeout"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}

	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	if err := cfg.Validate(); strings.Count(err.Error(), "\n") != 1 {
		t.Errorf("Validate should report both problems: %q", err)
	}
}

func TestEnsurePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Store.Backend = BackendSQLite
	cfg.Store.Path = filepath.Join(root, "data", "tracker.db")
	cfg.Socket.Path = filepath.Join(root, "run", "tracker.sock")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	for _, directory := range []string{"data", "run"} {
		if info, err := os.Stat(filepath.Join(root, directory)); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", directory, err)
		}
	}
}
