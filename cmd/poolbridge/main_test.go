package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testConfigYAML = `
site:
  id: test-site

pool:
  api_key: "test-key"
  base_url: "http://127.0.0.1:1"
  poll_interval_ms: 5000

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(testConfigYAML, dbPath)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, []string{"-config", "/nonexistent/path/config.yaml"}); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, []string{"-config", path})
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("run() error = %v, want database.path validation", err)
	}
}

// TestRun_UnreachableController verifies startup aborts when the controller
// config cannot be fetched.
func TestRun_UnreachableController(t *testing.T) {
	path := writeConfig(t, filepath.Join(t.TempDir(), "pool.db"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx, []string{"-config", path})
	if err == nil {
		t.Fatal("run() should fail when the controller is unreachable")
	}
	if !strings.Contains(err.Error(), "bootstrapping devices") {
		t.Errorf("run() error = %v, want bootstrap failure", err)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("POOLBRIDGE_CONFIG", "")
	t.Setenv("POOLBRIDGE_LOG_LEVEL", "")
	t.Setenv("POOLBRIDGE_POLL_INTERVAL", "")

	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != defaultConfigPath {
		t.Errorf("configPath = %q, want %q", opts.configPath, defaultConfigPath)
	}
	if opts.logLevel != "" || opts.pollInterval != 0 {
		t.Errorf("overrides set by default: %+v", opts)
	}
}

func TestParseFlags_EnvOverride(t *testing.T) {
	t.Setenv("POOLBRIDGE_CONFIG", "/custom/path/config.yaml")
	t.Setenv("POOLBRIDGE_POLL_INTERVAL", "15s")

	opts, err := parseFlags([]string{"-log-level", "debug"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "/custom/path/config.yaml" {
		t.Errorf("configPath = %q", opts.configPath)
	}
	if opts.logLevel != "debug" {
		t.Errorf("logLevel = %q, want debug", opts.logLevel)
	}
	if opts.pollInterval != 15*time.Second {
		t.Errorf("pollInterval = %v, want 15s", opts.pollInterval)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	if _, err := parseFlags([]string{"-poll-interval", "soon"}); err == nil {
		t.Error("parseFlags() accepted an invalid duration")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, filepath.Join(t.TempDir(), "pool.db"))

	cfg, err := loadConfig(options{configPath: path, logLevel: "debug", pollInterval: 2 * time.Second})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", cfg.PollInterval())
	}
}

func TestLoadConfig_OverrideRevalidated(t *testing.T) {
	path := writeConfig(t, filepath.Join(t.TempDir(), "pool.db"))

	if _, err := loadConfig(options{configPath: path, pollInterval: time.Millisecond}); err == nil {
		t.Error("loadConfig() accepted a poll interval below the minimum")
	}
}
