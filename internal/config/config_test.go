package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RAGDESK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != DefaultAPIURL || cfg.PollInterval != DefaultPollInterval || cfg.StaleSweeps != DefaultStaleSweeps {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if strings.HasPrefix(cfg.LocalDataDir, "~") {
		t.Errorf("data dir not expanded: %s", cfg.LocalDataDir)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `api_url: http://rag.internal:9000
data_dir: /var/lib/ragdesk
poll_interval: 500ms
stall_timeout: 1m
stale_sweeps: 4
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RAGDESK_CONFIG", path)
	t.Setenv("RAGDESK_POLL_INTERVAL", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"api url from file", cfg.APIURL, "http://rag.internal:9000"},
		{"data dir from file", cfg.LocalDataDir, "/var/lib/ragdesk"},
		{"poll interval from env", cfg.PollInterval, 3 * time.Second},
		{"stall timeout from file", cfg.StallTimeout, time.Minute},
		{"stale sweeps from file", cfg.StaleSweeps, 4},
		{"sweep interval default", cfg.SweepInterval, DefaultSweepInterval},
		{"log level from file", cfg.LogLevel, "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_LocalBackend(t *testing.T) {
	t.Setenv("RAGDESK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("RAGDESK_API_URL", "local")
	t.Setenv("RAGDESK_DATA_DIR", "/tmp/rd")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.UseLocalBackend() {
		t.Error("expected the local backend")
	}
	if got := cfg.DatabasePath(); got != "/tmp/rd/ragdesk.db" {
		t.Errorf("DatabasePath() = %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad duration", env: map[string]string{"RAGDESK_POLL_INTERVAL": "soon"}},
		{name: "bad count", env: map[string]string{"RAGDESK_STALE_SWEEPS": "many"}},
		{name: "zero sweeps", env: map[string]string{"RAGDESK_STALE_SWEEPS": "0"}},
		{name: "bad yaml", file: "poll_interval: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.file != "" {
				if err := os.WriteFile(path, []byte(tt.file), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			t.Setenv("RAGDESK_CONFIG", path)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewLogger(Config{LogLevel: "warn"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", slog.String("collection", "docs"))
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "collection=docs") {
		t.Errorf("unexpected log output %q", out)
	}

	if _, _, err := NewLogger(Config{LogLevel: "loud"}, nil); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ragdesk.log")
	logger, closer, err := NewLogger(Config{LogLevel: "info", LogFile: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("written")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("log file = %q", data)
	}
}
