package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultDataDir        = "~/.local/share/ragdesk"
	DefaultPollInterval   = 2 * time.Second
	DefaultSweepInterval  = 30 * time.Second
	DefaultStallTimeout   = 5 * time.Minute
	DefaultStaleSweeps    = 2
	DefaultRequestTimeout = 30 * time.Second
	DefaultLogLevel       = "info"
)

// Config holds the settings shared by all ragdesk binaries
type Config struct {
	// APIURL is the REST backend. Empty selects the local SQLite backend.
	APIURL string `yaml:"api_url"`
	// LocalDataDir holds the SQLite database of the local backend
	LocalDataDir string `yaml:"data_dir"`

	PollInterval   time.Duration `yaml:"poll_interval"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	StallTimeout   time.Duration `yaml:"stall_timeout"`
	StaleSweeps    int           `yaml:"stale_sweeps"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	// Editor overrides $EDITOR for the TUI's external edit
	Editor string `yaml:"editor"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		LocalDataDir:   DefaultDataDir,
		PollInterval:   DefaultPollInterval,
		SweepInterval:  DefaultSweepInterval,
		StallTimeout:   DefaultStallTimeout,
		StaleSweeps:    DefaultStaleSweeps,
		RequestTimeout: DefaultRequestTimeout,
		LogLevel:       DefaultLogLevel,
	}
}

// Path returns the config file location: RAGDESK_CONFIG, or config.yaml
// under the XDG config directory.
func Path() string {
	if env := os.Getenv("RAGDESK_CONFIG"); env != "" {
		return ExpandHome(env)
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ragdesk", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ragdesk", "config.yaml")
}

// Load reads the config file if it exists, then applies RAGDESK_*
// environment overrides on top of the defaults.
func Load() (Config, error) {
	cfg := Default()
	if p := Path(); p != "" {
		if err := cfg.readFile(p); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	cfg.LocalDataDir = ExpandHome(cfg.LocalDataDir)
	cfg.LogFile = ExpandHome(cfg.LogFile)
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v, ok := lookup(getenv, "RAGDESK_API_URL"); ok {
		c.APIURL = v
	}
	if v, ok := lookup(getenv, "RAGDESK_DATA_DIR"); ok {
		c.LocalDataDir = v
	}
	if v, ok := lookup(getenv, "RAGDESK_LOG_FILE"); ok {
		c.LogFile = v
	}
	if v, ok := lookup(getenv, "RAGDESK_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(getenv, "RAGDESK_EDITOR"); ok {
		c.Editor = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RAGDESK_POLL_INTERVAL", &c.PollInterval},
		{"RAGDESK_SWEEP_INTERVAL", &c.SweepInterval},
		{"RAGDESK_STALL_TIMEOUT", &c.StallTimeout},
		{"RAGDESK_REQUEST_TIMEOUT", &c.RequestTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(getenv, d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := lookup(getenv, "RAGDESK_STALE_SWEEPS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RAGDESK_STALE_SWEEPS: %w", err)
		}
		c.StaleSweeps = n
	}
	return nil
}

// lookup distinguishes an unset variable from one set to "local", which
// clears the value (used to select the local backend).
func lookup(getenv func(string) string, key string) (string, bool) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return "", false
	}
	if v == "local" && key == "RAGDESK_API_URL" {
		return "", true
	}
	return v, true
}

// Validate checks intervals and counters
func (c Config) Validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	case c.SweepInterval <= 0:
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	case c.StallTimeout < 0:
		return fmt.Errorf("stall timeout cannot be negative, got %s", c.StallTimeout)
	case c.StaleSweeps < 1:
		return fmt.Errorf("stale sweeps must be at least 1, got %d", c.StaleSweeps)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// UseLocalBackend reports whether the SQLite backend should be used
func (c Config) UseLocalBackend() bool {
	return c.APIURL == ""
}

// DatabasePath is the SQLite file of the local backend
func (c Config) DatabasePath() string {
	return filepath.Join(ExpandHome(c.LocalDataDir), "ragdesk.db")
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
