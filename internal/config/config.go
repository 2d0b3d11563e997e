package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-project configuration directory.
const DirName = ".postdeck"

// Config holds all postdeck configuration.
type Config struct {
	// Directory holding the posts (*.mdx, *.md)
	PostsDir string `yaml:"posts_dir"`

	// Presenter behaviour
	Presenter PresenterConfig `yaml:"presenter"`

	// Slide graphics manifests
	Manifest ManifestConfig `yaml:"manifest"`

	// External media playback
	Media MediaConfig `yaml:"media"`

	// Presenter remote API
	Remote RemoteConfig `yaml:"remote"`

	// Position store
	Store StoreConfig `yaml:"store"`

	// Live reload
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ManifestConfig configures manifest fetching.
type ManifestConfig struct {
	Timeout     string `yaml:"timeout"`
	Concurrency int    `yaml:"concurrency"` // Max manifests fetched at once
}

// MediaConfig configures clip playback.
type MediaConfig struct {
	// Player command; the clip file is appended as the last argument.
	// Empty disables playback.
	Player []string `yaml:"player"`
}

// RemoteConfig configures the presenter remote.
type RemoteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StoreConfig configures the position store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"` // Relative paths resolve against the config dir
}

// WatchConfig configures live reload.
type WatchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PostsDir:  "posts",
		Presenter: *DefaultPresenterConfig(),

		Manifest: ManifestConfig{
			Timeout:     "10s",
			Concurrency: 4,
		},

		Remote: RemoteConfig{
			Enabled: false,
			Addr:    "127.0.0.1:7777",
		},

		Store: StoreConfig{
			DatabasePath: "positions.db",
		},

		Watch: WatchConfig{
			Enabled:  true,
			Debounce: "300ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns .postdeck/config.yaml under the working directory.
func DefaultPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(DirName, "config.yaml")
	}
	return filepath.Join(cwd, DirName, "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies POSTDECK_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("POSTDECK_POSTS"); dir != "" {
		c.PostsDir = dir
	}
	if path := os.Getenv("POSTDECK_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if addr := os.Getenv("POSTDECK_REMOTE_ADDR"); addr != "" {
		c.Remote.Addr = addr
		c.Remote.Enabled = true
	}
	if player := os.Getenv("POSTDECK_PLAYER"); player != "" {
		c.Media.Player = strings.Fields(player)
	}
	if v := os.Getenv("POSTDECK_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
		}
	}
	if level := os.Getenv("POSTDECK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetManifestTimeout returns the manifest fetch timeout as a duration.
func (c *Config) GetManifestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Manifest.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetWatchDebounce returns the live reload debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// DatabasePath resolves the store path against the config directory.
func (c *Config) DatabasePath(configDir string) string {
	if c.Store.DatabasePath == "" || filepath.IsAbs(c.Store.DatabasePath) {
		return c.Store.DatabasePath
	}
	return filepath.Join(configDir, c.Store.DatabasePath)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.PostsDir == "" {
		return fmt.Errorf("posts_dir not configured (set posts_dir or POSTDECK_POSTS)")
	}
	if err := c.Presenter.Validate(); err != nil {
		return err
	}
	if c.Manifest.Concurrency < 0 {
		return fmt.Errorf("invalid manifest.concurrency: %d", c.Manifest.Concurrency)
	}
	for name, v := range map[string]string{
		"manifest.timeout": c.Manifest.Timeout,
		"watch.debounce":   c.Watch.Debounce,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %q", name, v)
		}
	}
	if c.Remote.Enabled && c.Remote.Addr == "" {
		return fmt.Errorf("remote.enabled requires remote.addr")
	}
	if !isValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	return nil
}
