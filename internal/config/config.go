package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/tokenizer"
	"github.com/elastickilla/elastickilla/internal/watcher"
)

// ProjectFile is the per-directory configuration file name.
const ProjectFile = ".elastickilla.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ELASTICKILLA_"

// Config represents the complete elastickilla configuration.
type Config struct {
	Version       int                  `yaml:"version" json:"version"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`
	Tokenizer     TokenizerConfig      `yaml:"tokenizer" json:"tokenizer"`
	Index         IndexConfig          `yaml:"index" json:"index"`
	Queue         QueueConfig          `yaml:"queue" json:"queue"`
	Watch         WatchConfig          `yaml:"watch" json:"watch"`
	Logging       LoggingConfig        `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig        `yaml:"metrics" json:"metrics"`
}

// SubscriptionConfig is a path subscribed at startup. A blank pattern
// matches every file.
type SubscriptionConfig struct {
	Path    string `yaml:"path" json:"path"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// String renders the subscription as path[:pattern].
func (s SubscriptionConfig) String() string {
	if s.Pattern == "" {
		return s.Path
	}
	return s.Path + ":" + s.Pattern
}

// TokenizerConfig selects how file content is split into tokens.
type TokenizerConfig struct {
	// Kind is whitespace (default), code or unicode.
	Kind      string   `yaml:"kind" json:"kind"`
	MinLength int      `yaml:"min_length" json:"min_length"`
	StopWords []string `yaml:"stop_words,omitempty" json:"stop_words,omitempty"`

	// Stem applies a Porter2 stemmer after tokenizing.
	Stem           bool     `yaml:"stem" json:"stem"`
	StemExclusions []string `yaml:"stem_exclusions,omitempty" json:"stem_exclusions,omitempty"`
}

// IndexConfig tunes content reading.
type IndexConfig struct {
	// MaxFileSize in bytes. Larger files are indexed as empty.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
	// FingerprintCache bounds the content fingerprints kept to skip
	// unchanged files. Zero disables it.
	FingerprintCache int `yaml:"fingerprint_cache" json:"fingerprint_cache"`
	// Ignore lists gitignore-style patterns for files never indexed.
	Ignore []string `yaml:"ignore,omitempty" json:"ignore,omitempty"`
	// IgnoreFile names a file inside each subscribed directory whose
	// rules are added to Ignore for that directory, e.g. ".gitignore".
	IgnoreFile string `yaml:"ignore_file,omitempty" json:"ignore_file,omitempty"`
}

// QueueConfig tunes the background task queue.
type QueueConfig struct {
	// Workers caps how many files are tokenized at once across all
	// directories. Zero means no cap.
	Workers int `yaml:"workers" json:"workers"`
}

// WatchConfig tunes directory watching. Durations are strings such as
// "100ms"; "0" disables the debouncer.
type WatchConfig struct {
	Debounce     string `yaml:"debounce" json:"debounce"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	RenameWindow string `yaml:"rename_window" json:"rename_window"`
	EventBuffer  int    `yaml:"event_buffer" json:"event_buffer"`
	ForcePolling bool   `yaml:"force_polling" json:"force_polling"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	Format    string `yaml:"format" json:"format"`
	File      string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	w := watcher.DefaultOptions()
	return &Config{
		Version:       1,
		Subscriptions: []SubscriptionConfig{},
		Tokenizer: TokenizerConfig{
			Kind: tokenizer.KindWhitespace,
		},
		Index: IndexConfig{
			MaxFileSize:      10 << 20,
			FingerprintCache: 4096,
		},
		Watch: WatchConfig{
			Debounce:     "0",
			PollInterval: w.PollInterval.String(),
			RenameWindow: w.RenameWindow.String(),
			EventBuffer:  w.EventBufferSize,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/elastickilla/config.yaml, or ~/.config/elastickilla/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "elastickilla", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "elastickilla", "config.yaml")
	}
	return filepath.Join(home, ".config", "elastickilla", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (GetUserConfigPath)
//  3. path, or .elastickilla.yaml in the working directory when path is empty
//  4. Environment variables (ELASTICKILLA_*)
//
// An explicit path that does not exist is an error; missing implicit files
// are not.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if !fileExists(path) {
			return nil, ekerrors.New(ekerrors.ErrCodeConfigNotFound, "config file not found: "+path, nil).
				WithSuggestion("Run 'elastickilla config init' to create one")
		}
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else if fileExists(ProjectFile) {
		if err := cfg.loadYAML(ProjectFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return ekerrors.New(ekerrors.ErrCodeConfigPermission, "cannot read config file "+path, err)
		}
		return ekerrors.New(ekerrors.ErrCodeConfigNotFound, "cannot read config file "+path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return ekerrors.ConfigError("cannot parse config file "+path, err).WithDetail("path", path)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Subscriptions and
// ignore patterns add up across files.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	for _, s := range other.Subscriptions {
		if !c.hasSubscription(s) {
			c.Subscriptions = append(c.Subscriptions, s)
		}
	}

	if other.Tokenizer.Kind != "" {
		c.Tokenizer.Kind = other.Tokenizer.Kind
	}
	if other.Tokenizer.MinLength != 0 {
		c.Tokenizer.MinLength = other.Tokenizer.MinLength
	}
	if len(other.Tokenizer.StopWords) > 0 {
		c.Tokenizer.StopWords = other.Tokenizer.StopWords
	}
	if other.Tokenizer.Stem {
		c.Tokenizer.Stem = true
	}
	if len(other.Tokenizer.StemExclusions) > 0 {
		c.Tokenizer.StemExclusions = other.Tokenizer.StemExclusions
	}

	if other.Index.MaxFileSize != 0 {
		c.Index.MaxFileSize = other.Index.MaxFileSize
	}
	if other.Index.FingerprintCache != 0 {
		c.Index.FingerprintCache = other.Index.FingerprintCache
	}
	for _, p := range other.Index.Ignore {
		if !slices.Contains(c.Index.Ignore, p) {
			c.Index.Ignore = append(c.Index.Ignore, p)
		}
	}
	if other.Index.IgnoreFile != "" {
		c.Index.IgnoreFile = other.Index.IgnoreFile
	}

	if other.Queue.Workers != 0 {
		c.Queue.Workers = other.Queue.Workers
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}
	if other.Watch.RenameWindow != "" {
		c.Watch.RenameWindow = other.Watch.RenameWindow
	}
	if other.Watch.EventBuffer != 0 {
		c.Watch.EventBuffer = other.Watch.EventBuffer
	}
	if other.Watch.ForcePolling {
		c.Watch.ForcePolling = true
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}

	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}

func (c *Config) hasSubscription(s SubscriptionConfig) bool {
	for _, have := range c.Subscriptions {
		if have == s {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies ELASTICKILLA_* environment variable overrides.
// A malformed number or boolean is an error rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := env("TOKENIZER"); v != "" {
		c.Tokenizer.Kind = v
	}
	if v := env("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := env("DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := env("POLL_INTERVAL"); v != "" {
		c.Watch.PollInterval = v
	}

	if v := env("STEM"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("STEM", v, err)
		}
		c.Tokenizer.Stem = b
	}
	if v := env("FORCE_POLLING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("FORCE_POLLING", v, err)
		}
		c.Watch.ForcePolling = b
	}
	if v := env("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("WORKERS", v, err)
		}
		c.Queue.Workers = n
	}
	if v := env("MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError("MAX_FILE_SIZE", v, err)
		}
		c.Index.MaxFileSize = n
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func envError(name, value string, err error) error {
	return ekerrors.ConfigError(fmt.Sprintf("invalid %s%s value %q", EnvPrefix, name, value), err)
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	for _, s := range c.Subscriptions {
		if strings.TrimSpace(s.Path) == "" {
			return ekerrors.New(ekerrors.ErrCodeInvalidPath, "subscription path is empty", nil)
		}
		if s.Pattern != "" && !doublestar.ValidatePattern(strings.ToLower(s.Pattern)) {
			return ekerrors.New(ekerrors.ErrCodeInvalidPattern,
				fmt.Sprintf("invalid pattern %q for %s", s.Pattern, s.Path), nil).
				WithSuggestion("Patterns use glob syntax, e.g. *.txt or *.{go,md}")
		}
	}

	if _, err := tokenizer.New(c.Tokenizer.ToTokenizer()); err != nil {
		return err
	}
	if c.Tokenizer.MinLength < 0 {
		return ekerrors.ConfigError(fmt.Sprintf("tokenizer.min_length must be non-negative, got %d", c.Tokenizer.MinLength), nil)
	}

	if c.Index.MaxFileSize < 0 {
		return ekerrors.ConfigError(fmt.Sprintf("index.max_file_size must be non-negative, got %d", c.Index.MaxFileSize), nil)
	}
	if c.Index.FingerprintCache < 0 {
		return ekerrors.ConfigError(fmt.Sprintf("index.fingerprint_cache must be non-negative, got %d", c.Index.FingerprintCache), nil)
	}
	if f := c.Index.IgnoreFile; f != "" && (f != filepath.Base(f) || f == "." || f == "..") {
		return ekerrors.ConfigError(fmt.Sprintf("index.ignore_file must be a file name, got %s", f), nil)
	}
	if c.Queue.Workers < 0 {
		return ekerrors.ConfigError(fmt.Sprintf("queue.workers must be non-negative, got %d", c.Queue.Workers), nil)
	}

	opts, err := c.WatchOptions()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return ekerrors.ConfigError("invalid watch settings", err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ekerrors.ConfigError(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return ekerrors.ConfigError(fmt.Sprintf("logging.format must be 'json' or 'text', got %s", c.Logging.Format), nil)
	}

	return nil
}

// ToTokenizer converts the section to a tokenizer configuration.
func (t TokenizerConfig) ToTokenizer() tokenizer.Config {
	return tokenizer.Config{
		Kind:           t.Kind,
		MinLength:      t.MinLength,
		StopWords:      t.StopWords,
		Stem:           t.Stem,
		StemExclusions: t.StemExclusions,
	}
}

// WatchOptions converts the watch section to watcher options.
func (c *Config) WatchOptions() (watcher.Options, error) {
	opts := watcher.DefaultOptions()
	var err error
	if opts.DebounceWindow, err = parseDuration("watch.debounce", c.Watch.Debounce, opts.DebounceWindow); err != nil {
		return opts, err
	}
	if opts.PollInterval, err = parseDuration("watch.poll_interval", c.Watch.PollInterval, opts.PollInterval); err != nil {
		return opts, err
	}
	if opts.RenameWindow, err = parseDuration("watch.rename_window", c.Watch.RenameWindow, opts.RenameWindow); err != nil {
		return opts, err
	}
	if c.Watch.EventBuffer != 0 {
		opts.EventBufferSize = c.Watch.EventBuffer
	}
	opts.ForcePolling = c.Watch.ForcePolling
	return opts, nil
}

// parseDuration parses a duration setting. Empty keeps def; a bare "0"
// is zero.
func parseDuration(field, s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, ekerrors.ConfigError(fmt.Sprintf("%s: invalid duration %q", field, s), err).
			WithSuggestion("Use a duration such as 100ms, 2s or 0")
	}
	return d, nil
}

// ParseSubscription parses path[:pattern]. A colon in a Windows drive
// prefix is not a separator.
func ParseSubscription(s string) SubscriptionConfig {
	s = strings.TrimSpace(s)
	start := 0
	if len(s) >= 2 && s[1] == ':' {
		start = 2
	}
	if i := strings.LastIndex(s[start:], ":"); i >= 0 {
		i += start
		return SubscriptionConfig{Path: s[:i], Pattern: s[i+1:]}
	}
	return SubscriptionConfig{Path: s}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
