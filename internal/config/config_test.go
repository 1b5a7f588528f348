package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

// isolate points the user config at an empty directory and moves into an
// empty working directory, so no real config leaks into a test.
func isolate(t *testing.T) (userDir, workDir string) {
	t.Helper()
	userDir = t.TempDir()
	workDir = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userDir)
	t.Chdir(workDir)
	return userDir, workDir
}

func writeUserConfig(t *testing.T, userDir, content string) {
	t.Helper()
	dir := filepath.Join(userDir, "elastickilla")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Empty(t, cfg.Subscriptions)
	assert.Equal(t, "whitespace", cfg.Tokenizer.Kind)
	assert.False(t, cfg.Tokenizer.Stem)
	assert.Equal(t, int64(10<<20), cfg.Index.MaxFileSize)
	assert.Equal(t, 4096, cfg.Index.FingerprintCache)
	assert.Zero(t, cfg.Queue.Workers)
	assert.Equal(t, "0", cfg.Watch.Debounce)
	assert.Equal(t, "2s", cfg.Watch.PollInterval)
	assert.Equal(t, "100ms", cfg.Watch.RenameWindow)
	assert.Equal(t, 1000, cfg.Watch.EventBuffer)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	// Given: no user or project config
	isolate(t)

	// When: loading configuration
	cfg, err := Load("")

	// Then: defaults are returned without error
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFile_OverridesDefaults(t *testing.T) {
	// Given: a .elastickilla.yaml in the working directory
	_, workDir := isolate(t)
	content := `
version: 1
subscriptions:
  - path: /srv/docs
    pattern: "*.md"
  - path: /srv/notes
tokenizer:
  kind: code
  min_length: 3
  stem: true
index:
  max_file_size: 2048
queue:
  workers: 2
watch:
  debounce: 50ms
  force_polling: true
logging:
  level: debug
metrics:
  addr: 127.0.0.1:9100
`
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ProjectFile), []byte(content), 0o644))

	// When: loading configuration
	cfg, err := Load("")

	// Then: all overrides are applied and untouched values keep defaults
	require.NoError(t, err)
	assert.Equal(t, []SubscriptionConfig{
		{Path: "/srv/docs", Pattern: "*.md"},
		{Path: "/srv/notes"},
	}, cfg.Subscriptions)
	assert.Equal(t, "code", cfg.Tokenizer.Kind)
	assert.Equal(t, 3, cfg.Tokenizer.MinLength)
	assert.True(t, cfg.Tokenizer.Stem)
	assert.Equal(t, int64(2048), cfg.Index.MaxFileSize)
	assert.Equal(t, 4096, cfg.Index.FingerprintCache)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, "50ms", cfg.Watch.Debounce)
	assert.True(t, cfg.Watch.ForcePolling)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestLoad_ExplicitPath(t *testing.T) {
	// Given: a config file outside the working directory
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue:\n  workers: 7\n"), 0o644))

	// When: loading it explicitly
	cfg, err := Load(path)

	// Then: it is used
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Queue.Workers)
}

func TestLoad_ExplicitPathMissing_ReturnsError(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeConfigNotFound, ekerrors.GetCode(err))
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	// Given: a malformed project config
	_, workDir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ProjectFile), []byte("queue: [unclosed"), 0o644))

	// When: loading configuration
	_, err := Load("")

	// Then: a config error is returned
	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeConfigInvalid, ekerrors.GetCode(err))
}

func TestLoad_InvalidFieldType_ReturnsError(t *testing.T) {
	_, workDir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ProjectFile), []byte("queue:\n  workers: many\n"), 0o644))

	_, err := Load("")

	require.Error(t, err)
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	// Given: a user config with a subscription and a tokenizer
	userDir, _ := isolate(t)
	writeUserConfig(t, userDir, "subscriptions:\n  - path: /home/me/notes\ntokenizer:\n  kind: unicode\n")

	// When: loading configuration
	cfg, err := Load("")

	// Then: user config values are applied
	require.NoError(t, err)
	assert.Equal(t, []SubscriptionConfig{{Path: "/home/me/notes"}}, cfg.Subscriptions)
	assert.Equal(t, "unicode", cfg.Tokenizer.Kind)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	// Given: both user and project configs exist
	userDir, workDir := isolate(t)
	writeUserConfig(t, userDir, `
subscriptions:
  - path: /a
tokenizer:
  kind: unicode
  min_length: 2
`)
	project := `
subscriptions:
  - path: /a
  - path: /b
    pattern: "*.txt"
tokenizer:
  kind: code
`
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ProjectFile), []byte(project), 0o644))

	// When: loading configuration
	cfg, err := Load("")

	// Then: project values win, untouched user values stay and
	// subscriptions add up without duplicates
	require.NoError(t, err)
	assert.Equal(t, "code", cfg.Tokenizer.Kind)
	assert.Equal(t, 2, cfg.Tokenizer.MinLength)
	assert.Equal(t, []SubscriptionConfig{{Path: "/a"}, {Path: "/b", Pattern: "*.txt"}}, cfg.Subscriptions)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	// Given: a project config and environment overrides
	_, workDir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ProjectFile),
		[]byte("logging:\n  level: warn\nqueue:\n  workers: 2\n"), 0o644))
	t.Setenv("ELASTICKILLA_LOG_LEVEL", "debug")
	t.Setenv("ELASTICKILLA_LOG_FORMAT", "text")
	t.Setenv("ELASTICKILLA_WORKERS", "5")
	t.Setenv("ELASTICKILLA_TOKENIZER", "unicode")
	t.Setenv("ELASTICKILLA_STEM", "true")
	t.Setenv("ELASTICKILLA_FORCE_POLLING", "1")
	t.Setenv("ELASTICKILLA_MAX_FILE_SIZE", "4096")
	t.Setenv("ELASTICKILLA_DEBOUNCE", "20ms")
	t.Setenv("ELASTICKILLA_POLL_INTERVAL", "500ms")
	t.Setenv("ELASTICKILLA_METRICS_ADDR", ":9200")

	// When: loading configuration
	cfg, err := Load("")

	// Then: the environment takes precedence
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 5, cfg.Queue.Workers)
	assert.Equal(t, "unicode", cfg.Tokenizer.Kind)
	assert.True(t, cfg.Tokenizer.Stem)
	assert.True(t, cfg.Watch.ForcePolling)
	assert.Equal(t, int64(4096), cfg.Index.MaxFileSize)
	assert.Equal(t, "20ms", cfg.Watch.Debounce)
	assert.Equal(t, "500ms", cfg.Watch.PollInterval)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
}

func TestLoad_EnvVarMalformed_ReturnsError(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"workers", "ELASTICKILLA_WORKERS", "lots"},
		{"stem", "ELASTICKILLA_STEM", "maybe"},
		{"force polling", "ELASTICKILLA_FORCE_POLLING", "sometimes"},
		{"max file size", "ELASTICKILLA_MAX_FILE_SIZE", "1GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")

			require.Error(t, err)
			assert.Equal(t, ekerrors.ErrCodeConfigInvalid, ekerrors.GetCode(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_EnvVarBlank_DoesNotOverride(t *testing.T) {
	isolate(t)
	t.Setenv("ELASTICKILLA_LOG_LEVEL", "  ")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_IgnoreRulesAccumulate(t *testing.T) {
	// Given: user and project configs both listing ignore patterns
	userDir, workDir := isolate(t)
	writeUserConfig(t, userDir, "index:\n  ignore: [\"*.log\", \"*.tmp\"]\n")
	project := "index:\n  ignore: [\"*.tmp\", \"*.bak\"]\n  ignore_file: .gitignore\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ProjectFile), []byte(project), 0o644))

	// When: loading configuration
	cfg, err := Load("")

	// Then: patterns add up without duplicates and the file name is set
	require.NoError(t, err)
	assert.Equal(t, []string{"*.log", "*.tmp", "*.bak"}, cfg.Index.Ignore)
	assert.Equal(t, ".gitignore", cfg.Index.IgnoreFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantCode string
	}{
		{"blank subscription path", func(c *Config) {
			c.Subscriptions = []SubscriptionConfig{{Path: " "}}
		}, ekerrors.ErrCodeInvalidPath},
		{"bad subscription pattern", func(c *Config) {
			c.Subscriptions = []SubscriptionConfig{{Path: "/a", Pattern: "[a-"}}
		}, ekerrors.ErrCodeInvalidPattern},
		{"unknown tokenizer", func(c *Config) { c.Tokenizer.Kind = "morse" }, ekerrors.ErrCodeInvalidInput},
		{"negative min length", func(c *Config) { c.Tokenizer.MinLength = -1 }, ekerrors.ErrCodeConfigInvalid},
		{"negative max file size", func(c *Config) { c.Index.MaxFileSize = -1 }, ekerrors.ErrCodeConfigInvalid},
		{"negative fingerprint cache", func(c *Config) { c.Index.FingerprintCache = -1 }, ekerrors.ErrCodeConfigInvalid},
		{"ignore file with directory", func(c *Config) { c.Index.IgnoreFile = "sub/.gitignore" }, ekerrors.ErrCodeConfigInvalid},
		{"ignore file parent", func(c *Config) { c.Index.IgnoreFile = ".." }, ekerrors.ErrCodeConfigInvalid},
		{"negative workers", func(c *Config) { c.Queue.Workers = -1 }, ekerrors.ErrCodeConfigInvalid},
		{"bad duration", func(c *Config) { c.Watch.Debounce = "soon" }, ekerrors.ErrCodeConfigInvalid},
		{"negative duration", func(c *Config) { c.Watch.PollInterval = "-1s" }, ekerrors.ErrCodeConfigInvalid},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, ekerrors.ErrCodeConfigInvalid},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ekerrors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: defaults with one bad value
			cfg := NewConfig()
			tt.mutate(cfg)

			// When: validating
			err := cfg.Validate()

			// Then: the matching code is reported
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ekerrors.GetCode(err))
		})
	}
}

func TestWatchOptions(t *testing.T) {
	// Given: custom watch settings
	cfg := NewConfig()
	cfg.Watch = WatchConfig{
		Debounce:     "25ms",
		PollInterval: "1s",
		RenameWindow: "",
		EventBuffer:  10,
		ForcePolling: true,
	}

	// When: converting
	opts, err := cfg.WatchOptions()

	// Then: blank settings keep the watcher defaults
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, time.Second, opts.PollInterval)
	assert.Equal(t, 100*time.Millisecond, opts.RenameWindow)
	assert.Equal(t, 10, opts.EventBufferSize)
	assert.True(t, opts.ForcePolling)
}

func TestTokenizerConfig_ToTokenizer(t *testing.T) {
	tc := TokenizerConfig{Kind: "code", MinLength: 2, StopWords: []string{"the"}, Stem: true, StemExclusions: []string{"news"}}

	got := tc.ToTokenizer()

	assert.Equal(t, "code", got.Kind)
	assert.Equal(t, 2, got.MinLength)
	assert.Equal(t, []string{"the"}, got.StopWords)
	assert.True(t, got.Stem)
	assert.Equal(t, []string{"news"}, got.StemExclusions)
}

func TestParseSubscription(t *testing.T) {
	tests := []struct {
		in   string
		want SubscriptionConfig
	}{
		{"/srv/docs", SubscriptionConfig{Path: "/srv/docs"}},
		{"/srv/docs:*.md", SubscriptionConfig{Path: "/srv/docs", Pattern: "*.md"}},
		{"  ./notes:*.{txt,md}  ", SubscriptionConfig{Path: "./notes", Pattern: "*.{txt,md}"}},
		{`C:\docs`, SubscriptionConfig{Path: `C:\docs`}},
		{`C:\docs:*.txt`, SubscriptionConfig{Path: `C:\docs`, Pattern: "*.txt"}},
		{"/srv/docs:", SubscriptionConfig{Path: "/srv/docs"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSubscription(tt.in))
			assert.Equal(t, tt.want.Path, ParseSubscription(tt.want.String()).Path)
		})
	}
}

func TestGetUserConfigPath(t *testing.T) {
	t.Run("respects XDG_CONFIG_HOME", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)

		assert.Equal(t, filepath.Join(dir, "elastickilla", "config.yaml"), GetUserConfigPath())
		assert.Equal(t, filepath.Join(dir, "elastickilla"), GetUserConfigDir())
		assert.False(t, UserConfigExists())
	})

	t.Run("defaults to ~/.config", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(home, ".config", "elastickilla", "config.yaml"), GetUserConfigPath())
	})
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	// Given: a customized config
	isolate(t)
	cfg := NewConfig()
	cfg.Subscriptions = []SubscriptionConfig{{Path: "/srv", Pattern: "*.log"}}
	cfg.Tokenizer.Kind = "unicode"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	// When: writing and loading it back
	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := Load(path)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, cfg.Subscriptions, loaded.Subscriptions)
	assert.Equal(t, "unicode", loaded.Tokenizer.Kind)
}
