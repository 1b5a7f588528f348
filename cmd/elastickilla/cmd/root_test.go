package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/logging"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command
	isolate(t)

	// When: executing with --help
	out, err := execute(t, "", "--help")

	// Then: it should show usage information
	require.NoError(t, err)
	assert.Contains(t, out, "elastickilla")
	assert.Contains(t, out, "interactive shell")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"shell", "watch", "search", "status", "config", "logs", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{
		"config", "debug", "log-level", "log-file", "metrics-addr",
		"no-color", "cpu-profile", "mem-profile", "trace",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "elastickilla version")
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	// Given: an explicit config path that does not exist
	isolate(t)
	dir := writeTree(t, map[string]string{"a.txt": "a"})

	// When: running a command that loads config
	_, err := execute(t, "", "--config", "missing.yaml", "search", "a", dir)

	// Then: the structured not-found error comes back
	require.Error(t, err)
	assert.Equal(t, ekerrors.ErrCodeConfigNotFound, ekerrors.GetCode(err))
}

func TestRootCmd_Profiling(t *testing.T) {
	// Given: every profile requested
	isolate(t)
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")
	trace := filepath.Join(dir, "trace.out")

	// When: running a command
	_, err := execute(t, "", "--cpu-profile", cpu, "--mem-profile", heap, "--trace", trace, "version")

	// Then: each profile was written when the command finished
	require.NoError(t, err)
	for _, p := range []string{cpu, heap, trace} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size(), p)
	}
}

func TestRootCmd_DebugLogsToFile(t *testing.T) {
	// Given: --debug and an indexing command
	isolate(t)
	dir := writeTree(t, map[string]string{"a.txt": "alpha"})

	// When: it runs
	_, err := execute(t, "", "--debug", "search", "alpha", dir)
	require.NoError(t, err)

	// Then: debug records landed in the default log file
	data, err := os.ReadFile(logging.DefaultLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
	assert.Contains(t, string(data), `"component":"analyzer"`)
}

func TestApp_LoggingConfig(t *testing.T) {
	tests := []struct {
		name      string
		opts      globalOptions
		wantLevel string
		wantFile  string
	}{
		{"config file", globalOptions{}, "info", ""},
		{"log level flag", globalOptions{logLevel: "error"}, "error", ""},
		{"log file flag", globalOptions{logFile: "/tmp/ek.log"}, "info", "/tmp/ek.log"},
		{"debug", globalOptions{debug: true}, "debug", logging.DefaultLogPath()},
		{"debug beats level", globalOptions{debug: true, logLevel: "warn", logFile: "/tmp/ek.log"}, "debug", "/tmp/ek.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, a := newRootCmd()
			a.opts = tt.opts

			got := a.loggingConfig()

			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantFile, got.FilePath)
			assert.True(t, got.WriteToStderr)
		})
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "structured",
			err:  ekerrors.ValidationError("nothing to watch", nil).WithSuggestion("Pass a path"),
			want: "Error: nothing to watch\n  Hint: Pass a path\n  Code: ERR_401_INVALID_INPUT\n",
		},
		{
			name: "plain",
			err:  errors.New(`unknown flag: --bogus`),
			want: "Error: unknown flag: --bogus\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
