// Package cmd provides the CLI commands for elastickilla.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/elastickilla/elastickilla/internal/config"
	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/logging"
	"github.com/elastickilla/elastickilla/internal/profiling"
	"github.com/elastickilla/elastickilla/internal/ui"
	"github.com/elastickilla/elastickilla/pkg/version"
)

// Command annotations read by the persistent pre-run. They apply to the
// annotated command only, not to its subcommands.
const (
	// annLogMode selects where logs go: logModeShell (file only),
	// logModeVerbose (stderr at the configured level) or, by default,
	// stderr at warn and above.
	annLogMode     = "elastickilla/log-mode"
	logModeShell   = "shell"
	logModeVerbose = "verbose"

	// annSkipConfig runs the command on defaults without loading config
	// files, so a broken file can still be inspected or replaced.
	annSkipConfig = "elastickilla/skip-config"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath  string
	debug       bool
	logLevel    string
	logFile     string
	metricsAddr string
	noColor     bool
	cpuProfile  string
	memProfile  string
	trace       string
}

// app is the state shared by one command run: flags, the loaded config and
// the hooks that undo the pre-run.
type app struct {
	opts   globalOptions
	cfg    *config.Config
	logger *slog.Logger

	stopProfiling func() error
	stopLogging   func()
}

// NewRootCmd creates the root command for the elastickilla CLI.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{cfg: config.NewConfig(), logger: slog.Default()}

	cmd := &cobra.Command{
		Use:   "elastickilla",
		Short: "Live full-text index over watched directories",
		Long: `ElasticKilla keeps an in-memory inverted index of the files in the
directories you subscribe to and answers "which files contain this word?"
while they change on disk.

Run 'elastickilla' with no command to start the interactive shell.`,
		Version:       version.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{annLogMode: logModeShell},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, a, args)
		},
	}

	cmd.SetVersionTemplate("elastickilla version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "Config file (default: .elastickilla.yaml in the working directory)")
	flags.BoolVar(&a.opts.debug, "debug", false, "Enable debug logging to ~/.elastickilla/logs/")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.opts.logFile, "log-file", "", "Write logs to this file")
	flags.StringVar(&a.opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVar(&a.opts.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&a.opts.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	flags.StringVar(&a.opts.memProfile, "mem-profile", "", "Write memory profile to file")
	flags.StringVar(&a.opts.trace, "trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = a.preRun
	cmd.PersistentPostRunE = a.postRun

	cmd.AddCommand(newShellCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd, a
}

// Execute runs the root command and prints any error for the terminal.
func Execute() error {
	cmd, a := newRootCmd()
	err := cmd.Execute()
	// The post-run hook is skipped when a command fails.
	if stopErr := a.postRun(cmd, nil); err == nil {
		err = stopErr
	}
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

// printError writes err the way the terminal expects it. Structured errors
// carry a hint and a code; usage errors from cobra are printed as they are.
func printError(w io.Writer, err error) {
	var e *ekerrors.Error
	if errors.As(err, &e) {
		fmt.Fprint(w, ekerrors.FormatForCLI(err))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// preRun loads the configuration, sets up logging and starts profiling.
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if cmd.Annotations[annSkipConfig] == "" {
		loaded, err := config.Load(a.opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.opts.metricsAddr != "" {
		cfg.Metrics.Addr = a.opts.metricsAddr
	}
	a.cfg = cfg

	logCfg := a.loggingConfig()
	var err error
	switch cmd.Annotations[annLogMode] {
	case logModeShell:
		a.stopLogging, err = logging.SetupShellMode(logCfg)
	case logModeVerbose:
		a.stopLogging, err = logging.SetupDefault(logCfg)
	default:
		if !a.opts.debug && a.opts.logLevel == "" && logging.LevelFromString(logCfg.Level) < slog.LevelWarn {
			logCfg.Level = "warn"
		}
		a.stopLogging, err = logging.SetupDefault(logCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = slog.Default()
	if a.opts.debug {
		a.logger.Debug("debug logging enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Short()))
	}

	a.stopProfiling, err = profiling.Start(profiling.Options{
		CPUPath:   a.opts.cpuProfile,
		HeapPath:  a.opts.memProfile,
		TracePath: a.opts.trace,
	})
	if err != nil {
		a.stopLogging()
		a.stopLogging = nil
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	return nil
}

// postRun stops profiling and flushes the log file. It is safe to call
// more than once.
func (a *app) postRun(_ *cobra.Command, _ []string) error {
	var err error
	if a.stopProfiling != nil {
		err = a.stopProfiling()
		a.stopProfiling = nil
	}
	if a.stopLogging != nil {
		a.stopLogging()
		a.stopLogging = nil
	}
	if err != nil {
		return fmt.Errorf("failed to stop profiling: %w", err)
	}
	return nil
}

// loggingConfig merges the logging flags over the config file's section.
func (a *app) loggingConfig() logging.Config {
	lc := a.cfg.Logging
	cfg := logging.Config{
		Level:         lc.Level,
		Format:        lc.Format,
		FilePath:      lc.File,
		MaxSizeMB:     lc.MaxSizeMB,
		MaxFiles:      lc.MaxFiles,
		WriteToStderr: true,
	}
	if a.opts.logLevel != "" {
		cfg.Level = a.opts.logLevel
	}
	if a.opts.logFile != "" {
		cfg.FilePath = a.opts.logFile
	}
	if a.opts.debug {
		cfg.Level = "debug"
		if cfg.FilePath == "" {
			cfg.FilePath = logging.DefaultLogPath()
		}
	}
	return cfg
}

// printer writes user-facing output for cmd.
func (a *app) printer(cmd *cobra.Command) *ui.Printer {
	return ui.NewPrinter(ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(a.opts.noColor)))
}
