package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/logging"
)

type logsOptions struct {
	follow    bool
	lines     int
	level     string
	grep      string
	component string
	file      string
}

func newLogsCmd(a *app) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show elastickilla logs",
		Long: `Show the last lines of the JSON log file, or follow it with -f.

The file is --file, else the global --log-file, else
~/.elastickilla/logs/elastickilla.log.`,
		Example: `  elastickilla logs                     # Last 50 lines
  elastickilla logs -f                  # Follow in real time
  elastickilla logs --level warn        # Warnings and errors only
  elastickilla logs --component queue   # Only the task queue
  elastickilla logs --grep subscribe    # Lines matching a pattern`,
		Annotations: map[string]string{annSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.file == "" {
				opts.file = a.opts.logFile
			}
			return runLogs(cmd, a, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.grep, "grep", "", "Only lines matching this regular expression")
	cmd.Flags().StringVar(&opts.component, "component", "", "Only this component (analyzer, queue, indexer, watcher)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to log file")

	return cmd
}

func runLogs(cmd *cobra.Command, a *app, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return ekerrors.New(ekerrors.ErrCodeFileNotFound, err.Error(), nil)
	}

	var pattern *regexp.Regexp
	if opts.grep != "" {
		pattern, err = regexp.Compile(opts.grep)
		if err != nil {
			return ekerrors.ValidationError("invalid --grep pattern", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:     opts.level,
		Pattern:   pattern,
		Component: opts.component,
		NoColor:   a.opts.noColor || !a.printer(cmd).Styled(),
	}, cmd.OutOrStdout())

	if opts.follow {
		fmt.Fprintf(cmd.ErrOrStderr(), "Following %s (Ctrl+C to stop)\n", path)
		return followLogs(cmd.Context(), cmd, viewer, path)
	}

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

func followLogs(ctx context.Context, cmd *cobra.Command, viewer *logging.Viewer, path string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			fmt.Fprintln(cmd.OutOrStdout(), viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			<-errCh
			return nil
		}
	}
}
