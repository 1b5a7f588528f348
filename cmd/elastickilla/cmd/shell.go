package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/metrics"
	"github.com/elastickilla/elastickilla/internal/shell"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell [path[:pattern]...]",
		Short: "Start the interactive shell",
		Long: `Start the interactive shell.

The paths given here and the subscriptions in the config are subscribed
before the first prompt. Type 'help' at the prompt for the commands.

Logs go to the log file only (~/.elastickilla/logs/elastickilla.log by
default) so they do not interleave with the prompt.`,
		Example: `  # Index the current directory and start querying
  elastickilla shell .

  # Only Go files
  elastickilla shell ./src:**/*.go

  # Feed commands from a file
  elastickilla shell < commands.txt`,
		Annotations: map[string]string{annLogMode: logModeShell},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, a, args)
		},
	}
}

func runShell(cmd *cobra.Command, a *app, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := metrics.New()
	an, err := newAnalyzer(a.cfg, m, a.logger)
	if err != nil {
		return err
	}
	defer closeAnalyzer(an, a.logger)

	printer := a.printer(cmd)
	if err := subscribeAll(ctx, an, subscriptions(a.cfg, args), printer.Subscribing); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			// The shell owns the terminal; a failed listener is only logged.
			if err := metrics.Serve(gctx, addr, m); err != nil {
				a.logger.Error("metrics server stopped", ekerrors.LogAttrs(err)...)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		reader := shell.NewReader(cmd.InOrStdin(), cmd.OutOrStdout(), shell.HistoryPath())
		defer func() { _ = reader.Close() }()

		sh := shell.New(an, reader, printer,
			shell.WithLogger(a.logger),
			shell.WithTokenizerName(a.cfg.Tokenizer.Kind))
		a.logger.Info("shell started", slog.Int("subscriptions", len(an.Subscriptions())))
		return sh.Run(gctx)
	})
	return g.Wait()
}
