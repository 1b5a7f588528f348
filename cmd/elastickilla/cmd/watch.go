package cmd

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/elastickilla/elastickilla/internal/analyzer"
	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/metrics"
	"github.com/elastickilla/elastickilla/internal/ui"
)

// progressInterval is how often watch redraws its progress line.
const progressInterval = 500 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch [path[:pattern]...]",
		Short: "Keep directories indexed until interrupted",
		Long: `Subscribe to the given paths and the config's subscriptions, then keep
the index current until SIGINT or SIGTERM.

Index activity is logged to stderr. While files are being indexed a
progress line shows throughput and the estimated time left. With
--metrics-addr (or metrics.addr in the config) Prometheus metrics are
served at /metrics.`,
		Example: `  # Watch two trees
  elastickilla watch ./docs ./src:**/*.go

  # Watch the config's subscriptions and expose metrics
  elastickilla watch --metrics-addr :9090`,
		Annotations: map[string]string{annLogMode: logModeVerbose},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, a, args, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show indexing progress")

	return cmd
}

func runWatch(cmd *cobra.Command, a *app, args []string, quiet bool) error {
	subs := subscriptions(a.cfg, args)
	if len(subs) == 0 {
		return ekerrors.ValidationError("nothing to watch", nil).
			WithSuggestion("Pass a path or add subscriptions to the config")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ln net.Listener
	if addr := a.cfg.Metrics.Addr; addr != "" {
		var err error
		if ln, err = metrics.Listen(addr); err != nil {
			return err
		}
		defer func() { _ = ln.Close() }()
	}

	m := metrics.New()
	an, err := newAnalyzer(a.cfg, m, a.logger)
	if err != nil {
		return err
	}
	defer closeAnalyzer(an, a.logger)

	printer := a.printer(cmd)
	if err := subscribeAll(ctx, an, subs, printer.Subscribing); err != nil {
		return err
	}
	a.logger.Info("watching", slog.Int("subscriptions", len(an.Subscriptions())))

	g, gctx := errgroup.WithContext(ctx)
	if ln != nil {
		g.Go(func() error {
			return metrics.ServeListener(gctx, ln, m)
		})
	}
	if !quiet {
		g.Go(func() error {
			return reportProgress(gctx, an, printer, progressInterval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	a.logger.Info("stopping", slog.Int("resources", an.Stats().Resources))
	return err
}

// reportProgress draws a progress line for each burst of indexing work
// until ctx is done. A burst starts when the queue has pending tasks and
// ends when it drains.
func reportProgress(ctx context.Context, an *analyzer.FileAnalyzer, p *ui.Printer, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var (
		tracker *ui.ProgressTracker
		base    int64 // tasks finished before the burst
	)
	for {
		select {
		case <-ctx.Done():
			if tracker != nil {
				p.EndProgress()
			}
			return nil
		case <-ticker.C:
		}

		q := an.Stats().Queue
		finished := q.Completed + q.Canceled + q.Failed
		if tracker == nil {
			if q.Pending == 0 {
				continue
			}
			tracker = ui.NewProgressTracker()
			base = finished
		}

		tracker.Update(int(finished-base), int(q.Submitted-base))
		p.Progress(tracker.Stats())
		if q.Pending == 0 {
			p.EndProgress()
			tracker = nil
		}
	}
}
