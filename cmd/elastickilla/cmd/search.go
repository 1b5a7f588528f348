package cmd

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	jsonOutput bool
	noWait     bool
}

// searchResult is the --json output of search.
type searchResult struct {
	Query string   `json:"query"`
	Files []string `json:"files"`
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query> [path[:pattern]...]",
		Short: "Index paths once and print the files containing a word",
		Long: `Subscribe to the given paths and the config's subscriptions, wait until
every file is indexed, print the files whose tokens include <query> and
exit.

With --no-wait the query runs as soon as the scans are queued and sees
whatever was indexed by then.`,
		Example: `  elastickilla search TODO ./src
  elastickilla search error ./logs:*.log --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, args[0], args[1:], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Search without waiting for indexing to finish")

	return cmd
}

func runSearch(cmd *cobra.Command, a *app, query string, paths []string, opts searchOptions) error {
	subs := subscriptions(a.cfg, paths)
	if len(subs) == 0 {
		return ekerrors.ValidationError("no paths to search", nil).
			WithSuggestion("Pass a path after the query or add subscriptions to the config")
	}

	ctx := cmd.Context()
	an, err := newAnalyzer(a.cfg, nil, a.logger)
	if err != nil {
		return err
	}
	defer closeAnalyzer(an, a.logger)

	if err := subscribeAll(ctx, an, subs, nil); err != nil {
		return err
	}

	start := time.Now()
	var files []string
	if opts.noWait {
		files = an.Search(query)
	} else {
		files, err = an.DelayedSearch(ctx, query)
		if err != nil {
			return err
		}
	}
	a.logger.Info("search complete",
		slog.String("query", query),
		slog.Int("results", len(files)),
		slog.Duration("took", time.Since(start)))

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(searchResult{Query: query, Files: files})
	}
	a.printer(cmd).SearchResults(query, files)
	return nil
}
