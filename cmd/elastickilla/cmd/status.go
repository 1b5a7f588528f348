package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/elastickilla/elastickilla/internal/shell"
	"github.com/elastickilla/elastickilla/internal/ui"
)

func newStatusCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [path[:pattern]...]",
		Short: "Index paths once and show index statistics",
		Long: `Subscribe to the given paths and the config's subscriptions, wait until
every file is indexed and show the size of the index, the queue counters
and the subscriptions.`,
		Example: `  elastickilla status ./src
  elastickilla status --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, a, args, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, a *app, args []string, jsonOutput bool) error {
	ctx := cmd.Context()
	started := time.Now()

	an, err := newAnalyzer(a.cfg, nil, a.logger)
	if err != nil {
		return err
	}
	defer closeAnalyzer(an, a.logger)

	if err := subscribeAll(ctx, an, subscriptions(a.cfg, args), nil); err != nil {
		return err
	}
	if err := an.Drain(ctx); err != nil {
		return err
	}

	info := shell.StatusInfo(an)
	info.Tokenizer = a.cfg.Tokenizer.Kind
	info.MaxFileSize = a.cfg.Index.MaxFileSize
	info.StartedAt = started

	noColor := a.opts.noColor || !ui.NewConfig(cmd.OutOrStdout()).Color()
	r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)
	if jsonOutput {
		return r.RenderJSON(info)
	}
	return r.Render(info)
}
