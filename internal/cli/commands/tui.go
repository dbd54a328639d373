package commands

import (
	"github.com/spf13/cobra"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/render"
	"github.com/jlllyfish/Moose-railway/internal/tui"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Build a URL interactively in the terminal",
		Long: `Walk through the builder in the terminal: token, document, table, column,
then generate and optionally test the URL. Calls go to the proxy at
proxy_url (default: the local server).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			ctx := cmd.Context()

			opts := tui.Options{
				In:     cmd.InOrStdin(),
				Out:    cmd.OutOrStdout(),
				Styles: render.DefaultStyles(),
				Logger: c.Logger,
			}

			store, err := c.OpenHistory(ctx)
			if err != nil {
				c.Logger.Warn("history unavailable", "error", err)
			} else if store != nil {
				defer func() { _ = store.Close() }()
				opts.Pipeline = append(opts.Pipeline, pipeline.WithGenerationHook(store.RecordGeneration))
			}

			return tui.Run(ctx, c.API, opts)
		},
	}
}
