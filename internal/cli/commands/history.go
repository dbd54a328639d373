package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlllyfish/Moose-railway/internal/cli/output"
	"github.com/jlllyfish/Moose-railway/internal/history"
)

var errHistoryDisabled = errors.New("history is disabled (history.enabled: false)")

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear generated URL templates",
		Long: `Templates generated by "moose generate", the web UI and the TUI are kept
in a local SQLite database. Credentials are never stored.`,
	}
	cmd.AddCommand(newHistoryListCommand(), newHistoryClearCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded templates, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			store, err := c.OpenHistory(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer func() { _ = store.Close() }()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(c.Renderer, entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	return cmd
}

func printHistory(r *output.Renderer, entries []history.Entry) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(entries)
	}
	if len(entries) == 0 {
		r.Muted("No templates recorded yet")
		return nil
	}

	r.Header(1, fmt.Sprintf("History (%d)", len(entries)))
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.CreatedAt.Local().Format(time.DateTime),
			e.DocID,
			e.Table,
			e.Column,
			e.URL,
		}
	}
	r.Table([]string{"When", "Document", "Table", "Column", "URL"}, rows)
	return nil
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			store, err := c.OpenHistory(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer func() { _ = store.Close() }()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			if c.Renderer.EffectiveMode() == output.ModeJSON {
				return c.Renderer.JSON(map[string]int64{"removed": n})
			}
			c.Renderer.Success(fmt.Sprintf("Removed %d entries", n))
			return nil
		},
	}
}
