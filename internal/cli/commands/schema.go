package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jlllyfish/Moose-railway/internal/cli/output"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the API token is accepted by Grist",
		Example: `  # Verify the token from the environment
  MOOSE_API_KEY=... moose verify

  # Verify an explicit token against a remote proxy
  moose verify --api-key ... --proxy-url https://moose.example`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			key, err := c.Credential()
			if err != nil {
				return err
			}

			v, err := c.API.VerifyCredential(cmd.Context(), key)
			if err != nil {
				return err
			}
			if c.Renderer.EffectiveMode() == output.ModeJSON {
				if err := c.Renderer.JSON(v); err != nil {
					return err
				}
			} else if v.Success {
				c.Renderer.Success(v.Message)
			}
			if !v.Success {
				return errors.New(v.Message)
			}
			return nil
		},
	}
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "tables <document-id>",
		Short:   "List the user tables of a document",
		Example: `  moose tables 4mA7sZ3wq2Ld --output json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			key, err := c.Credential()
			if err != nil {
				return err
			}

			tables, err := c.API.ListTables(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}
			return printNames(c, fmt.Sprintf("Tables in %s", args[0]), "Table", tables,
				"No tables found. Check the document ID and your API token.")
		},
	}
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "columns <document-id> <table>",
		Short:   "List the columns of a table",
		Example: `  moose columns 4mA7sZ3wq2Ld Dossiers`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			key, err := c.Credential()
			if err != nil {
				return err
			}

			columns, err := c.API.ListColumns(cmd.Context(), args[0], args[1], key)
			if err != nil {
				return err
			}
			return printNames(c, fmt.Sprintf("Columns of %s", args[1]), "Column", columns, "No columns found.")
		},
	}
}

func printNames(c *CommandContext, title, label string, names []string, empty string) error {
	r := c.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if names == nil {
			names = []string{}
		}
		return r.JSON(names)
	}
	if len(names) == 0 {
		r.Warning(empty)
		return nil
	}

	r.Header(1, fmt.Sprintf("%s (%d)", title, len(names)))
	rows := make([][]string, len(names))
	for i, n := range names {
		rows[i] = []string{strconv.Itoa(i + 1), n}
	}
	r.Table([]string{"#", label}, rows)
	return nil
}
