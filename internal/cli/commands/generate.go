package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/render"
)

// DefaultTestValue is offered when `moose test` prompts for a value.
const DefaultTestValue = "LPA"

// ErrTestFailed is returned after a failed test has been rendered.
var ErrTestFailed = errors.New("test failed")

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <document-id> <table> <column>",
		Short: "Generate a record URL template",
		Long: `Generate a URL that fetches the records of <table> whose <column> equals
the value put in place of the {id} placeholder.

The template is recorded in the local history unless history.enabled is false.`,
		Example: `  moose generate 4mA7sZ3wq2Ld Dossiers Numero
  moose generate 4mA7sZ3wq2Ld Dossiers Numero -o json | jq -r .url`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			key, err := c.Credential()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			gen, err := c.API.Generate(ctx, client.GenerateRequest{
				Credential: key,
				DocumentID: args[0],
				Table:      args[1],
				Column:     args[2],
			})
			if err != nil {
				return err
			}

			store, err := c.OpenHistory(ctx)
			if err != nil {
				c.Logger.Warn("history unavailable", "error", err)
			} else if store != nil {
				defer func() { _ = store.Close() }()
				if err := store.RecordGeneration(ctx, gen); err != nil {
					c.Logger.Warn("failed to record generation", "error", err)
				}
			}

			return c.PrintBlocks(ctx, []render.Block{render.Generation(gen)}, gen)
		},
	}
}

// NewTestCommand creates the test command.
func NewTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <url-template> [value]",
		Short: "Run a URL template with a concrete value",
		Long: `Substitute value for the {id} placeholder of the template and fetch the
result through the proxy. Without a value argument, prompts for one
(default ` + DefaultTestValue + `); an empty answer cancels the test.`,
		Example: `  moose test 'https://grist.example/api/docs/d/tables/T/records?filter=...{id}...' LPA`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			key, err := c.Credential()
			if err != nil {
				return err
			}
			template := args[0]
			if strings.Count(template, client.Placeholder) != 1 {
				return client.ErrPlaceholderCount
			}

			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				value, err = promptValue(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			exec, err := c.API.Test(cmd.Context(), template, value, key)
			if client.IsDeclined(err) {
				c.Renderer.Muted("Test cancelled: no value entered")
				return nil
			}

			outcome := pipeline.NewTestOutcome(exec, err)
			var v any = exec
			if err != nil {
				v = map[string]any{"success": false, "error": err.Error()}
			}
			if err := c.PrintBlocks(cmd.Context(), []render.Block{render.Test(outcome)}, v); err != nil {
				return err
			}
			if outcome.Exec == nil || !outcome.Exec.Success {
				return ErrTestFailed
			}
			return nil
		},
	}
}

// promptValue reads the test value, pre-filled with DefaultTestValue.
func promptValue(in io.Reader, out io.Writer) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Value to replace {id}: ",
		Stdin:           io.NopCloser(in),
		Stdout:          out,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	line, err := rl.ReadlineWithDefault(DefaultTestValue)
	switch {
	case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
		return "", nil
	case err != nil:
		return "", err
	}
	return strings.TrimSpace(line), nil
}
