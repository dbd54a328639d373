package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jlllyfish/Moose-railway/internal/cli/config"
	"github.com/jlllyfish/Moose-railway/internal/cli/output"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration with secrets masked",
		Long: `Print the configuration after merging defaults, moose.yaml, MOOSE_*
environment variables and flags. Tokens and the session secret are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			redacted := c.Cfg.Redacted()

			if c.Renderer.EffectiveMode() == output.ModeJSON {
				return c.Renderer.JSON(redacted)
			}

			data, err := yaml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if file := config.GetConfigFileUsed(); file != "" {
				c.Renderer.Printf("# config file: %s\n", file)
			}
			c.Renderer.Printf("%s", data)
			return nil
		},
	})
	return cmd
}
