package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jlllyfish/Moose-railway/internal/cli/config"
	"github.com/jlllyfish/Moose-railway/internal/cli/output"
	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/credential"
	"github.com/jlllyfish/Moose-railway/internal/history"
	"github.com/jlllyfish/Moose-railway/internal/render"
)

// ErrNoCredential is returned by commands that need a Grist token.
var ErrNoCredential = errors.New("API token required: pass --api-key or set MOOSE_API_KEY")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// API talks to the proxy at Cfg.EffectiveProxyURL().
	API *client.Client
}

// NewCommandContext creates a CommandContext with a proxy client and renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode, _ := output.ParseMode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		API:      newClient(cfg, logger),
	}
}

func newClient(cfg *config.Config, logger *slog.Logger) *client.Client {
	return client.New(client.Config{
		BaseURL: cfg.EffectiveProxyURL(),
		Timeout: cfg.Client.Timeout,
		Logger:  logger,
	})
}

// Credential returns the configured user token or ErrNoCredential.
func (c *CommandContext) Credential() (string, error) {
	h := credential.NewHolder(c.Cfg.APIKey)
	if !h.Present() {
		return "", ErrNoCredential
	}
	return h.Current(), nil
}

// OpenHistory opens the history store, or returns nil when history is
// disabled. Callers must Close a non-nil store.
func (c *CommandContext) OpenHistory(ctx context.Context) (*history.Store, error) {
	if !c.Cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(ctx, c.Cfg.History.Path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// PrintBlocks renders result blocks in the renderer's mode. v is what JSON
// mode prints instead of the blocks.
func (c *CommandContext) PrintBlocks(ctx context.Context, blocks []render.Block, v any) error {
	r := c.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(v)
	case output.ModeMarkdown:
		md, err := render.Markdown(ctx, blocks)
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		r.Println(md)
		return nil
	default:
		styles := render.PlainStyles()
		if r.IsTTY() {
			styles = render.DefaultStyles()
		}
		r.Printf("%s", render.Text(blocks, styles))
		return nil
	}
}

// getConfig returns the current configuration, loading it from the
// environment when no command has loaded it yet.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	return &config.Config{
		OutputFormat: config.DefaultOutput,
		Server:       config.ServerConfig{Port: config.DefaultPort, SessionTTL: config.DefaultSessionTTL},
		Grist:        config.GristConfig{BaseURL: config.DefaultGristBaseURL},
	}
}
