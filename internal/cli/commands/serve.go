package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/proxy"
	"github.com/jlllyfish/Moose-railway/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Grist proxy and the web builder",
		Long: `Start the HTTP server. It exposes:
- the proxy endpoints (/test_api, /api/tables, /api/columns, /generate_url, /test_url)
- the full-page builder at /
- the embeddable widget at /widget (accepts ?doc_id=)

The server-side Grist token (grist.api_key, GRIST_API_KEY) is used when a
request carries none.`,
		Example: `  # Start on the default port
  moose serve

  # Start on a custom port and open a browser
  moose serve --port 8080 --no-browser=false`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "Port to serve on (default: 5000)")
	cmd.Flags().Bool("no-browser", true, "Don't auto-open browser")
	cmd.Flags().Bool("watch", false, "Reload browsers when static assets change")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	c := NewCommandContext(cmd)
	cfg := c.Cfg
	logger := c.Logger

	grist := proxy.NewGrist(proxy.GristConfig{
		BaseURL:        cfg.Grist.BaseURL,
		APIKey:         cfg.Grist.APIKey,
		ExcludedTables: cfg.Grist.ExcludedTables,
		Logger:         logger,
	})

	var limits *proxy.Limits
	if cfg.RateLimit.Enabled {
		l := proxy.DefaultLimits()
		limits = &l
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var onGenerate pipeline.GenerationHook
	store, err := c.OpenHistory(ctx)
	if err != nil {
		logger.Warn("history unavailable", "error", err)
	} else if store != nil {
		defer func() { _ = store.Close() }()
		onGenerate = store.RecordGeneration
	}

	server := ui.NewServer(ui.Config{
		API:           proxy.NewLocal(grist, logger),
		Proxy:         proxy.NewHandlers(grist, logger),
		Limits:        limits,
		OnGenerate:    onGenerate,
		Port:          cfg.Server.Port,
		Watch:         cfg.Server.Watch,
		SessionSecret: cfg.Server.SessionSecret,
		SessionTTL:    cfg.Server.SessionTTL,
		Logger:        logger,
	})

	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	if !cfg.Server.NoBrowser {
		go openBrowser(ctx, url)
	}

	c.Renderer.Printf("Starting server on %s\n", url)
	c.Renderer.Muted("Press Ctrl+C to stop")

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(ctx context.Context, url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
