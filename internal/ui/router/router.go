// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/jlllyfish/Moose-railway/internal/proxy"
	builderFeature "github.com/jlllyfish/Moose-railway/internal/ui/features/builder"
	"github.com/jlllyfish/Moose-railway/internal/ui/notifier"
	"github.com/jlllyfish/Moose-railway/internal/ui/resources"
)

// WidgetPath is the only path that may be framed by other sites.
const WidgetPath = builderFeature.WidgetPath

// SetupRoutes configures all routes for the UI server. proxyHandlers may be
// nil when the builder talks to a remote proxy. limits applies to both the
// proxy endpoints and the builder actions; nil disables rate limiting.
func SetupRoutes(
	router chi.Router,
	proxyHandlers *proxy.Handlers,
	limits *proxy.Limits,
	registry *builderFeature.Registry,
	reload *notifier.Notifier,
	logger *slog.Logger,
	isDev bool,
) error {
	router.Use(proxy.SecurityHeaders(WidgetPath))

	// Hot reload endpoint for dev mode
	if isDev {
		setupReload(router, reload)
	}

	// Static assets
	router.Handle("/static/*", resources.Handler())

	if proxyHandlers != nil {
		proxy.SetupRoutes(router, proxyHandlers, limits)
	}

	return builderFeature.SetupRoutes(router, registry, limits, logger, isDev)
}

// setupReload mounts /reload, which reloads the page once per process start
// and again on every ping of reload, and /hotreload, which pings it.
func setupReload(router chi.Router, reload *notifier.Notifier) {
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		doReload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(doReload)

		pings := reload.Subscribe()
		defer pings.Close()

		select {
		case <-pings.C:
			doReload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		reload.Broadcast()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
