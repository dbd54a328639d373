package builder

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/proxy"
)

// SetupRoutes configures routes for the builder feature. Actions that reach
// Grist are rate limited per browser IP with the proxy's budgets; a nil
// limits disables rate limiting.
func SetupRoutes(router chi.Router, registry *Registry, limits *proxy.Limits, logger *slog.Logger, isDev bool) error {
	h := NewHandlers(registry, logger, isDev)
	l := proxy.NewLimiter(limits, h.throttled)

	router.Get("/", h.FullPage)
	router.Get(WidgetPath, h.WidgetPage)

	router.Route("/builder", func(r chi.Router) {
		r.Get("/updates", h.Updates)
		r.Post("/credential", h.handle(setCredential))
		r.Post("/document", h.handle(setDocument))
		r.Post("/column", h.handle(selectColumn))
		r.Post("/dismiss", h.handle(dismiss))

		r.Group(func(r chi.Router) {
			r.Use(l.Hourly)
			r.With(l.Verify).Post("/verify", h.handle(verify))
			r.Post("/tables", h.handle(loadTables))
			r.Post("/table", h.handle(selectTable))
			r.With(l.Generate).Post("/generate", h.handle(generate))
			r.With(l.Test).Post("/test", h.handle(runTest))
		})
	})

	return nil
}

// limitedActions maps rate limited routes to the control they belong to.
var limitedActions = map[string]pipeline.Action{
	"/builder/verify":   pipeline.ActionVerify,
	"/builder/tables":   pipeline.ActionLoadTables,
	"/builder/table":    pipeline.ActionLoadTables,
	"/builder/generate": pipeline.ActionGenerate,
	"/builder/test":     pipeline.ActionTest,
}
