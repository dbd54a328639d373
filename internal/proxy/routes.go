package proxy

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Limits are per-client-IP request budgets.
type Limits struct {
	Verify   int
	Generate int
	Test     int
	// Hourly applies to all proxy endpoints together.
	Hourly int
}

// DefaultLimits returns the production budgets.
func DefaultLimits() Limits {
	return Limits{Verify: 10, Generate: 20, Test: 15, Hourly: 50}
}

// Limiter holds per-client-IP rate limit middlewares built from Limits.
// Every middleware is a no-op when its budget is zero.
type Limiter struct {
	Hourly   func(http.Handler) http.Handler
	Verify   func(http.Handler) http.Handler
	Generate func(http.Handler) http.Handler
	Test     func(http.Handler) http.Handler
}

// NewLimiter builds the middlewares for limits. A nil limits disables rate
// limiting. onLimit answers refused requests; nil answers with a JSON 429.
func NewLimiter(limits *Limits, onLimit http.HandlerFunc) *Limiter {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
	if limits == nil {
		limits = &Limits{}
	}
	return &Limiter{
		Hourly:   limit(limits.Hourly, time.Hour, onLimit),
		Verify:   limit(limits.Verify, time.Minute, onLimit),
		Generate: limit(limits.Generate, time.Minute, onLimit),
		Test:     limit(limits.Test, time.Minute, onLimit),
	}
}

// SetupRoutes registers the proxy endpoints. A nil limits disables rate
// limiting.
func SetupRoutes(router chi.Router, h *Handlers, limits *Limits) {
	l := NewLimiter(limits, nil)
	router.Group(func(r chi.Router) {
		r.Use(l.Hourly)

		r.With(l.Verify).Post("/test_api", h.VerifyAPIKey)
		r.Get("/api/tables/{docID}", h.Tables)
		r.Get("/api/columns/{docID}/{table}", h.Columns)
		r.With(l.Generate).Post("/generate_url", h.Generate)
		r.With(l.Test).Post("/test_url", h.Test)
	})
}

func limit(n int, window time.Duration, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if n <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(n, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(onLimit),
	)
}
