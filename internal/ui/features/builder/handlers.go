package builder

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/pipeline"
)

// Handlers provides HTTP handlers for the builder feature.
type Handlers struct {
	registry *Registry
	logger   *slog.Logger
	isDev    bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *Registry, logger *slog.Logger, isDev bool) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{registry: registry, logger: logger, isDev: isDev}
}

// FullPage renders the full-page builder.
func (h *Handlers) FullPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, VariantFull, "URL builder")
}

// WidgetPage renders the compact, embeddable builder. A doc_id query
// parameter pre-fills the document.
func (h *Handlers) WidgetPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, VariantWidget, "Widget")
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request, variant Variant, title string) {
	sess, err := h.registry.Get(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if doc := r.URL.Query().Get("doc_id"); doc != "" {
		sess.Controller.SetDocumentID(doc)
	}
	state, rev := sess.Controller.Snapshot()

	if err := Page(title, h.isDev, View{Variant: variant, State: state, Revision: rev}).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint. It re-renders the builder whenever
// the session's controller changes state. The rev query parameter carries the
// revision the page was rendered at; transitions made before the stream
// subscribed are sent as one initial patch.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sess, err := h.registry.Get(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	updates := sess.Notifier.Subscribe()
	defer updates.Close()

	sse := datastar.NewSSE(w, r)

	if rendered, ok := renderedRevision(r); ok {
		if state, rev := sess.Controller.Snapshot(); rev != rendered {
			if err := sse.PatchElementTempl(Builder(View{State: state, Revision: rev})); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates.C:
			if err := sse.PatchElementTempl(Builder(View{State: sess.Controller.State()})); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

const revisionParam = "rev"

func renderedRevision(r *http.Request) (uint64, bool) {
	rev, err := strconv.ParseUint(r.URL.Query().Get(revisionParam), 10, 64)
	return rev, err == nil
}

// action is one builder operation driven by the posted signals.
type action func(ctx context.Context, c *pipeline.Controller, s Signals) error

// handle reads signals, runs act against the session controller and patches
// the builder with the resulting state.
func (h *Handlers) handle(act action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Read signals BEFORE creating SSE (SSE consumes the request body)
		var signals Signals
		readErr := datastar.ReadSignals(r, &signals)

		sess, err := h.registry.Get(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		sse := datastar.NewSSE(w, r)
		if readErr != nil {
			_ = sse.ConsoleError(readErr)
			return
		}

		if err := act(r.Context(), sess.Controller, signals); err != nil && !expected(err) {
			h.logger.Warn("builder action failed", "path", r.URL.Path, "error", err)
			_ = sse.ConsoleError(err)
		}

		if err := sse.PatchElementTempl(Builder(View{State: sess.Controller.State()})); err != nil {
			_ = sse.ConsoleError(err)
		}
	}
}

// throttled answers an action refused by rate limiting with a notice in
// place of the usual patch.
func (h *Handlers) throttled(w http.ResponseWriter, r *http.Request) {
	sess, err := h.registry.Get(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("builder action rate limited", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	state := sess.Controller.Throttle(limitedActions[r.URL.Path])

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElementTempl(Builder(View{State: state})); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// expected reports errors that are already reflected in the state or mean
// "nothing to do".
func expected(err error) bool {
	return errors.Is(err, client.ErrMissingInput) ||
		errors.Is(err, client.ErrDeclined) ||
		errors.Is(err, pipeline.ErrBusy)
}

func setCredential(_ context.Context, c *pipeline.Controller, s Signals) error {
	c.SetCredential(s.Credential)
	return nil
}

func setDocument(_ context.Context, c *pipeline.Controller, s Signals) error {
	c.SetDocumentID(s.DocID)
	return nil
}

// syncInputs applies the posted inputs so actions never run against stale
// values when a debounced edit has not been sent yet.
func syncInputs(c *pipeline.Controller, s Signals) {
	c.SetCredential(s.Credential)
	c.SetDocumentID(s.DocID)
}

func verify(ctx context.Context, c *pipeline.Controller, s Signals) error {
	c.SetCredential(s.Credential)
	return c.VerifyCredential(ctx)
}

func loadTables(ctx context.Context, c *pipeline.Controller, s Signals) error {
	syncInputs(c, s)
	return c.LoadTables(ctx)
}

func selectTable(ctx context.Context, c *pipeline.Controller, s Signals) error {
	return c.SelectTable(ctx, s.Table)
}

func selectColumn(_ context.Context, c *pipeline.Controller, s Signals) error {
	return c.SelectColumn(s.Column)
}

func generate(ctx context.Context, c *pipeline.Controller, _ Signals) error {
	return c.Generate(ctx)
}

func runTest(ctx context.Context, c *pipeline.Controller, s Signals) error {
	return c.Test(ctx, s.TestValue)
}

func dismiss(_ context.Context, c *pipeline.Controller, _ Signals) error {
	c.DismissNotice()
	return nil
}
