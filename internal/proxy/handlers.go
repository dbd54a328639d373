package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jlllyfish/Moose-railway/internal/credential"
)

// Handlers serves the proxy endpoints.
type Handlers struct {
	grist  *Grist
	logger *slog.Logger
}

// NewHandlers creates proxy handlers backed by g.
func NewHandlers(g *Grist, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{grist: g, logger: logger}
}

type verifyRequest struct {
	APIKey string `json:"api_key"`
}

// VerifyAPIKey handles POST /test_api.
func (h *Handlers) VerifyAPIKey(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Message: "invalid json: " + err.Error(), Status: http.StatusBadRequest})
		return
	}
	v := verify(r.Context(), h.grist, h.logger, req.APIKey)
	writeJSON(w, v.Status, v)
}

// Tables handles GET /api/tables/{docID}.
func (h *Handlers) Tables(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	tables, err := h.grist.Tables(r.Context(), docID, bearer(r))
	if err != nil {
		h.upstreamFailure(w, "list tables", err, "doc_id", docID)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// Columns handles GET /api/columns/{docID}/{table}.
func (h *Handlers) Columns(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	table := chi.URLParam(r, "table")
	columns, err := h.grist.Columns(r.Context(), docID, table, bearer(r))
	if err != nil {
		h.upstreamFailure(w, "list columns", err, "doc_id", docID, "table", table)
		return
	}
	writeJSON(w, http.StatusOK, columns)
}

// Generate handles POST /generate_url.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}
	gen, err := generation(r.Context(), h.grist, h.logger,
		r.PostForm.Get("doc_id"), r.PostForm.Get("table_name"), r.PostForm.Get("column_name"), r.PostForm.Get("api_key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

type testRequest struct {
	URL       string `json:"url"`
	TestValue string `json:"test_value"`
	APIKey    string `json:"api_key"`
}

// Test handles POST /test_url.
func (h *Handlers) Test(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	status, res := runTest(r.Context(), h.grist, h.logger, req.URL, req.TestValue, req.APIKey)
	writeJSON(w, status, res)
}

func (h *Handlers) upstreamFailure(w http.ResponseWriter, op string, err error, attrs ...any) {
	h.logger.Warn(op+" failed", append(attrs, "error", err)...)
	writeError(w, schemaStatus(err), err.Error())
}

// bearer extracts the caller's key from the Authorization header.
func bearer(r *http.Request) string {
	return credential.FromAuthorization(r.Header.Get("Authorization"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
