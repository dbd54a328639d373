// Package proxy serves the credentialed HTTP API the builder talks to and
// forwards schema and record calls to a Grist server.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/credential"
)

// DefaultBaseURL is the Grist server used when none is configured.
const DefaultBaseURL = "https://grist.numerique.gouv.fr"

// UntitledDocument is returned when the document name cannot be resolved.
const UntitledDocument = "Untitled document"

const filterPlaceholder = "PLACEHOLDER_ID"

// builtinExcluded lists Grist helper tables never offered for selection.
var builtinExcluded = []string{
	"GristDocTour",
	"GristHidden_import",
	"_grist_Tables",
	"_grist_Tables_column",
	"_grist_Views",
	"_grist_Views_section",
	"_grist_Views_section_field",
	"_grist_TabBar",
	"_grist_Pages",
	"_grist_Attachments",
	"_grist_Cells",
	"_grist_ACLResources",
	"_grist_ACLRules",
	"_grist_ACLMemberships",
}

// ErrNoAPIKey is returned when neither the caller nor the server supplies a key.
var ErrNoAPIKey = errors.New("API key required")

// UpstreamError is a non-2xx answer from Grist.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// GristConfig configures the upstream client.
type GristConfig struct {
	BaseURL string
	// APIKey is the fallback used when a request carries no key.
	APIKey         string
	ExcludedTables []string
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Grist talks to the Grist REST API.
type Grist struct {
	baseURL  string
	apiKey   string
	excluded []string
	http     *http.Client
	logger   *slog.Logger
}

// NewGrist creates an upstream client.
func NewGrist(cfg GristConfig) *Grist {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Grist{
		baseURL:  base,
		apiKey:   credential.Normalize(cfg.APIKey),
		excluded: append(slices.Clone(builtinExcluded), cfg.ExcludedTables...),
		http:     hc,
		logger:   logger,
	}
}

// BaseURL returns the upstream base URL.
func (g *Grist) BaseURL() string {
	return g.baseURL
}

func (g *Grist) key(apiKey string) (string, error) {
	if k := credential.Normalize(apiKey); k != "" {
		return k, nil
	}
	if g.apiKey != "" {
		return g.apiKey, nil
	}
	return "", ErrNoAPIKey
}

// get performs an authenticated GET and returns the body of a 2xx answer.
func (g *Grist) get(ctx context.Context, rawURL, apiKey string) ([]byte, int, error) {
	key, err := g.key(apiKey)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header = credential.AuthorizationHeaders(key)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("grist request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read grist response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &UpstreamError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, resp.StatusCode, nil
}

func (g *Grist) docURL(documentID string, parts ...string) string {
	u := g.baseURL + "/api/docs/" + url.PathEscape(documentID)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// OrgCount verifies apiKey by listing the organisations it can access.
func (g *Grist) OrgCount(ctx context.Context, apiKey string) (int, error) {
	body, _, err := g.get(ctx, g.baseURL+"/api/orgs", apiKey)
	if err != nil {
		return 0, err
	}
	var orgs []json.RawMessage
	if err := json.Unmarshal(body, &orgs); err != nil {
		return 0, fmt.Errorf("decode orgs: %w", err)
	}
	return len(orgs), nil
}

type idEntry struct {
	ID string `json:"id"`
}

type idList struct {
	Tables  []idEntry `json:"tables"`
	Columns []idEntry `json:"columns"`
}

// Tables lists the user tables of a document, helper tables removed.
func (g *Grist) Tables(ctx context.Context, documentID, apiKey string) ([]string, error) {
	body, _, err := g.get(ctx, g.docURL(documentID, "tables"), apiKey)
	if err != nil {
		return nil, err
	}
	var list idList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}

	tables := make([]string, 0, len(list.Tables))
	for _, t := range list.Tables {
		if strings.HasPrefix(t.ID, "_grist_") || slices.Contains(g.excluded, t.ID) {
			continue
		}
		tables = append(tables, t.ID)
	}
	g.logger.Debug("tables listed", "doc_id", documentID, "total", len(list.Tables), "kept", len(tables))
	return tables, nil
}

// Columns lists the column ids of a table.
func (g *Grist) Columns(ctx context.Context, documentID, table, apiKey string) ([]string, error) {
	body, _, err := g.get(ctx, g.docURL(documentID, "tables", table, "columns"), apiKey)
	if err != nil {
		return nil, err
	}
	var list idList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}

	columns := make([]string, 0, len(list.Columns))
	for _, c := range list.Columns {
		columns = append(columns, c.ID)
	}
	return columns, nil
}

// DocumentName resolves a display name for a document. Any failure yields
// UntitledDocument.
func (g *Grist) DocumentName(ctx context.Context, documentID, apiKey string) string {
	body, _, err := g.get(ctx, g.docURL(documentID), apiKey)
	if err != nil {
		g.logger.Debug("document name lookup failed", "doc_id", documentID, "error", err)
		return UntitledDocument
	}
	var doc struct {
		Name    string `json:"name"`
		Title   string `json:"title"`
		DocName string `json:"docName"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return UntitledDocument
	}
	for _, n := range []string{doc.Name, doc.Title, doc.DocName} {
		if n != "" {
			return n
		}
	}
	return UntitledDocument
}

// FilterURL builds the record URL filtering table on column, with the {id}
// placeholder left literal inside the quoted filter value.
func (g *Grist) FilterURL(documentID, table, column string) string {
	filter := quote(`{"` + column + `":["` + filterPlaceholder + `"]}`)
	filter = strings.Replace(filter, filterPlaceholder, client.Placeholder, 1)
	return g.docURL(documentID, "tables", table, "records") + "?filter=" + filter
}

// Owns reports whether rawURL targets this Grist server's document API.
func (g *Grist) Owns(rawURL string) bool {
	return strings.HasPrefix(rawURL, g.baseURL+"/api/docs/")
}

// Fetch substitutes value into template and fetches the records it names.
// The returned URL is the one actually requested.
func (g *Grist) Fetch(ctx context.Context, template, value, apiKey string) (json.RawMessage, string, int, error) {
	testURL := strings.Replace(template, client.Placeholder, quote(value), 1)
	body, status, err := g.get(ctx, testURL, apiKey)
	if err != nil {
		return nil, testURL, status, err
	}
	if !json.Valid(body) {
		return nil, testURL, status, fmt.Errorf("grist returned invalid JSON")
	}
	return body, testURL, status, nil
}

// quote percent-encodes s leaving only unreserved characters and '/' as is.
func quote(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || c == '/' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "%%%02X", c)
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
