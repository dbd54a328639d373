// Package client talks to the Moose proxy: it lists tables and columns of a
// document, asks the proxy to generate a URL template and executes templates
// with a test value.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jlllyfish/Moose-railway/internal/credential"
)

// maxErrorBody bounds how much of an error body is kept in messages.
const maxErrorBody = 200

// Config holds configuration for a Client.
type Config struct {
	// BaseURL is the proxy root, e.g. "http://localhost:5000".
	BaseURL string
	// Timeout applies to every call. Zero means no client-side timeout.
	Timeout time.Duration
	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is an HTTP client for the proxy API. It never caches responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
		logger:     logger,
	}
}

// BaseURL returns the proxy root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// VerifyCredential asks the proxy whether the token grants access upstream.
// POST /test_api → {success, message}. Non-2xx bodies are decoded too.
func (c *Client) VerifyCredential(ctx context.Context, cred string) (*Verification, error) {
	if cred == "" {
		return nil, fmt.Errorf("verify credential: %w: api key", ErrMissingInput)
	}

	data, err := json.Marshal(verifyRequest{APIKey: cred})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/test_api", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "verify credential", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var v Verification
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode verify response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &v, nil
}

// ListTables returns the table names of a document.
// GET /api/tables/{documentID}. An empty slice with a nil error means the
// document has no (visible) tables.
func (c *Client) ListTables(ctx context.Context, documentID, cred string) ([]string, error) {
	if documentID == "" || cred == "" {
		return nil, fmt.Errorf("list tables: %w: document id and api key are required", ErrMissingInput)
	}

	path := "/api/tables/" + url.PathEscape(documentID)
	tables, err := c.getNames(ctx, "list tables", path, cred)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("tables received", "doc_id", documentID, "count", len(tables))
	return tables, nil
}

// ListColumns returns the column names of a table.
// GET /api/columns/{documentID}/{tableName}.
func (c *Client) ListColumns(ctx context.Context, documentID, tableName, cred string) ([]string, error) {
	if documentID == "" || tableName == "" || cred == "" {
		return nil, fmt.Errorf("list columns: %w: document id, table and api key are required", ErrMissingInput)
	}

	path := "/api/columns/" + url.PathEscape(documentID) + "/" + url.PathEscape(tableName)
	columns, err := c.getNames(ctx, "list columns", path, cred)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("columns received", "doc_id", documentID, "table", tableName, "count", len(columns))
	return columns, nil
}

// getNames performs an authenticated GET returning a JSON array of strings.
func (c *Client) getNames(ctx context.Context, op, path, cred string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = credential.AuthorizationHeaders(cred)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SchemaFetchError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Message:    readErrorMessage(resp.Body),
		}
	}

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Generate submits the four fields to the proxy and returns the generated
// template. Only a 2xx response counts as success.
// POST /generate_url (form fields api_key, doc_id, table_name, column_name).
func (c *Client) Generate(ctx context.Context, r GenerateRequest) (*Generation, error) {
	if !r.Complete() {
		return nil, fmt.Errorf("generate: %w: api key, document id, table and column are required", ErrMissingInput)
	}

	form := url.Values{}
	form.Set("api_key", r.Credential)
	form.Set("doc_id", r.DocumentID)
	form.Set("table_name", r.Table)
	form.Set("column_name", r.Column)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_url", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "generate", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body errorResponse
		msg := "unknown error"
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			msg = body.Error
		}
		return nil, &GenerationError{Status: resp.StatusCode, Message: msg}
	}

	var gen Generation
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("generate: decode response: %w", err)
	}
	c.logger.Debug("template generated", "doc_id", gen.DocID, "table", gen.Table, "column", gen.Column)
	return &gen, nil
}

// Test runs a template with a concrete value through the proxy.
// POST /test_url {url, test_value, api_key}. The response body's success flag
// decides the outcome, so a 200 may still carry a logical failure.
// An empty value means the user declined: ErrDeclined, no call is made.
func (c *Client) Test(ctx context.Context, template, value, cred string) (*TestExecution, error) {
	if value == "" {
		return nil, ErrDeclined
	}
	substituted, err := Substitute(template, value)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(testRequest{URL: template, TestValue: value, APIKey: cred})
	if err != nil {
		return nil, fmt.Errorf("marshal test request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/test_url", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "test", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "test", Err: err}
	}

	var result TestResult
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &TestError{Status: resp.StatusCode, Message: truncate(strings.TrimSpace(string(body)))}
		}
		return nil, fmt.Errorf("test: decode response: %w", err)
	}
	return result.Execution(template, value, substituted), nil
}

// Substitute replaces the single placeholder of template with value.
func Substitute(template, value string) (string, error) {
	if n := strings.Count(template, Placeholder); n != 1 {
		return "", fmt.Errorf("%w (found %d)", ErrPlaceholderCount, n)
	}
	return strings.Replace(template, Placeholder, value, 1), nil
}

// readErrorMessage extracts a short message from an error response body,
// preferring a JSON {"error": ...} field.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return ""
	}
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

// IsDeclined reports whether err means the user supplied no test value.
func IsDeclined(err error) bool {
	return errors.Is(err, ErrDeclined)
}
