// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/gorilla/sessions"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/testutil"
	"github.com/jlllyfish/Moose-railway/internal/ui/notifier"
)

// FakeAPI is an in-memory pipeline.API. Tables and Columns describe the
// schema of every document; Exec answers every test.
type FakeAPI struct {
	mu sync.Mutex

	Tables    []string
	Columns   map[string][]string
	TablesErr error
	GenErr    error
	Exec      *client.TestExecution

	calls []string
}

// NewFakeAPI returns a FakeAPI with a two-table schema.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Tables:  []string{"Dossiers", "Usagers"},
		Columns: map[string][]string{"Dossiers": {"Numero", "Nom"}, "Usagers": {"Email"}},
		Exec: &client.TestExecution{
			Success:     true,
			RecordCount: 2,
			Raw:         "{\n  \"records\": [{}, {}]\n}",
		},
	}
}

// Calls returns the names of the calls made so far.
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// VerifyCredential accepts the key "good".
func (f *FakeAPI) VerifyCredential(_ context.Context, cred string) (*client.Verification, error) {
	f.record("verify")
	if cred != "good" {
		return &client.Verification{Success: false, Message: "Error 401: Unauthorized"}, nil
	}
	return &client.Verification{Success: true, Message: "API token valid!"}, nil
}

// ListTables returns Tables or TablesErr.
func (f *FakeAPI) ListTables(_ context.Context, _, _ string) ([]string, error) {
	f.record("tables")
	return f.Tables, f.TablesErr
}

// ListColumns returns the columns of table.
func (f *FakeAPI) ListColumns(_ context.Context, _, table, _ string) ([]string, error) {
	f.record("columns:" + table)
	return f.Columns[table], nil
}

// Generate builds a predictable template from the request.
func (f *FakeAPI) Generate(_ context.Context, r client.GenerateRequest) (*client.Generation, error) {
	f.record("generate")
	if f.GenErr != nil {
		return nil, f.GenErr
	}
	return &client.Generation{
		URL:        "https://grist.example/api/docs/" + r.DocumentID + "/tables/" + r.Table + "/records?filter={id}",
		DocID:      r.DocumentID,
		Table:      r.Table,
		Column:     r.Column,
		FormatInfo: "f",
		Usage:      "u",
	}, nil
}

// Test returns Exec with the substituted URL.
func (f *FakeAPI) Test(_ context.Context, template, value, _ string) (*client.TestExecution, error) {
	f.record("test:" + value)
	url, err := client.Substitute(template, value)
	if err != nil {
		return nil, err
	}
	exec := *f.Exec
	exec.Template, exec.Value, exec.TestURL = template, value, url
	return &exec, nil
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	API          *FakeAPI
	Logger       *slog.Logger
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates a fixture backed by a fresh FakeAPI.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	return &TestFixture{
		API:          NewFakeAPI(),
		Logger:       testutil.NewTestLogger(t),
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
	}
}

// NewTestSessionStore creates a session store configured like the server's.
func NewTestSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// WithCookies copies the cookies set by a previous response onto r.
func WithCookies(r *http.Request, from *http.Response) *http.Request {
	for _, c := range from.Cookies() {
		r.AddCookie(c)
	}
	return r
}
