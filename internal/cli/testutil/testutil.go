// Package testutil provides fixtures for CLI command tests: a fake Grist
// upstream, the proxy routes in front of it, and an isolated configuration.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jlllyfish/Moose-railway/internal/cli/config"
	"github.com/jlllyfish/Moose-railway/internal/proxy"
	"github.com/jlllyfish/Moose-railway/internal/testutil"
)

// GoodKey is the only token FakeGrist accepts.
const GoodKey = "good"

// FakeGrist serves document d1 (tables Dossiers and Usagers plus a helper
// table) and an empty document d2.
func FakeGrist(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+GoodKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("GET /api/orgs", reply(`[{"id":1}]`))
	mux.HandleFunc("GET /api/docs/d1", reply(`{"name":"Suivi LPA"}`))
	mux.HandleFunc("GET /api/docs/d1/tables", reply(`{"tables":[{"id":"Dossiers"},{"id":"_grist_Pages"},{"id":"Usagers"}]}`))
	mux.HandleFunc("GET /api/docs/d2/tables", reply(`{"tables":[]}`))
	mux.HandleFunc("GET /api/docs/d1/tables/Dossiers/columns", reply(`{"columns":[{"id":"Numero"},{"id":"Nom"}]}`))
	mux.HandleFunc("GET /api/docs/d1/tables/Dossiers/records", reply(`{"records":[{"id":1,"fields":{}},{"id":2,"fields":{}}]}`))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// StartProxy serves the proxy routes against gristURL and returns the
// proxy's base URL.
func StartProxy(t *testing.T, gristURL string) string {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	grist := proxy.NewGrist(proxy.GristConfig{BaseURL: gristURL, Logger: logger})

	r := chi.NewRouter()
	proxy.SetupRoutes(r, proxy.NewHandlers(grist, logger), nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

// LoadEnv runs in a fresh working directory with a private history
// database, applies the default environment for proxyURL overlaid with env,
// and loads the configuration the way the root command does.
func LoadEnv(t *testing.T, proxyURL string, env map[string]string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	base := map[string]string{
		"GRIST_API_KEY":       "",
		"MOOSE_PROXY_URL":     proxyURL,
		"MOOSE_API_KEY":       GoodKey,
		"MOOSE_OUTPUT":        "text",
		"MOOSE_HISTORY__PATH": filepath.Join(t.TempDir(), "history.db"),
	}
	for k, v := range env {
		base[k] = v
	}
	for k, v := range base {
		t.Setenv(k, v)
	}

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails when s carries terminal escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("output contains ANSI escape codes: %q", s)
	}
}
