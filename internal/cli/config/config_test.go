package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no MOOSE_ variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{"MOOSE_OUTPUT", "MOOSE_API_KEY", "MOOSE_SESSION_SECRET", GristAPIKeyEnv} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	ResetConfig()
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "moose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.StringP("output", "o", "", "")
	flags.String("proxy-url", "", "")
	flags.String("api-key", "", "")
	flags.Int("port", 0, "")
	flags.Bool("no-browser", false, "")
	flags.Duration("timeout", 0, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultSessionTTL, cfg.Server.SessionTTL)
	assert.Equal(t, DefaultSessionSecret, cfg.Server.SessionSecret)
	assert.True(t, cfg.Server.NoBrowser)
	assert.Equal(t, DefaultGristBaseURL, cfg.Grist.BaseURL)
	assert.Empty(t, cfg.Grist.APIKey, "unset ${GRIST_API_KEY} expands to nothing")
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Duration(0), cfg.Client.Timeout)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	root, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, resolved, root)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultHistoryPath), cfg.History.Path)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
output: json
client:
  timeout: 45s
server:
  port: 8080
  session_ttl: 1h
grist:
  base_url: https://grist.example
  excluded_tables: [Archive, Drafts]
history:
  path: data/history.db
`)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 45*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, "https://grist.example", cfg.Grist.BaseURL)
	assert.Equal(t, []string{"Archive", "Drafts"}, cfg.Grist.ExcludedTables)
	assert.Equal(t, "moose.yaml", filepath.Base(GetConfigFileUsed()))
	assert.Equal(t, "history.db", filepath.Base(cfg.History.Path))
	assert.True(t, filepath.IsAbs(cfg.History.Path))
}

func TestLoadConfigSearchesUpward(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "server:\n  port: 7000\n")
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	root, _ := filepath.EvalSymlinks(cfg.ProjectRoot)
	want, _ := filepath.EvalSymlinks(dir)
	assert.Equal(t, want, root)
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	isolate(t)

	_, err := LoadConfig("nope.yaml", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "output: text\nserver:\n  port: 7000\n")
	t.Setenv("MOOSE_OUTPUT", "markdown")
	t.Setenv("MOOSE_SERVER__PORT", "9000")
	t.Setenv("MOOSE_API_KEY", "user-key")
	t.Setenv("MOOSE_GRIST__EXCLUDED_TABLES", "A,B")
	t.Setenv(GristAPIKeyEnv, "server-key")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "user-key", cfg.APIKey)
	assert.Equal(t, []string{"A", "B"}, cfg.Grist.ExcludedTables)
	assert.Equal(t, "server-key", cfg.Grist.APIKey)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("MOOSE_OUTPUT", "markdown")
	t.Setenv("MOOSE_SERVER__PORT", "9000")

	flags := testFlags(t, "--output", "json", "--port", "6000", "--timeout", "5s", "--proxy-url", "http://proxy:1")
	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "http://proxy:1", cfg.ProxyURL)
}

func TestLoadConfigUnsetFlagsKeepLowerLayers(t *testing.T) {
	isolate(t)
	t.Setenv("MOOSE_SERVER__PORT", "9000")

	cfg, err := LoadConfig("", testFlags(t))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.NoBrowser)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "output", body: "output: yaml\n", wantErr: "output must be one of"},
		{name: "port", body: "server:\n  port: 70000\n", wantErr: "server.port out of range"},
		{name: "base url", body: "grist:\n  base_url: grist.example\n", wantErr: "grist.base_url must be an absolute"},
		{name: "proxy url", body: "proxy_url: ftp://x\n", wantErr: "proxy_url must be an absolute"},
		{name: "duration", body: "client:\n  timeout: soon\n", wantErr: "unable to decode config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeConfig(t, dir, tt.body)

			_, err := LoadConfig("", nil)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEffectiveProxyURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000", (&Config{}).EffectiveProxyURL())
	assert.Equal(t, "http://localhost:8080", (&Config{Server: ServerConfig{Port: 8080}}).EffectiveProxyURL())
	assert.Equal(t, "https://moose.example", (&Config{ProxyURL: "https://moose.example"}).EffectiveProxyURL())
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		APIKey:    "user-secret-1234",
		Grist:     GristConfig{APIKey: "server-secret-5678", ExcludedTables: []string{"A"}},
		Server:    ServerConfig{SessionSecret: "abc"},
		ProxyURL:  "http://x",
		RateLimit: RateLimitConfig{Enabled: true},
	}

	red := cfg.Redacted()

	assert.Equal(t, "********1234", red.APIKey)
	assert.Equal(t, "********5678", red.Grist.APIKey)
	assert.Equal(t, "****", red.Server.SessionSecret)
	assert.Equal(t, "http://x", red.ProxyURL)
	assert.Equal(t, "user-secret-1234", cfg.APIKey, "original untouched")

	red.Grist.ExcludedTables[0] = "changed"
	assert.Equal(t, "A", cfg.Grist.ExcludedTables[0])
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
