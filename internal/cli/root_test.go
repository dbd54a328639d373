package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlllyfish/Moose-railway/internal/cli/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("MOOSE_HISTORY__PATH", filepath.Join(t.TempDir(), "history.db"))
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"version", "serve", "tui", "verify", "tables", "columns", "generate", "test", "history", "config", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "verbose", "output", "proxy-url", "api-key", "timeout"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootFlagsReachConfig(t *testing.T) {
	out, err := run(t, "config", "show", "--proxy-url", "http://proxy:9", "--api-key", "abcdefgh", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "proxy_url: http://proxy:9")
	assert.Contains(t, out, "********efgh")
}

func TestRootRejectsInvalidOutput(t *testing.T) {
	_, err := run(t, "version", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}

func TestCompletionSkipsConfig(t *testing.T) {
	out, err := run(t, "completion", "bash", "-o", "xml")
	require.NoError(t, err)
	assert.Contains(t, out, "moose")
}
