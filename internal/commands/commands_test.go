// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/bulkctl/bulkctl/internal/config"
	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/mock"
)

const testAPIKey = "test-key-1234567890"

type testEnv struct {
	srv        *mock.Server
	configFile string
	app        *app
}

// newTestEnv points the CLI at an in-memory items API holding n generated items
func newTestEnv(t *testing.T, n int) *testEnv {
	t.Helper()
	return newTestEnvWithItems(t, mock.GenerateItems(n, 1))
}

func newTestEnvWithItems(t *testing.T, items []domain.Item) *testEnv {
	t.Helper()
	keyring.MockInit()

	srv := mock.NewServer(items)
	t.Cleanup(srv.Close)

	t.Setenv(config.EnvAPIURL, srv.URL)
	t.Setenv(config.EnvAPIKey, testAPIKey)
	t.Setenv(config.EnvDebug, "")
	t.Setenv("BULKCTL_BULK_POLL_INTERVAL", "10ms")

	a := newApp()
	a.isTerminal = func(any) bool { return false }

	return &testEnv{
		srv:        srv,
		configFile: filepath.Join(t.TempDir(), "config.yaml"),
		app:        a,
	}
}

func (e *testEnv) run(stdin string, args ...string) (string, string, error) {
	cmd := newRootCommand(e.app)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_HasExpectedCommands(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		assert.False(t, names[cmd.Name()], "duplicate command %s", cmd.Name())
		names[cmd.Name()] = true
	}
	for _, expected := range []string{"version", "list", "apply", "job", "config"} {
		assert.True(t, names[expected], "expected command %q", expected)
	}
}

func TestRootCommand_FreshTreePerCall(t *testing.T) {
	assert.NotSame(t, NewRootCommand(), NewRootCommand())
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t, 0)
	out, _, err := env.run("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bulkctl")
	assert.Contains(t, out, "Go Version")
}

func TestListCommand(t *testing.T) {
	env := newTestEnv(t, 30)

	out, _, err := env.run("", "list", "--page", "2", "--page-size", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "item-0011")
	assert.Contains(t, out, "item-0020")
	assert.NotContains(t, out, "item-0021")
	assert.Contains(t, out, "Page 2/3 · 30 items total")
}

func TestListCommand_NoMatches(t *testing.T) {
	env := newTestEnv(t, 5)

	out, _, err := env.run("", "list", "--search", "no-such-item")
	require.NoError(t, err)
	assert.Contains(t, out, "No items match.")
	assert.Contains(t, out, "0 items total")
}

func TestListCommand_InvalidFlags(t *testing.T) {
	env := newTestEnv(t, 5)

	_, _, err := env.run("", "list", "--status", "bogus")
	assert.ErrorContains(t, err, "invalid status filter")

	_, _, err = env.run("", "list", "--page", "0")
	assert.ErrorContains(t, err, "--page must be at least 1")
	assert.Zero(t, env.srv.Requests("list"))
}

func TestCommands_MissingAPIKey(t *testing.T) {
	env := newTestEnv(t, 5)
	t.Setenv(config.EnvAPIKey, "")

	_, _, err := env.run("", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No API key configured")
	assert.Zero(t, env.srv.Requests("list"))
}

func TestCommands_InvalidConfigFile(t *testing.T) {
	env := newTestEnv(t, 5)
	require.NoError(t, os.WriteFile(env.configFile, []byte("bulk:\n  concurrency: 0\n"), 0o600))

	_, _, err := env.run("", "list")
	assert.ErrorContains(t, err, "bulk.concurrency must be at least 1")

	// config commands still work so the file can be repaired
	_, _, err = env.run("", "config", "path")
	assert.NoError(t, err)
}
