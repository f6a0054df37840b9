// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/config"
)

func TestConfigSetGet(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{name: "api url", key: "api-url", val: "https://items.example.com", want: "https://items.example.com"},
		{name: "nested int", key: "bulk.concurrency", val: "16", want: "16"},
		{name: "duration", key: "bulk.poll_interval", val: "2s", want: "2s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			t.Setenv(config.EnvAPIURL, "")
			t.Setenv("BULKCTL_BULK_POLL_INTERVAL", "")

			out, _, err := env.run("", "config", "set", tt.key, tt.val)
			require.NoError(t, err)
			assert.Contains(t, out, tt.key+" set to "+tt.val)

			out, _, err = env.run("", "config", "get", tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestConfigSet_Rejects(t *testing.T) {
	env := newTestEnv(t, 0)

	_, _, err := env.run("", "config", "set", "bulk.concurrency", "0")
	assert.ErrorContains(t, err, "bulk.concurrency must be at least 1")

	_, _, err = env.run("", "config", "set", "colour", "blue")
	assert.ErrorContains(t, err, "unknown config key")

	_, _, err = env.run("", "config", "set", "api-url")
	assert.ErrorContains(t, err, "a value is required")
}

func TestConfigAPIKey(t *testing.T) {
	env := newTestEnv(t, 0)
	t.Setenv(config.EnvAPIKey, "")

	out, _, err := env.run("", "config", "get", "api-key")
	require.NoError(t, err)
	assert.Equal(t, "(not set)", strings.TrimSpace(out))

	out, _, err = env.run("sk_live_abcdef123456\n", "config", "set", "api-key")
	require.NoError(t, err)
	assert.Contains(t, out, "stored in system keyring")
	assert.NotContains(t, out, "sk_live_abcdef123456")

	out, _, err = env.run("", "config", "get", "api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk_l****************", strings.TrimSpace(out))

	out, _, err = env.run("", "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key = sk_l****************")
	assert.Contains(t, out, "bulk.concurrency = 8")
	assert.NotContains(t, out, "abcdef")

	_, _, err = env.run("", "config", "set", "api-key", "short")
	assert.ErrorContains(t, err, "invalid API key format")

	out, _, err = env.run("", "config", "clear-key")
	require.NoError(t, err)
	assert.Contains(t, out, "API key removed")

	out, _, err = env.run("", "config", "get", "api-key")
	require.NoError(t, err)
	assert.Equal(t, "(not set)", strings.TrimSpace(out))
}

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t, 0)

	out, _, err := env.run("", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, env.configFile, strings.TrimSpace(out))
}
