// ABOUTME: Tests for CLI path resolution, flag parsing, init, and the color log handler
// ABOUTME: Uses t.Setenv and temp dirs so nothing touches the real home directory

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/trendclaw/internal/auth"
	"github.com/2389/trendclaw/internal/config"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("TRENDCLAW_CONFIG", "/etc/tc.toml")
	assert.Equal(t, "/etc/tc.toml", getConfigPath())

	t.Setenv("TRENDCLAW_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "trendclaw", "config.yaml"), getConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tc")
	assert.Equal(t, filepath.Join("/home/tc", ".config", "trendclaw", "config.yaml"), getConfigPath())
}

func TestIdentityPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg := config.Default()
	assert.Equal(t, filepath.Join("/data", "trendclaw", "identity", "device.json"), identityPath(cfg))

	cfg.Gateway.IdentityPath = "/keys/me.json"
	assert.Equal(t, "/keys/me.json", identityPath(cfg))
}

func TestParseTokenArgs(t *testing.T) {
	id, ttl, err := parseTokenArgs([]string{"--tenant", "acme", "--ttl=2h"})
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: "acme", TenantID: "acme"}, id)
	assert.Equal(t, 2*time.Hour, ttl)

	id, ttl, err = parseTokenArgs([]string{"--tenant=acme", "--user", "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, 30*24*time.Hour, ttl)

	errCases := map[string][]string{
		"missing tenant": {"--user", "u1"},
		"no value":       {"--tenant"},
		"unknown flag":   {"--tenant", "a", "--role", "admin"},
		"positional":     {"acme"},
		"bad ttl":        {"--tenant", "a", "--ttl", "forever"},
		"negative ttl":   {"--tenant", "a", "--ttl", "-1h"},
	}
	for name, args := range errCases {
		_, _, err := parseTokenArgs(args)
		assert.Error(t, err, name)
	}
}

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://localhost:4000/health/ready", healthURL(":4000"))
	assert.Equal(t, "http://localhost:4000/health/ready", healthURL("0.0.0.0:4000"))
	assert.Equal(t, "http://10.0.0.5:4000/health/ready", healthURL("10.0.0.5:4000"))
	assert.Equal(t, "http://[::1]:4000/health/ready", healthURL("[::1]:4000"))
}

func TestRunInitWritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "config.yaml")
	dbPath := filepath.Join(dir, "data", "tc.db")

	answers := strings.Join([]string{
		path,
		":5000",
		"https://tc.example",
		"wss://gw.example",
		"gw-token",
		dbPath,
		"debug",
		"json",
	}, "\n") + "\n"

	require.NoError(t, runInit(strings.NewReader(answers)))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Server.HTTPAddr)
	assert.Equal(t, "https://tc.example", cfg.Server.PublicURL)
	assert.Equal(t, "wss://gw.example", cfg.Gateway.URL)
	assert.Equal(t, "gw-token", cfg.Gateway.Token)
	assert.Equal(t, dbPath, cfg.Database.Path)
	assert.Equal(t, 12*time.Hour, cfg.Monitoring.Interval)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.NotEmpty(t, cfg.Webhook.Token)
	assert.DirExists(t, filepath.Dir(dbPath))
}

func TestColorHandler(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "monitor").WithGroup("job").Warn("slow", "id", "j1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WRN slow component=monitor job.id=j1")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warning", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Error("kept", "n", 1)

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}
