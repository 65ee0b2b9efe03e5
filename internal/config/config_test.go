package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  http_addr: \":8080\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, defaultAppLogLevel, cfg.App.LogLevel)
	assert.Equal(t, defaultSessionTTL, cfg.Chat.SessionTTL)
	assert.Equal(t, defaultSweepInterval, cfg.Chat.SweepInterval)
	assert.Equal(t, defaultMaxMessageLen, cfg.Chat.MaxMessageLen)
	assert.False(t, cfg.Model.Enabled)
	assert.Equal(t, defaultModelTimeout, cfg.Model.TimeoutSeconds)
	assert.False(t, cfg.Audit.Enabled())
}

func TestLoadKeepsExplicitZero(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "chat:\n  session_ttl: 0\n  sweep_interval: 15s\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Chat.SessionTTL)
	assert.Equal(t, 15*time.Second, cfg.Chat.SweepInterval)
}

func TestLoadIncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "app:\n  log_level: debug\n  http_addr: \":7000\"\naudit:\n  path: data/chat.db\n")
	path := writeFile(t, dir, "config.yaml", "include:\n  - base.yaml\napp:\n  http_addr: \":7001\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":7001", cfg.App.HTTPAddr)
	assert.True(t, cfg.Audit.Enabled())
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadValidatesModel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "model:\n  enabled: true\n  api_url: https://example.com/v1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.model")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  log_level: loud\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadReadsAPIKeyFromEnv(t *testing.T) {
	t.Setenv(EnvModelAPIKey, "sk-test")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "model:\n  enabled: true\n  api_url: https://example.com/v1\n  model: gpt-4o-mini\n  timeout_seconds: 5\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout())
}

func TestResolve(t *testing.T) {
	t.Run("missing default falls back", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv(EnvConfigPath, "")
		cfg, path, err := Resolve()
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Equal(t, defaultAppHTTPAddr, cfg.App.HTTPAddr)
	})
	t.Run("missing explicit path errors", func(t *testing.T) {
		t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "nope.yaml"))
		_, _, err := Resolve()
		assert.Error(t, err)
	})
	t.Run("explicit path loads", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "c.yaml", "chat:\n  max_message_len: 10\n")
		t.Setenv(EnvConfigPath, path)
		cfg, got, err := Resolve()
		require.NoError(t, err)
		assert.Equal(t, path, got)
		assert.Equal(t, 10, cfg.Chat.MaxMessageLen)
	})
}

func TestLoadIncludeAcceptsSingleStringAndSharedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.yaml", "app:\n  log_level: warn\nchat:\n  max_message_len: 300\n")
	writeFile(t, dir, "model.yaml", "include: common.yaml\nmodel:\n  temperature: 0\n")
	path := writeFile(t, dir, "config.yaml", "include:\n  - common.yaml\n  - model.yaml\nchat:\n  max_message_len: 500\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, 500, cfg.Chat.MaxMessageLen)
	assert.Equal(t, float64(0), cfg.Model.Temperature, "explicit zero survives defaults")
	assert.Equal(t, defaultModelRetries, cfg.Model.MaxRetries)
}

func TestLoadRejectsMalformedInclude(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "include:\n  nested: true\n")
	_, err := Load(path)
	assert.Error(t, err)
}
