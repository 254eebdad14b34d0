// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the state directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RAGDESK_HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Server.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.Timeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce())
	assert.True(t, cfg.Chat.Welcome)
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoad_TOMLOverDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `
[server]
base_url = "https://rag.internal.example/"

[upload]
policy = "Parallel"
parallelism = 3

[chat]
welcome = false
tenant_id = "acme"
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://rag.internal.example", cfg.Server.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 120, cfg.Server.TimeoutSecs, "absent keys keep defaults")
	assert.Equal(t, "parallel", cfg.Upload.Policy)
	assert.Equal(t, 3, cfg.Upload.Parallelism)
	assert.False(t, cfg.Chat.Welcome)
	assert.Equal(t, "acme", cfg.Chat.TenantID)
	assert.Equal(t, Default().Upload.AllowedExtensions, cfg.Upload.AllowedExtensions)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{"server":{"base_url":"http://10.0.0.5:9000","timeout_secs":30}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Server.TimeoutSecs)
}

func TestLoad_BrokenTOMLFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[server\nbase_url=")

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, `
[server]
base_url = "ftp://files"
timeout_secs = -5

[upload]
policy = "random"
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{"server.base_url", "server.timeout_secs", "upload.policy"}, fields)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RAGDESK_SERVER_URL", "http://rag:8000")
	t.Setenv("RAGDESK_TIMEOUT", "15")
	t.Setenv("RAGDESK_UPLOAD_POLICY", "parallel")
	t.Setenv("RAGDESK_UPLOAD_PARALLELISM", "2")
	t.Setenv("RAGDESK_LOG_LEVEL", "debug")
	t.Setenv("RAGDESK_NO_HISTORY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://rag:8000", cfg.Server.BaseURL)
	assert.Equal(t, 15, cfg.Server.TimeoutSecs)
	assert.Equal(t, "parallel", cfg.Upload.Policy)
	assert.Equal(t, 2, cfg.Upload.Parallelism)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Chat.PersistHistory)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "RAGDESK_TENANT_ID=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("RAGDESK_TENANT_ID") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Chat.TenantID)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Chat.TenantID = "team-a"
	cfg.Upload.AllowedExtensions = []string{".md"}
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# ragdesk configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "team-a", loaded.Chat.TenantID)
	assert.Equal(t, []string{".md"}, loaded.Upload.AllowedExtensions)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("server.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", v)

	require.NoError(t, cfg.Set("server.timeout_secs", "45"))
	require.NoError(t, cfg.Set("server.requests_per_second", "2.5"))
	require.NoError(t, cfg.Set("chat.refinement", "true"))
	require.NoError(t, cfg.Set("upload.allowed_extensions", ".pdf, .md"))

	assert.Equal(t, 45, cfg.Server.TimeoutSecs)
	assert.Equal(t, 2.5, cfg.Server.RequestsPerSecond)
	assert.True(t, cfg.Chat.Refinement)
	assert.Equal(t, []string{".pdf", ".md"}, cfg.Upload.AllowedExtensions)

	_, err = cfg.Get("server.nope")
	assert.Error(t, err)
	_, err = cfg.Get("server")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("chat.refinement", "maybe"))
}

func TestAllKeys(t *testing.T) {
	keys := AllKeys()
	assert.Contains(t, keys, "server.base_url")
	assert.Contains(t, keys, "upload.allowed_extensions")
	assert.Contains(t, keys, "watch.debounce_ms")
	assert.Equal(t, "version", keys[0])

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, "key %s", k)
	}
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
