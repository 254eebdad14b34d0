// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdesk/internal/api"
	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/prefs"
	"github.com/jeranaias/ragdesk/internal/upload"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	mu         sync.Mutex
	files      []string
	failUpload map[string]string
	answer     string
	askStatus  int
	asks       int
	lastAsk    api.AskRequest
}

func newFakeBackend(t *testing.T, setup ...func(*fakeBackend)) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{failUpload: map[string]string{}, answer: "It is **42**."}
	for _, fn := range setup {
		fn(fb)
	}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/files":
		infos := make([]map[string]any, 0, len(fb.files))
		for _, f := range fb.files {
			infos = append(infos, map[string]any{"filename": f, "file_size": 2048, "upload_time": "2024-05-01T10:00:00"})
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "files": infos})

	case r.Method == http.MethodPost && r.URL.Path == "/api/ingest/file":
		_, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if detail, ok := fb.failUpload[hdr.Filename]; ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"detail": detail})
			return
		}
		fb.files = append(fb.files, hdr.Filename)
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "filename": hdr.Filename, "chunks": 4})

	case r.Method == http.MethodPost && r.URL.Path == "/api/ingest/url":
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "url": r.URL.Query().Get("url"), "chunks": 12})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/file/"):
		name := strings.TrimPrefix(r.URL.Path, "/api/file/")
		kept := fb.files[:0]
		for _, f := range fb.files {
			if f != name {
				kept = append(kept, f)
			}
		}
		fb.files = kept
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "deleted_count": 1, "message": "deleted"})

	case r.Method == http.MethodPost && r.URL.Path == "/api/ask":
		fb.asks++
		json.NewDecoder(r.Body).Decode(&fb.lastAsk)
		if fb.askStatus != 0 {
			w.WriteHeader(fb.askStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"answer": fb.answer})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fb *fakeBackend) lastRequest() api.AskRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastAsk
}

func (fb *fakeBackend) askCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.asks
}

// newTestApp builds an App against srv with plain-text output.
func newTestApp(t *testing.T, srv *httptest.Server, args Args) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL
	cfg.Server.TimeoutSecs = 5
	cfg.Chat.Welcome = false

	out := &bytes.Buffer{}
	store := prefs.NewStore(prefs.NewMemoryBackend(nil), prefs.SchemeFunc(func() prefs.Scheme { return prefs.SchemeDark }), nil)
	app, err := NewApp(args, cfg, Env{
		In:          strings.NewReader(""),
		Out:         out,
		Err:         io.Discard,
		Prefs:       store,
		HistoryPath: filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app, out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func noTTY(t *testing.T) {
	t.Helper()
	orig := stdinIsTTY
	stdinIsTTY = func() bool { return false }
	t.Cleanup(func() { stdinIsTTY = orig })
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestHandleFiles(t *testing.T) {
	_, srv := newFakeBackend(t, func(fb *fakeBackend) { fb.files = []string{"handbook.pdf"} })
	app, out := newTestApp(t, srv, Args{})

	require.NoError(t, HandleFiles(context.Background(), app))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "handbook.pdf")
	assert.Contains(t, out.String(), "2 KB")
}

func TestHandleFiles_JSON(t *testing.T) {
	_, srv := newFakeBackend(t, func(fb *fakeBackend) { fb.files = []string{"a.pdf", "b.md"} })
	app, out := newTestApp(t, srv, Args{JSON: true})

	require.NoError(t, HandleFiles(context.Background(), app))

	var resp struct {
		Success bool       `json:"success"`
		Data    []FileData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "a.pdf", resp.Data[0].Filename)
	require.NotNil(t, resp.Data[0].SizeBytes)
	assert.Equal(t, int64(2048), *resp.Data[0].SizeBytes)
	assert.Equal(t, "Uploaded", resp.Data[0].State)
}

func TestHandleFiles_ServerDown(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, _ := newTestApp(t, srv, Args{})
	srv.Close()

	err := HandleFiles(context.Background(), app)
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
}

func TestHandleUpload_PartialFailure(t *testing.T) {
	_, srv := newFakeBackend(t, func(fb *fakeBackend) { fb.failUpload["b.txt"] = "Unsupported content" })
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "beta")

	app, out := newTestApp(t, srv, Args{Positional: []string{a, b}})
	err := HandleUpload(context.Background(), app)

	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Equal(t, ExitGeneralError, GetExitCode(err))

	text := out.String()
	assert.Contains(t, text, "Uploaded a.txt. Chunked into 4 pieces.")
	assert.Contains(t, text, "Failed to upload b.txt: Unsupported content")
	assert.Contains(t, text, "1 of 2 uploads failed: b.txt")
	assert.Less(t, strings.Index(text, "a.txt"), strings.Index(text, "b.txt"))

	files := app.Queue.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Filename)
}

func TestHandleUpload_JSON(t *testing.T) {
	_, srv := newFakeBackend(t)
	dir := t.TempDir()
	app, out := newTestApp(t, srv, Args{JSON: true, Parallel: 2, Positional: []string{
		writeFile(t, dir, "a.md", "# a"),
		writeFile(t, dir, "b.md", "# b"),
	}})

	require.NoError(t, HandleUpload(context.Background(), app))

	var resp struct {
		Data UploadData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "parallel(2)", resp.Data.Policy)
	require.Len(t, resp.Data.Results, 2)
	assert.Equal(t, 4, resp.Data.Results[1].Chunks)
	last := resp.Data.Events[len(resp.Data.Events)-1]
	assert.Equal(t, "success", last.Kind)
	assert.Equal(t, "Success! 2 documents are ready for Q&A.", last.Message)
}

func TestHandleDelete_NeedsConfirmation(t *testing.T) {
	noTTY(t)
	_, srv := newFakeBackend(t)
	app, _ := newTestApp(t, srv, Args{Positional: []string{"a.pdf"}})

	err := HandleDelete(context.Background(), app)
	assert.ErrorIs(t, err, errConfirmationRequired)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleDelete_Yes(t *testing.T) {
	_, srv := newFakeBackend(t, func(fb *fakeBackend) { fb.files = []string{"Q1 report.pdf", "keep.md"} })
	app, out := newTestApp(t, srv, Args{Yes: true, Positional: []string{"Q1 report.pdf"}})

	require.NoError(t, HandleDelete(context.Background(), app))
	assert.Contains(t, out.String(), "Deleting Q1 report.pdf...")
	assert.Contains(t, out.String(), "Deleted Q1 report.pdf.")

	files := app.Queue.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "keep.md", files[0].Filename)
}

func TestHandleIngestURL(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, out := newTestApp(t, srv, Args{Positional: []string{"https://github.com/org/repo"}})

	require.NoError(t, HandleIngestURL(context.Background(), app))
	assert.Contains(t, out.String(), "Downloading and ingesting...")
	assert.Contains(t, out.String(), "Chunked into 12 pieces.")
	assert.True(t, app.Queue.HasDocuments())
}

func TestHandleIngestURL_Invalid(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, _ := newTestApp(t, srv, Args{Positional: []string{"not a link"}})

	err := HandleIngestURL(context.Background(), app)
	assert.ErrorIs(t, err, upload.ErrInvalidURL)
	assert.False(t, IsReported(err))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleAsk(t *testing.T) {
	fb, srv := newFakeBackend(t)
	app, out := newTestApp(t, srv, Args{Positional: []string{"What is the answer?"}})
	app.Config.Chat.TenantID = "acme"
	app.Config.Chat.PersistHistory = true

	require.NoError(t, HandleAsk(context.Background(), app))
	assert.Contains(t, out.String(), "It is **42**.")
	assert.Equal(t, "What is the answer?", fb.lastRequest().Question)
	assert.Equal(t, "acme", fb.lastRequest().TenantID)

	store, err := app.History()
	require.NoError(t, err)
	list, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "What is the answer?", list[0].Title)
}

func TestHandleAsk_ServerErrorIsSoftened(t *testing.T) {
	_, srv := newFakeBackend(t, func(fb *fakeBackend) { fb.askStatus = http.StatusInternalServerError })
	app, out := newTestApp(t, srv, Args{Positional: []string{"hello"}})

	err := HandleAsk(context.Background(), app)
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Contains(t, out.String(), chat.FallbackFailure)
	assert.NotContains(t, out.String(), "500")
}

func TestHandleTheme(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, out := newTestApp(t, srv, Args{})

	require.NoError(t, HandleTheme(app))
	assert.Equal(t, "Theme: system (currently dark)\n", out.String())

	out.Reset()
	app.Args.Subcommand = "light"
	require.NoError(t, HandleTheme(app))
	assert.Equal(t, "Theme: light\n", out.String())
	assert.Equal(t, prefs.ThemeLight, app.Prefs.Theme())

	app.Args.Subcommand = "purple"
	err := HandleTheme(app)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Equal(t, prefs.ThemeLight, app.Prefs.Theme())
}

func TestHandleConfig_SetWritesFile(t *testing.T) {
	_, srv := newFakeBackend(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	app, out := newTestApp(t, srv, Args{ConfigPath: path, Subcommand: "set", Positional: []string{"upload.policy", "parallel"}})

	require.NoError(t, HandleConfig(app))
	assert.Contains(t, out.String(), "Set upload.policy = parallel")

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "parallel", cfg.Upload.Policy)
	// --server from the test app is not written back.
	assert.Equal(t, config.Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestHandleConfig_SetRejectsInvalid(t *testing.T) {
	_, srv := newFakeBackend(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	app, _ := newTestApp(t, srv, Args{ConfigPath: path, Subcommand: "set", Positional: []string{"upload.policy", "random"}})

	err := HandleConfig(app)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestHandleConfig_Get(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, out := newTestApp(t, srv, Args{Subcommand: "get", Positional: []string{"server.base_url"}})

	require.NoError(t, HandleConfig(app))
	assert.Equal(t, srv.URL+"\n", out.String())
}

func TestHandleHistory(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, out := newTestApp(t, srv, Args{Positional: []string{"first question"}})
	app.Config.Chat.PersistHistory = true
	require.NoError(t, HandleAsk(context.Background(), app))

	out.Reset()
	app.Args = Args{}
	require.NoError(t, HandleHistory(context.Background(), app))
	assert.Contains(t, out.String(), "first question")

	store, err := app.History()
	require.NoError(t, err)
	list, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	out.Reset()
	app.Args = Args{Subcommand: list[0].ID[:8]}
	require.NoError(t, HandleHistory(context.Background(), app))
	assert.Contains(t, out.String(), "It is **42**.")

	exported := filepath.Join(t.TempDir(), "out", "chat.md")
	app.Args = Args{Subcommand: "export", Positional: []string{list[0].ID[:8]}, Format: "md", Output: exported}
	require.NoError(t, HandleHistory(context.Background(), app))
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# first question")
	assert.Contains(t, string(data), "It is **42**.")

	app.Args = Args{Subcommand: "export", Positional: []string{list[0].ID}, Format: "html"}
	assert.Equal(t, ExitUsageError, GetExitCode(HandleHistory(context.Background(), app)))

	app.Args = Args{Subcommand: "rm", Positional: []string{list[0].ID}}
	require.NoError(t, HandleHistory(context.Background(), app))
	list, err = store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	app.Args = Args{Subcommand: "nope"}
	assert.Equal(t, ExitNotFoundError, GetExitCode(HandleHistory(context.Background(), app)))
}

func TestHandleVersion_JSON(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, out := newTestApp(t, srv, Args{JSON: true})

	require.NoError(t, HandleVersion(app))
	var resp struct {
		Data VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, Version, resp.Data.Version)
}

func TestLoadConfig_ServerOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nbase_url = \"http://file:8000\"\n"), 0600))

	cfg, err := LoadConfig(Args{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "http://file:8000", cfg.Server.BaseURL)

	cfg, err = LoadConfig(Args{ConfigPath: path, Server: "http://flag:9000"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag:9000", cfg.Server.BaseURL)

	_, err = LoadConfig(Args{ConfigPath: path, Server: "not a url"})
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestConfirm(t *testing.T) {
	ok, err := Confirm(strings.NewReader(""), io.Discard, "Delete?", ConfirmationOptions{Yes: true})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Confirm(strings.NewReader("y\n"), io.Discard, "Delete?", ConfirmationOptions{JSONMode: true})
	assert.ErrorIs(t, err, errConfirmationRequired)

	orig := stdinIsTTY
	stdinIsTTY = func() bool { return true }
	defer func() { stdinIsTTY = orig }()

	var prompt bytes.Buffer
	ok, err = Confirm(strings.NewReader("yes\n"), &prompt, "Delete a.pdf?", ConfirmationOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Delete a.pdf? [y/N]: ", prompt.String())

	ok, err = Confirm(strings.NewReader("\n"), io.Discard, "Delete?", ConfirmationOptions{})
	require.NoError(t, err)
	assert.False(t, ok)
}
