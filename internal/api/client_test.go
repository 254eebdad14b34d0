// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

// =============================================================================
// LIST FILES
// =============================================================================

func TestListFiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/files", r.URL.Path)
		io.WriteString(w, `{"status":"success","files":[
			{"filename":"a.pdf","file_size":2048,"upload_time":"2025-03-01T10:00:00"},
			{"filename":"b.txt","file_size":null,"upload_time":null}]}`)
	})

	files, err := c.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "a.pdf", files[0].Filename)
	assert.Equal(t, int64(2048), files[0].Size())
	assert.Equal(t, 2025, files[0].UploadedAt().Year())

	assert.Equal(t, int64(-1), files[1].Size())
	assert.True(t, files[1].UploadedAt().IsZero())
}

func TestListFiles_EmptyIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"success"}`)
	})

	files, err := c.ListFiles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestListFiles_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail":"database locked"}`)
	})

	_, err := c.ListFiles(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindHTTP, apiErr.Kind)
	assert.Equal(t, OpListFiles, apiErr.Op)
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, "database locked", apiErr.ServerMessage)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

// =============================================================================
// UPLOAD
// =============================================================================

func TestUploadFile_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ingest/file", r.URL.Path)

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "notes.md", hdr.Filename)
		assert.Equal(t, "# hello", string(data))
		io.WriteString(w, `{"status":"success","filename":"notes.md","chunks":3}`)
	})

	resp, err := c.UploadFile(context.Background(), "notes.md", strings.NewReader("# hello"))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Chunks)
	assert.Equal(t, "notes.md", resp.Filename)
}

func TestUploadFile_DetailSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusUnsupportedMediaType)
		io.WriteString(w, `{"detail":"Unsupported file type"}`)
	})

	_, err := c.UploadFile(context.Background(), "x.exe", strings.NewReader("MZ"))
	require.Error(t, err)
	assert.Equal(t, "Unsupported file type", UserMessage(err, "Upload failed"))
	assert.Contains(t, err.Error(), "Unsupported file type")
}

// =============================================================================
// INGEST URL
// =============================================================================

func TestIngestURL_QueryAndBody(t *testing.T) {
	const link = "https://example.com/docs/guide.pdf?v=2"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ingest/url", r.URL.Path)
		assert.Equal(t, link, r.URL.Query().Get("url"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body IngestURLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, link, body.URL)

		io.WriteString(w, `{"status":"success","url":"`+link+`","chunks":12}`)
	})

	resp, err := c.IngestURL(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, 12, resp.Chunks)
}

func TestIngestURL_ValidationDetailList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":[{"loc":["query","url"],"msg":"field required","type":"value_error.missing"}]}`)
	})

	_, err := c.IngestURL(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "field required", UserMessage(err, "fallback"))
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteFile_PathEscaped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/file/Q1%20report%20%231.pdf", r.URL.EscapedPath())
		io.WriteString(w, `{"status":"success","deleted_count":4,"message":"deleted"}`)
	})

	resp, err := c.DeleteFile(context.Background(), "Q1 report #1.pdf")
	require.NoError(t, err)
	assert.Equal(t, 4, resp.DeletedCount)
}

func TestDeleteFile_NonSuccessStatusIsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"error","message":"File not found in vector store"}`)
	})

	_, err := c.DeleteFile(context.Background(), "ghost.pdf")
	require.Error(t, err)
	assert.Equal(t, "File not found in vector store", UserMessage(err, "Delete failed"))
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ask", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"question":"what is in the report?","tenant_id":"acme"}`, string(raw))
		io.WriteString(w, `{"answer":"Revenue grew.","citations":[0,2]}`)
	})

	resp, err := c.Ask(context.Background(), AskRequest{Question: "what is in the report?", TenantID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew.", resp.Answer)
	assert.Len(t, resp.Citations, 2)
}

func TestAsk_ServerMessageNotForUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail":"Traceback ..."}`)
	})

	_, err := c.Ask(context.Background(), AskRequest{Question: "hi"})
	require.Error(t, err)
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
}

func TestAsk_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"answer":`)
	})

	_, err := c.Ask(context.Background(), AskRequest{Question: "hi"})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindDecode, apiErr.Kind)
}

// =============================================================================
// TRANSPORT
// =============================================================================

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.ListFiles(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: base, Timeout: time.Second})
	_, err := c.Ask(context.Background(), AskRequest{Question: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestRateLimitPacesRequests(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"status":"success","files":[]}`)
	})
	c = NewClientWithConfig(&ClientConfig{BaseURL: c.BaseURL(), RequestsPerSecond: 20})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.ListFiles(context.Background())
		require.NoError(t, err)
	}
	// Burst of one: the 2nd and 3rd requests each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestDefaultConfig(t *testing.T) {
	c := NewClientWithConfig(nil)
	assert.Equal(t, "http://127.0.0.1:8000", c.BaseURL())
}

// =============================================================================
// ERROR BODIES
// =============================================================================

func TestServerMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", ""},
		{"detail string", `{"detail":"nope"}`, "nope"},
		{"message", `{"message":"bad file"}`, "bad file"},
		{"error", `{"error":"boom"}`, "boom"},
		{"plain text", "Internal Server Error", "Internal Server Error"},
		{"html", "<html><body>502</body></html>", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serverMessage([]byte(tc.body)))
		})
	}
}
