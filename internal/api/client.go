// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/ragdesk/internal/logging"
)

// maxErrorBody bounds how much of a failure body is read.
const maxErrorBody = 64 << 10

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the client.
type ClientConfig struct {
	// BaseURL is the backend root (default: http://127.0.0.1:8000).
	BaseURL string

	// Timeout bounds each request, including the body transfer (default: 120s).
	// Ingestion embeds documents server-side and can take a while.
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests; 0 disables pacing.
	RequestsPerSecond float64

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger receives debug records for each request.
	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8000",
		Timeout: 120 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the RAG backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a client with the default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client, filling zero values from DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()

	base := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if base == "" {
		base = defaults.BaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaults.Timeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		limiter:    limiter,
		log:        logging.OrDiscard(config.Logger),
	}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// FILE OPERATIONS
// =============================================================================

// ListFiles returns the server's authoritative list of ingested documents.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var result ListFilesResponse
	if err := c.do(ctx, OpListFiles, http.MethodGet, "/api/files", nil, "", &result); err != nil {
		return nil, err
	}
	if result.Status != "" && result.Status != "success" {
		return nil, &Error{Kind: KindHTTP, Op: OpListFiles, Status: http.StatusOK,
			ServerMessage: "unexpected status " + result.Status}
	}
	if result.Files == nil {
		result.Files = []FileInfo{}
	}
	return result.Files, nil
}

// UploadFile sends one document as multipart field "file". The body is
// streamed from r; r is not closed.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (*IngestResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()
	// Unblocks the writer goroutine if the request ends before the body does.
	defer pr.Close()

	var result IngestResponse
	if err := c.do(ctx, OpUploadFile, http.MethodPost, "/api/ingest/file", pr, mw.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IngestURL asks the backend to download and ingest a document link.
// The URL travels both as a query parameter and in the JSON body.
func (c *Client) IngestURL(ctx context.Context, link string) (*IngestResponse, error) {
	body, err := json.Marshal(IngestURLRequest{URL: link})
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: OpIngestURL, Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}

	path := "/api/ingest/url?" + url.Values{"url": {link}}.Encode()
	var result IngestResponse
	if err := c.do(ctx, OpIngestURL, http.MethodPost, path, bytes.NewReader(body), "application/json", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteFile removes a document. A 2xx reply whose status is not "success"
// is reported as a failure carrying the server's message.
func (c *Client) DeleteFile(ctx context.Context, filename string) (*DeleteResponse, error) {
	var result DeleteResponse
	path := "/api/file/" + url.PathEscape(filename)
	if err := c.do(ctx, OpDeleteFile, http.MethodDelete, path, nil, "", &result); err != nil {
		return nil, err
	}
	if result.Status != "success" {
		msg := result.Message
		if msg == "" {
			msg = "delete was not confirmed by the server"
		}
		return &result, &Error{Kind: KindHTTP, Op: OpDeleteFile, Status: http.StatusOK, ServerMessage: msg}
	}
	return &result, nil
}

// =============================================================================
// ASK
// =============================================================================

// Ask sends one question and returns the server's answer.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: OpAsk, Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}

	var result AskResponse
	if err := c.do(ctx, OpAsk, http.MethodPost, "/api/ask", bytes.NewReader(body), "application/json", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return transportError(op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", op, "method", method, "path", path, "err", err)
		return transportError(op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request done", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Kind:          KindHTTP,
			Op:            op,
			Status:        resp.StatusCode,
			ServerMessage: serverMessage(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
