// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Kind categorizes client errors for handling.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport means the request never produced a response.
	KindTransport
	// KindTimeout means the request or its context deadline expired.
	KindTimeout
	// KindHTTP means the server answered with a failure.
	KindHTTP
	// KindDecode means a success response could not be parsed.
	KindDecode
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Operation names used in Error.Op and log attributes.
const (
	OpListFiles  = "list_files"
	OpUploadFile = "upload_file"
	OpIngestURL  = "ingest_url"
	OpDeleteFile = "delete_file"
	OpAsk        = "ask"
)

// Sentinel errors for errors.Is checks against *Error values.
var (
	ErrTimeout     = errors.New("request timed out")
	ErrUnavailable = errors.New("server unavailable")
)

// Error is returned by every Client method on failure.
type Error struct {
	Kind Kind
	Op   string
	// Status is the HTTP status code, or 0 when no response arrived.
	Status int
	// ServerMessage is the backend's explanation ("detail" or "message").
	ServerMessage string
	Cause         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch {
	case e.ServerMessage != "":
		b.WriteString(e.ServerMessage)
	case e.Status != 0:
		fmt.Fprintf(&b, "server returned status %d", e.Status)
	default:
		b.WriteString(e.Kind.String() + " error")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether e matches one of the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnavailable:
		return e.Kind == KindTransport || e.Kind == KindTimeout
	}
	return false
}

// UserMessage returns the server's explanation for operations whose
// backend replies are meant for people (upload, delete, URL ingestion).
// Anything else yields fallback.
func (e *Error) UserMessage(fallback string) string {
	if e.ServerMessage == "" {
		return fallback
	}
	switch e.Op {
	case OpUploadFile, OpDeleteFile, OpIngestURL:
		return e.ServerMessage
	}
	return fallback
}

// UserMessage is the package-level form of (*Error).UserMessage for
// arbitrary errors.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage(fallback)
	}
	return fallback
}

// transportError classifies an error from http.Client.Do.
func transportError(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Op: op, Cause: err}
	}
	return &Error{Kind: KindTransport, Op: op, Cause: err}
}

// errorBody covers the shapes the backend uses for failures.
// FastAPI puts a string (or a list of validation items) in "detail".
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// serverMessage extracts a readable explanation from an error body.
func serverMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		// Plain text bodies are passed through when short.
		if len(trimmed) <= 200 && !strings.HasPrefix(trimmed, "<") {
			return trimmed
		}
		return ""
	}

	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}
