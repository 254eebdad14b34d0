// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"strings"
	"time"
)

// =============================================================================
// FILES
// =============================================================================

// FileInfo is one document as reported by GET /api/files.
type FileInfo struct {
	Filename string `json:"filename"`
	// FileSize is nil when the server does not know the size.
	FileSize   *int64 `json:"file_size"`
	UploadTime string `json:"upload_time"`
}

// Size returns the size in bytes, or -1 when unknown.
func (f FileInfo) Size() int64 {
	if f.FileSize == nil {
		return -1
	}
	return *f.FileSize
}

// uploadTimeLayouts are the timestamp shapes the backend has been seen to emit.
var uploadTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// UploadedAt parses UploadTime. The zero time means unknown.
func (f FileInfo) UploadedAt() time.Time {
	s := strings.TrimSpace(f.UploadTime)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range uploadTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ListFilesResponse is the body of GET /api/files.
type ListFilesResponse struct {
	Status string     `json:"status"`
	Files  []FileInfo `json:"files"`
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestResponse is returned by both ingestion endpoints.
type IngestResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Chunks   int    `json:"chunks"`
}

// IngestURLRequest is the JSON body of POST /api/ingest/url.
type IngestURLRequest struct {
	URL string `json:"url"`
}

// DeleteResponse is the body of DELETE /api/file/{filename}.
type DeleteResponse struct {
	Status       string `json:"status"`
	DeletedCount int    `json:"deleted_count"`
	Message      string `json:"message"`
}

// =============================================================================
// ASK
// =============================================================================

// AskRequest is the JSON body of POST /api/ask.
type AskRequest struct {
	Question   string `json:"question"`
	TenantID   string `json:"tenant_id,omitempty"`
	PrevAnswer string `json:"prev_answer,omitempty"`
}

// AskResponse is the body of POST /api/ask. Answer is empty when the
// server produced none.
type AskResponse struct {
	Answer    string `json:"answer"`
	Question  string `json:"question,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	Citations []any  `json:"citations,omitempty"`
}
