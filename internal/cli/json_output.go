// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - --json output for scripting.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/ragdesk/internal/status"
	"github.com/jeranaias/ragdesk/internal/upload"
)

// JSONResponse is the envelope for every --json result.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// FileData is one document in "files --json".
type FileData struct {
	Filename   string     `json:"filename"`
	SizeBytes  *int64     `json:"size_bytes"`
	UploadedAt *time.Time `json:"uploaded_at"`
	State      string     `json:"state"`
}

func fileData(files []upload.File) []FileData {
	out := make([]FileData, 0, len(files))
	for _, f := range files {
		d := FileData{Filename: f.Filename, State: f.State.String()}
		if f.SizeBytes >= 0 {
			size := f.SizeBytes
			d.SizeBytes = &size
		}
		if !f.UploadedAt.IsZero() {
			at := f.UploadedAt
			d.UploadedAt = &at
		}
		out = append(out, d)
	}
	return out
}

// EventData is one status log line.
type EventData struct {
	Seq     uint64    `json:"seq"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Unit    string    `json:"unit,omitempty"`
	Time    time.Time `json:"time"`
}

func eventData(events []status.Event) []EventData {
	out := make([]EventData, 0, len(events))
	for _, e := range events {
		out = append(out, EventData{
			Seq:     e.Seq,
			Kind:    e.Kind.String(),
			Message: e.Message,
			Unit:    e.Unit,
			Time:    e.Time,
		})
	}
	return out
}

// UploadResultData is one file in "upload --json".
type UploadResultData struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

// UploadData is the result of "upload --json".
type UploadData struct {
	Policy  string             `json:"policy"`
	Results []UploadResultData `json:"results"`
	Events  []EventData        `json:"events"`
}

// OperationData is the result of "delete --json" and "ingest-url --json".
type OperationData struct {
	Target string      `json:"target"`
	Events []EventData `json:"events"`
}

// AnswerData is the result of "ask --json".
type AnswerData struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Synthetic bool   `json:"synthetic"`
}

// ThemeData is the result of "theme --json".
type ThemeData struct {
	Preference string `json:"preference"`
	Resolved   string `json:"resolved"`
}

// ExportData is the result of "history export --json".
type ExportData struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}
