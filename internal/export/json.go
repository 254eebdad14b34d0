// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/ragdesk/internal/storage"
)

// JSONExporter writes the complete transcript, ignoring Options.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

type jsonMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Synthetic bool      `json:"synthetic,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type jsonTranscript struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []jsonMessage `json:"messages"`
}

func (e *JSONExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	out := jsonTranscript{
		ID:        t.ID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Messages:  make([]jsonMessage, len(t.Messages)),
	}
	for i, m := range t.Messages {
		out.Messages[i] = jsonMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Synthetic: m.Synthetic,
			Timestamp: m.Timestamp,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

func (e *JSONExporter) FileExtension() string {
	return ".json"
}
