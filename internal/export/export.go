// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ragdesk/internal/storage"
	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a transcript to one output format.
type Exporter interface {
	Export(t *storage.Transcript) ([]byte, error)

	// FileExtension includes the leading dot.
	FileExtension() string
}

var (
	ErrNilTranscript   = errors.New("transcript is nil")
	ErrEmptyTranscript = errors.New("transcript has no messages")
	ErrUnknownFormat   = errors.New("unknown export format")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds a front-matter block with ID and dates.
	IncludeMetadata bool

	// IncludeTimestamps adds a time to each message heading.
	IncludeTimestamps bool

	// Now is used for the "exported" stamp. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Formats lists the names ForFormat accepts.
func Formats() []string {
	return []string{"markdown", "json"}
}

// ForFormat returns the exporter for a format name. "md" is an alias for
// markdown.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("%w %q (expected %s)", ErrUnknownFormat, format, strings.Join(Formats(), " or "))
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// ToFile writes the export into dir and returns the file path. The name is
// built from the title and the first eight characters of the ID.
func ToFile(t *storage.Transcript, exp Exporter, dir string) (string, error) {
	content, err := exp.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if dir == "" {
		dir = "."
	}

	name := fmt.Sprintf("%s_%s%s", sanitizeFilename(t.Title), shortID(t.ID), exp.FileExtension())
	path := filepath.Join(dir, name)
	if err := util.AtomicWriteFileWithDir(path, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// WriteFile writes the export to an exact path.
func WriteFile(t *storage.Transcript, exp Exporter, path string) error {
	content, err := exp.Export(t)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, content, 0644, 0755); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validate(t *storage.Transcript) error {
	if t == nil {
		return ErrNilTranscript
	}
	if len(t.Messages) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

const maxFilenameRunes = 50

// sanitizeFilename replaces characters that are invalid in file names on
// Windows or Unix.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), maxFilenameRunes)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}
