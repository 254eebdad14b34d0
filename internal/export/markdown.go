// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes a transcript as a Markdown document. Message
// content is already Markdown and is written unchanged.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter. Nil opts uses
// DefaultOptions.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

func (e *MarkdownExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(t.Title))
		fmt.Fprintf(&sb, "id: %s\n", t.ID)
		fmt.Fprintf(&sb, "created: %s\n", t.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "updated: %s\n", t.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(t.Title))

	for i, m := range t.Messages {
		label := roleLabel(m)
		if e.options.IncludeTimestamps && !m.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, m.Timestamp.Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}
		sb.WriteString(strings.TrimSpace(m.Content))
		sb.WriteString("\n\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

func roleLabel(m chat.Message) string {
	switch {
	case m.Role == chat.RoleUser:
		return "You"
	case m.Synthetic:
		return "Assistant (local)"
	default:
		return "Assistant"
	}
}

// =============================================================================
// ESCAPING
// =============================================================================

// escapeMarkdown escapes characters that would change a heading's meaning.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
	)
	return r.Replace(s)
}

// escapeYAML quotes a front-matter value when it holds YAML syntax.
func escapeYAML(s string) string {
	if !strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") && !strings.HasPrefix(s, " ") && !strings.HasSuffix(s, " ") {
		return s
	}
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return `"` + r.Replace(s) + `"`
}
