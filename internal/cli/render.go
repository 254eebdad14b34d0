// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Text rendering of files, status events and chat messages.

package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/status"
	"github.com/jeranaias/ragdesk/internal/storage"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
	"github.com/jeranaias/ragdesk/internal/upload"
	"github.com/jeranaias/ragdesk/internal/util"
)

const (
	nameColumnMax  = 48
	sizeColumn     = 10
	dateColumn     = 16
	titleColumnMax = 50
	timeLayout     = "2006-01-02 15:04"
)

// Renderer turns component state into terminal text.
type Renderer struct {
	theme *styles.Theme
	width int
	md    *glamour.TermRenderer
}

// NewRenderer creates a renderer. Markdown is rendered with glamour only when
// the theme has color; plain output keeps the answer's raw markdown.
func NewRenderer(theme *styles.Theme, width int, log *slog.Logger) *Renderer {
	r := &Renderer{theme: theme, width: width}
	if theme.ColorProfile == termenv.Ascii {
		return r
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.Markdown),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn("markdown rendering disabled", "err", err)
		return r
	}
	r.md = md
	return r
}

// Markdown renders answer text.
func (r *Renderer) Markdown(s string) string {
	if r.md == nil {
		return s
	}
	out, err := r.md.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

// Message renders one chat message with its label.
func (r *Renderer) Message(m chat.Message) string {
	t := r.theme
	stamp := t.Timestamp.Render(m.Timestamp.Format("15:04"))

	if m.IsUser() {
		return fmt.Sprintf("%s %s\n%s", t.UserLabel.Render("You"), stamp, m.Content)
	}

	label := t.BotLabel.Render("Assistant")
	if m.Synthetic {
		return fmt.Sprintf("%s %s\n%s", label, stamp, t.Synthetic.Render(m.Content))
	}
	return fmt.Sprintf("%s %s\n%s", label, stamp, r.Markdown(m.Content))
}

// Event renders one status line.
func (r *Renderer) Event(e status.Event) string {
	return r.theme.RenderStatus(e.Kind, e.Message)
}

// Events renders a status log, one event per line.
func (r *Renderer) Events(events []status.Event) string {
	if len(events) == 0 {
		return r.theme.Muted.Render("No operation has run yet.")
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = r.Event(e)
	}
	return strings.Join(lines, "\n")
}

// FileTable renders the document list.
func (r *Renderer) FileTable(files []upload.File) string {
	t := r.theme
	if len(files) == 0 {
		return t.Muted.Render("No documents uploaded yet.")
	}

	nameWidth := len("NAME")
	showState := false
	for _, f := range files {
		nameWidth = max(nameWidth, min(util.DisplayWidth(f.Filename), nameColumnMax))
		if f.State != upload.StateUploaded {
			showState = true
		}
	}

	var sb strings.Builder
	header := util.PadWidth("NAME", nameWidth) + "  " +
		util.PadWidth("SIZE", sizeColumn) + "  " +
		util.PadWidth("UPLOADED", dateColumn)
	if showState {
		header += "  STATE"
	}
	sb.WriteString(t.TableHeader.Render(strings.TrimRight(header, " ")))

	for _, f := range files {
		size := "-"
		if f.SizeBytes >= 0 {
			size = util.FormatBytes(f.SizeBytes)
		}
		uploaded := "-"
		if !f.UploadedAt.IsZero() {
			uploaded = f.UploadedAt.Local().Format(timeLayout)
		}

		line := util.PadWidth(f.Filename, nameWidth) + "  " +
			util.PadWidth(size, sizeColumn) + "  " +
			util.PadWidth(uploaded, dateColumn)
		if showState {
			line += "  " + f.State.String()
		}
		line = strings.TrimRight(line, " ")

		sb.WriteString("\n")
		if f.State.InFlight() {
			sb.WriteString(t.Pending.Render(line))
		} else {
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// Summaries renders the stored transcript list.
func (r *Renderer) Summaries(list []storage.Summary) string {
	t := r.theme
	if len(list) == 0 {
		return t.Muted.Render("No saved conversations.")
	}

	var sb strings.Builder
	sb.WriteString(t.TableHeader.Render(fmt.Sprintf("%-8s  %-*s  %-16s  %s", "ID", titleColumnMax, "TITLE", "UPDATED", "MESSAGES")))
	for _, s := range list {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		title := util.PadWidth(util.SingleLine(s.Title), titleColumnMax)
		sb.WriteString(fmt.Sprintf("\n%-8s  %s  %-16s  %d", id, title, s.UpdatedAt.Local().Format(timeLayout), s.MessageCount))
	}
	return sb.String()
}
