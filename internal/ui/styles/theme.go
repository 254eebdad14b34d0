// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/ragdesk/internal/prefs"
	"github.com/jeranaias/ragdesk/internal/status"
)

// Theme holds the styles for one color scheme.
type Theme struct {
	Scheme       prefs.Scheme
	Palette      Palette
	ColorProfile termenv.Profile

	// Markdown is the glamour standard style name for answers.
	Markdown string

	// ==========================================================================
	// CHAT
	// ==========================================================================

	Title     lipgloss.Style
	Prompt    lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Answer    lipgloss.Style
	Synthetic lipgloss.Style
	Timestamp lipgloss.Style

	// ==========================================================================
	// STATUS LOG
	// ==========================================================================

	Info    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style

	// ==========================================================================
	// FILE LIST
	// ==========================================================================

	TableHeader lipgloss.Style
	Pending     lipgloss.Style
	Muted       lipgloss.Style
	Box         lipgloss.Style
}

// NewTheme builds the theme for a resolved scheme.
func NewTheme(scheme prefs.Scheme) *Theme {
	if scheme != prefs.SchemeLight {
		scheme = prefs.SchemeDark
	}
	t := &Theme{
		Scheme:       scheme,
		Palette:      PaletteFor(scheme),
		ColorProfile: termenv.ColorProfile(),
		Markdown:     glamourstyles.DarkStyle,
	}
	if scheme == prefs.SchemeLight {
		t.Markdown = glamourstyles.LightStyle
	}
	t.initStyles()
	return t
}

// NoColorTheme renders everything as plain text. Used for --json output,
// NO_COLOR and non-terminal writers.
func NoColorTheme() *Theme {
	t := &Theme{
		Scheme:       prefs.SchemeDark,
		ColorProfile: termenv.Ascii,
		Markdown:     glamourstyles.NoTTYStyle,
	}
	// Zero styles render input unchanged.
	return t
}

func (t *Theme) initStyles() {
	p := t.Palette

	t.Title = lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
	t.Prompt = lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
	t.UserLabel = lipgloss.NewStyle().Foreground(p.User).Bold(true)
	t.BotLabel = lipgloss.NewStyle().Foreground(p.Assistant).Bold(true)
	t.Answer = lipgloss.NewStyle().Foreground(p.Text)
	t.Synthetic = lipgloss.NewStyle().Foreground(p.Muted).Italic(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(p.Muted)

	t.Info = lipgloss.NewStyle().Foreground(p.Text)
	t.Success = lipgloss.NewStyle().Foreground(p.Success)
	t.Error = lipgloss.NewStyle().Foreground(p.Error).Bold(true)
	t.Warning = lipgloss.NewStyle().Foreground(p.Warning)

	t.TableHeader = lipgloss.NewStyle().Foreground(p.Accent).Bold(true).Underline(true)
	t.Pending = lipgloss.NewStyle().Foreground(p.Warning).Italic(true)
	t.Muted = lipgloss.NewStyle().Foreground(p.Muted)
	t.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)
}

// StatusStyle returns the style for a status event kind.
func (t *Theme) StatusStyle(kind status.Kind) lipgloss.Style {
	switch kind {
	case status.Success:
		return t.Success
	case status.Error:
		return t.Error
	default:
		return t.Info
	}
}

// RenderStatus renders a status line with its indicator.
func (t *Theme) RenderStatus(kind status.Kind, msg string) string {
	return t.StatusStyle(kind).Render(Indicator(kind) + " " + msg)
}
