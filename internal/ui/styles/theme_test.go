// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragdesk/internal/prefs"
	"github.com/jeranaias/ragdesk/internal/status"
)

func TestNewTheme_PicksPalette(t *testing.T) {
	light := NewTheme(prefs.SchemeLight)
	if light.Palette != LightPalette {
		t.Error("light scheme should use LightPalette")
	}
	if light.Markdown != glamourstyles.LightStyle {
		t.Errorf("light Markdown = %q", light.Markdown)
	}

	dark := NewTheme(prefs.SchemeDark)
	if dark.Palette != DarkPalette {
		t.Error("dark scheme should use DarkPalette")
	}
	if dark.Markdown != glamourstyles.DarkStyle {
		t.Errorf("dark Markdown = %q", dark.Markdown)
	}

	if got := NewTheme(prefs.Scheme("sepia")).Scheme; got != prefs.SchemeDark {
		t.Errorf("unknown scheme resolved to %q, want dark", got)
	}
}

func TestRenderStatus_KeepsMessage(t *testing.T) {
	theme := NewTheme(prefs.SchemeDark)
	for _, kind := range []status.Kind{status.Info, status.Success, status.Error} {
		got := theme.RenderStatus(kind, "Uploaded a.pdf.")
		if !strings.Contains(got, "Uploaded a.pdf.") {
			t.Errorf("%v: message lost in %q", kind, got)
		}
		if !strings.Contains(got, Indicator(kind)) {
			t.Errorf("%v: indicator missing in %q", kind, got)
		}
	}
}

func TestNoColorTheme_Plain(t *testing.T) {
	theme := NoColorTheme()
	if got := theme.RenderStatus(status.Error, "boom"); got != "[ERR] boom" {
		t.Errorf("RenderStatus = %q", got)
	}
	if got := theme.Answer.Render("hello"); got != "hello" {
		t.Errorf("Answer.Render = %q", got)
	}
}

func TestWaitSpinner(t *testing.T) {
	if WaitSpinner.FPS != time.Second/10 {
		t.Errorf("FPS = %v", WaitSpinner.FPS)
	}

	s := NewWaitSpinner(lipgloss.NewStyle())
	if got := s.View(); got != "|" {
		t.Errorf("first frame = %q", got)
	}

	var cmd tea.Cmd
	for _, want := range []string{"/", "-", "\\", "|"} {
		s, cmd = s.Update(s.Tick())
		if cmd == nil {
			t.Fatal("Update should schedule the next tick")
		}
		if got := s.View(); got != want {
			t.Errorf("frame = %q, want %q", got, want)
		}
	}
}
