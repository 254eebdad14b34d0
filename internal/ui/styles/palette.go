// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragdesk/internal/prefs"
)

// Palette is the set of colors for one scheme.
type Palette struct {
	Accent    lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Border    lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

// =============================================================================
// SCHEMES
// =============================================================================

// LightPalette is used on light backgrounds.
var LightPalette = Palette{
	Accent:    "#0891B2",
	User:      "#1E40AF",
	Assistant: "#5B4B8A",
	Text:      "#1F2937",
	Muted:     "#6B7280",
	Border:    "#D4D4D4",
	Success:   "#059669",
	Warning:   "#B45309",
	Error:     "#E11D48",
}

// DarkPalette is used on dark backgrounds.
var DarkPalette = Palette{
	Accent:    "#22D3EE",
	User:      "#93C5FD",
	Assistant: "#C4B5FD",
	Text:      "#CDD6F4",
	Muted:     "#6C7086",
	Border:    "#45475A",
	Success:   "#34D399",
	Warning:   "#FBBF24",
	Error:     "#FB7185",
}

// PaletteFor returns the palette for a resolved scheme. Anything other than
// light gets the dark palette.
func PaletteFor(scheme prefs.Scheme) Palette {
	if scheme == prefs.SchemeLight {
		return LightPalette
	}
	return DarkPalette
}
