// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"os"
	"strings"

	"github.com/muesli/termenv"
)

// Theme is the user's stored colour preference.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// ParseTheme accepts "system", "light" or "dark" (case-insensitive), as
// typed by a user.
func ParseTheme(s string) (Theme, bool) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return ThemeSystem, false
	}
	return t, true
}

// Valid reports whether t is exactly one of the three themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return true
	}
	return false
}

func (t Theme) String() string {
	return string(t)
}

// Scheme is a resolved colour scheme.
type Scheme string

const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
)

// SchemeSource reports the operating environment's current colour scheme.
// It is asked on every Resolve, so changes show up without a restart.
type SchemeSource interface {
	Scheme() Scheme
}

// SchemeFunc adapts a function to SchemeSource.
type SchemeFunc func() Scheme

func (f SchemeFunc) Scheme() Scheme { return f() }

// SchemeEnv names the variable that overrides terminal detection.
const SchemeEnv = "RAGDESK_COLOR_SCHEME"

// TerminalSource asks the terminal for its background colour, unless
// RAGDESK_COLOR_SCHEME is "light" or "dark".
type TerminalSource struct {
	// Getenv and HasDarkBackground default to os.Getenv and termenv.
	Getenv            func(string) string
	HasDarkBackground func() bool
}

func (s TerminalSource) Scheme() Scheme {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	switch strings.ToLower(strings.TrimSpace(getenv(SchemeEnv))) {
	case "light":
		return SchemeLight
	case "dark":
		return SchemeDark
	}

	dark := s.HasDarkBackground
	if dark == nil {
		dark = termenv.HasDarkBackground
	}
	if dark() {
		return SchemeDark
	}
	return SchemeLight
}
