// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragdesk/internal/status"
)

// Indicator returns the ASCII prefix for a status kind.
func Indicator(kind status.Kind) string {
	switch kind {
	case status.Success:
		return "[OK]"
	case status.Error:
		return "[ERR]"
	default:
		return "[..]"
	}
}

// WaitSpinner is shown while a question or upload is outstanding.
var WaitSpinner = spinner.Line

// NewWaitSpinner returns a spinner model on its first frame.
func NewWaitSpinner(style lipgloss.Style) spinner.Model {
	return spinner.New(spinner.WithSpinner(WaitSpinner), spinner.WithStyle(style))
}
