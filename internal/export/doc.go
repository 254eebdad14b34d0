// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved conversations as Markdown or JSON.
//
//	exp, err := export.ForFormat("markdown", nil)
//	path, err := export.ToFile(transcript, exp, ".")
package export
