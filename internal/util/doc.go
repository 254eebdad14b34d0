// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ragdesk.
//
// String Utilities:
//   - TruncateRunes, TruncateWidth, PadWidth: display-safe truncation
//   - SingleLine: collapse multi-line text for listings
//   - FormatBytes: human readable sizes for the document list
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
