// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat transcripts in a local SQLite database
// (~/.ragdesk/history.db) so past conversations survive restarts.
//
// Transcripts are keyed by the chat session ID. Saving the same ID again
// replaces its messages.
package storage
