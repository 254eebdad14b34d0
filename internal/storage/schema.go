// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema creates the transcript tables. Timestamps are Unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS transcripts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT NOT NULL,
    transcript_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    role TEXT NOT NULL,         -- user, assistant
    content TEXT NOT NULL,
    synthetic INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    PRIMARY KEY(transcript_id, seq),
    FOREIGN KEY(transcript_id) REFERENCES transcripts(id) ON DELETE CASCADE
);
`

// InitMetadata records the schema version on first open.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
