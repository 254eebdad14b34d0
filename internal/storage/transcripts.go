// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound  = errors.New("transcript not found")
	ErrAmbiguous = errors.New("transcript id prefix matches more than one transcript")
)

// =============================================================================
// TYPES
// =============================================================================

// Transcript is a stored conversation.
type Transcript struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []chat.Message
}

// Summary describes a transcript without its messages.
type Summary struct {
	ID           string
	Title        string
	UpdatedAt    time.Time
	MessageCount int
}

// maxTitleRunes bounds the title derived from the first question.
const maxTitleRunes = 60

// TitleFor returns the first user message, flattened and truncated.
func TitleFor(msgs []chat.Message) string {
	for _, m := range msgs {
		if m.IsUser() {
			return util.TruncateRunes(util.SingleLine(m.Content), maxTitleRunes)
		}
	}
	return "(no questions)"
}

// =============================================================================
// STORE
// =============================================================================

// TranscriptStore is safe for concurrent use.
type TranscriptStore struct {
	db   *sql.DB
	path string
}

// DefaultPath returns ~/.ragdesk/history.db (or under RAGDESK_HOME).
func DefaultPath() (string, error) {
	return config.PathIn("history.db")
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*TranscriptStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &TranscriptStore{db: db, path: path}, nil
}

// OpenDefault opens the database at DefaultPath.
func OpenDefault() (*TranscriptStore, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Path returns the database file path.
func (s *TranscriptStore) Path() string {
	return s.path
}

// Close releases the database.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Save inserts or replaces a transcript and all of its messages.
func (s *TranscriptStore) Save(ctx context.Context, t Transcript) error {
	if t.ID == "" {
		return errors.New("transcript id is required")
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	if t.Title == "" {
		t.Title = TitleFor(t.Messages)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcripts (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		t.ID, t.Title, t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE transcript_id = ?`, t.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, transcript_id, seq, role, content, synthetic, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range t.Messages {
		synthetic := 0
		if m.Synthetic {
			synthetic = 1
		}
		if _, err := stmt.ExecContext(ctx, m.ID, t.ID, i, string(m.Role), m.Content, synthetic, m.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transcript: %w", err)
	}
	return nil
}

// SaveSession stores the current transcript of a chat session. Sessions
// without any user message are skipped.
func (s *TranscriptStore) SaveSession(ctx context.Context, sess *chat.Session) error {
	msgs := sess.Messages()
	hasQuestion := false
	for _, m := range msgs {
		if m.IsUser() {
			hasQuestion = true
			break
		}
	}
	if !hasQuestion {
		return nil
	}

	t := Transcript{ID: sess.ID(), Messages: msgs, UpdatedAt: time.Now()}
	if len(msgs) > 0 {
		t.CreatedAt = msgs[0].Timestamp
	}
	return s.Save(ctx, t)
}

// Delete removes a transcript by exact ID.
func (s *TranscriptStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// List returns transcript summaries, most recently updated first.
// limit <= 0 returns all.
func (s *TranscriptStore) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `
		SELECT t.id, t.title, t.updated_at, COUNT(m.seq)
		FROM transcripts t
		LEFT JOIN messages m ON m.transcript_id = t.id
		GROUP BY t.id
		ORDER BY t.updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated int64
		if err := rows.Scan(&sum.ID, &sum.Title, &updated, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		sum.UpdatedAt = time.Unix(0, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Load returns a transcript by ID or unique ID prefix.
func (s *TranscriptStore) Load(ctx context.Context, idOrPrefix string) (*Transcript, error) {
	id, err := s.resolveID(ctx, strings.TrimSpace(idOrPrefix))
	if err != nil {
		return nil, err
	}

	t := &Transcript{ID: id}
	var created, updated int64
	err = s.db.QueryRowContext(ctx,
		`SELECT title, created_at, updated_at FROM transcripts WHERE id = ?`, id).
		Scan(&t.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, synthetic, created_at
		FROM messages WHERE transcript_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m chat.Message
		var role string
		var synthetic int
		var ts int64
		if err := rows.Scan(&m.ID, &role, &m.Content, &synthetic, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = chat.Role(role)
		m.Synthetic = synthetic != 0
		m.Timestamp = time.Unix(0, ts)
		t.Messages = append(t.Messages, m)
	}
	return t, rows.Err()
}

func (s *TranscriptStore) resolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM transcripts WHERE substr(id, 1, ?) = ? ORDER BY (id = ?) DESC LIMIT 2`,
		len(prefix), prefix, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up transcript: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		if id == prefix {
			return id, nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguous
	}
}
