// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs stores the user's theme preference and resolves it to a
// concrete colour scheme.
//
// The preference is persisted under the key "themePref". A stored value
// other than system, light or dark reads back as system. Resolving
// "system" consults the SchemeSource on every call.
package prefs

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/logging"
	"github.com/jeranaias/ragdesk/internal/notify"
)

// ThemeKey is the persisted key for the theme preference.
const ThemeKey = "themePref"

// Store is safe for concurrent use.
type Store struct {
	backend Backend
	source  SchemeSource
	log     *slog.Logger

	mu    sync.RWMutex
	theme Theme

	hub notify.Hub[Theme]
}

// NewStore creates a store and loads the persisted preference.
func NewStore(backend Backend, source SchemeSource, logger *slog.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend(nil)
	}
	if source == nil {
		source = TerminalSource{}
	}
	s := &Store{
		backend: backend,
		source:  source,
		log:     logging.OrDiscard(logger),
		theme:   ThemeSystem,
	}
	s.Load()
	return s
}

// Load re-reads the persisted preference. Absent, unreadable or invalid
// values yield ThemeSystem. Stored values must match exactly; "Dark" is
// invalid.
func (s *Store) Load() Theme {
	theme := ThemeSystem
	raw, ok, err := s.backend.Get(ThemeKey)
	switch {
	case err != nil:
		s.log.Warn("failed to read theme preference", "err", err)
	case ok:
		if t := Theme(raw); t.Valid() {
			theme = t
		} else {
			s.log.Warn("ignoring invalid theme preference", "value", raw)
		}
	}

	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	return theme
}

// Theme returns the in-memory preference.
func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// Set updates the preference and persists it before subscribers are
// told. The in-memory value changes even if persisting fails.
func (s *Store) Set(theme Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("invalid theme %q, must be one of: system, light, dark", theme)
	}

	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()

	err := s.backend.Set(ThemeKey, string(theme))
	s.hub.Publish(theme)
	if err != nil {
		return fmt.Errorf("failed to persist theme preference: %w", err)
	}
	return nil
}

// Resolve maps the preference to a concrete scheme, asking the
// SchemeSource when the preference is ThemeSystem.
func (s *Store) Resolve() Scheme {
	switch s.Theme() {
	case ThemeLight:
		return SchemeLight
	case ThemeDark:
		return SchemeDark
	default:
		return s.source.Scheme()
	}
}

// Subscribe registers fn for every Set.
func (s *Store) Subscribe(fn func(Theme)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

// =============================================================================
// PROCESS-WIDE INSTANCE
// =============================================================================

var (
	globalStore     *Store
	globalStoreOnce sync.Once
	globalStoreMu   sync.RWMutex
)

// DefaultPath returns ~/.ragdesk/preferences.toml (or under RAGDESK_HOME).
func DefaultPath() (string, error) {
	return config.PathIn("preferences.toml")
}

// Global returns the process-wide store, backed by DefaultPath and the
// terminal's colour scheme. Falls back to memory if no home directory exists.
func Global() *Store {
	globalStoreOnce.Do(func() {
		var backend Backend
		if path, err := DefaultPath(); err == nil {
			backend = NewFileBackend(path)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: %v (preferences will not persist)\n", err)
		}
		s := NewStore(backend, TerminalSource{}, nil)

		globalStoreMu.Lock()
		if globalStore == nil {
			globalStore = s
		}
		globalStoreMu.Unlock()
	})

	globalStoreMu.RLock()
	defer globalStoreMu.RUnlock()
	return globalStore
}

// SetGlobal replaces the process-wide store.
func SetGlobal(s *Store) {
	globalStoreMu.Lock()
	defer globalStoreMu.Unlock()
	globalStore = s
}

// ResetGlobalForTesting clears the process-wide store.
func ResetGlobalForTesting() {
	globalStoreMu.Lock()
	defer globalStoreMu.Unlock()
	globalStore = nil
	globalStoreOnce = sync.Once{}
}
