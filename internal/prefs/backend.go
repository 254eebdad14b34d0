// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ragdesk/internal/util"
)

// Backend is a small persistent key/value store.
type Backend interface {
	// Get returns ok=false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// FileBackend keeps string values in a flat TOML file.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a backend for path. The file is created on the
// first Set.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file path.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (b *FileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every write.
		values = map[string]string{}
	}
	values[key] = value

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(values); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(b.path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

func (b *FileBackend) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if _, err := toml.Decode(string(data), &values); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return values, nil
}

// MemoryBackend is an in-process Backend for tests.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	// SetErr, when non-nil, is returned by every Set.
	SetErr error
}

// NewMemoryBackend returns a backend seeded with initial.
func NewMemoryBackend(initial map[string]string) *MemoryBackend {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryBackend{values: values}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = (*MemoryBackend)(nil)
)

