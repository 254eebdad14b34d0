// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Source is a file the user selected for upload.
type Source interface {
	// Name is the filename sent to the server.
	Name() string
	// Size is the length in bytes, or -1 when unknown.
	Size() int64
	Open() (io.ReadCloser, error)
}

// PathSource reads a file from the local filesystem.
type PathSource string

func (p PathSource) Name() string { return filepath.Base(string(p)) }

func (p PathSource) Size() int64 {
	info, err := os.Stat(string(p))
	if err != nil {
		return -1
	}
	return info.Size()
}

func (p PathSource) Open() (io.ReadCloser, error) {
	return os.Open(string(p))
}

// PathSources wraps each path as a PathSource.
func PathSources(paths ...string) []Source {
	out := make([]Source, len(paths))
	for i, p := range paths {
		out[i] = PathSource(p)
	}
	return out
}

// BytesSource is an in-memory Source.
type BytesSource struct {
	Filename string
	Data     []byte
}

func (b BytesSource) Name() string { return b.Filename }
func (b BytesSource) Size() int64  { return int64(len(b.Data)) }

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}
