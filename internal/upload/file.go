// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// FILE STATE
// =============================================================================

// State is where a file is in its upload lifecycle.
type State string

const (
	// StatePending means the file was selected and is waiting its turn.
	StatePending State = "Pending"

	// StateUploading means the upload request is in flight.
	StateUploading State = "Uploading"

	// StateUploaded means the server accepted the file.
	StateUploaded State = "Uploaded"

	// StateFailed means the upload was rejected. Failed entries are dropped
	// from the list as soon as they reach this state.
	StateFailed State = "Failed"
)

func (s State) String() string {
	return string(s)
}

// InFlight reports whether the file is still Pending or Uploading.
func (s State) InFlight() bool {
	return s == StatePending || s == StateUploading
}

func isValidTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateUploading
	case StateUploading:
		return to == StateUploaded || to == StateFailed
	default:
		return false
	}
}

// =============================================================================
// FILE
// =============================================================================

// File is one entry in the document list.
type File struct {
	Filename string
	// SizeBytes is -1 when the size is unknown.
	SizeBytes int64
	// UploadedAt is zero when the server did not report a time.
	UploadedAt time.Time
	State      State
}

// Key returns the identity of the file in the list.
func (f File) Key() string {
	return Key(f.Filename)
}

// Key normalizes a filename so the same visible name produced by different
// operating systems (NFC vs NFD) maps to one entry.
func Key(name string) string {
	return norm.NFC.String(name)
}

// DefaultAllowedExtensions is the document types the backend ingests.
var DefaultAllowedExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".md"}

// normalizeExtensions lowercases entries and adds a leading dot when missing.
func normalizeExtensions(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	out := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[e] = true
	}
	return out
}

func extensionAllowed(allowed map[string]bool, name string) bool {
	if len(allowed) == 0 {
		return true
	}
	return allowed[strings.ToLower(filepath.Ext(name))]
}

// =============================================================================
// POLICY
// =============================================================================

// Policy controls how many uploads of a batch are in flight at once.
type Policy struct {
	// Parallelism is the in-flight limit; values below 2 mean sequential.
	Parallelism int
}

// Sequential uploads one file at a time in selection order.
func Sequential() Policy {
	return Policy{Parallelism: 1}
}

// Parallel allows up to n uploads at once. Status events are still
// reported in selection order.
func Parallel(n int) Policy {
	if n < 1 {
		n = 1
	}
	return Policy{Parallelism: n}
}

// IsSequential reports whether uploads run one after another.
func (p Policy) IsSequential() bool {
	return p.Parallelism < 2
}

func (p Policy) String() string {
	if p.IsSequential() {
		return "sequential"
	}
	return fmt.Sprintf("parallel(%d)", p.Parallelism)
}

// ParsePolicy maps a config name ("sequential" or "parallel") to a Policy.
func ParsePolicy(name string, parallelism int) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sequential":
		return Sequential(), nil
	case "parallel":
		if parallelism < 1 {
			return Policy{}, fmt.Errorf("parallel upload policy needs parallelism >= 1, got %d", parallelism)
		}
		return Parallel(parallelism), nil
	default:
		return Policy{}, fmt.Errorf("unknown upload policy %q", name)
	}
}
