// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateUploading, true},
		{StatePending, StateUploaded, false},
		{StateUploading, StateUploaded, true},
		{StateUploading, StateFailed, true},
		{StateUploaded, StateUploading, false},
		{StateFailed, StatePending, false},
	}
	for _, tc := range tests {
		if got := isValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("isValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestKey_NormalizesUnicode(t *testing.T) {
	nfd := "cafe\u0301.txt"
	nfc := "caf\u00e9.txt"
	if Key(nfd) != Key(nfc) {
		t.Errorf("Key(%q) != Key(%q)", nfd, nfc)
	}
}

func TestExtensionAllowed(t *testing.T) {
	allowed := normalizeExtensions([]string{"PDF", ".md", " "})
	tests := map[string]bool{
		"report.pdf": true,
		"README.MD":  true,
		"notes.txt":  false,
		"noext":      false,
	}
	for name, want := range tests {
		if got := extensionAllowed(allowed, name); got != want {
			t.Errorf("extensionAllowed(%q) = %v, want %v", name, got, want)
		}
	}
	if !extensionAllowed(nil, "anything.bin") {
		t.Error("empty allow-list should accept everything")
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("", 0)
	if err != nil || !p.IsSequential() {
		t.Errorf("ParsePolicy(\"\") = %v, %v; want sequential", p, err)
	}

	p, err = ParsePolicy("Parallel", 4)
	if err != nil || p.Parallelism != 4 {
		t.Errorf("ParsePolicy(parallel, 4) = %v, %v", p, err)
	}
	if p.String() != "parallel(4)" {
		t.Errorf("String() = %q", p.String())
	}

	if _, err := ParsePolicy("parallel", 0); err == nil {
		t.Error("expected error for parallelism 0")
	}
	if _, err := ParsePolicy("random", 2); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestPathSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.md")
	if err := os.WriteFile(path, []byte("# Guide"), 0644); err != nil {
		t.Fatal(err)
	}

	src := PathSource(path)
	if src.Name() != "guide.md" {
		t.Errorf("Name() = %q", src.Name())
	}
	if src.Size() != 7 {
		t.Errorf("Size() = %d, want 7", src.Size())
	}
	rc, err := src.Open()
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()

	if PathSource(filepath.Join(t.TempDir(), "missing.md")).Size() != -1 {
		t.Error("missing file should report size -1")
	}
}
