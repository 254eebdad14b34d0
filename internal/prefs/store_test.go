// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flipSource is an OS signal the test can change.
type flipSource struct{ scheme Scheme }

func (f *flipSource) Scheme() Scheme { return f.scheme }

func TestLoad_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		initial map[string]string
		want    Theme
	}{
		{"missing", nil, ThemeSystem},
		{"invalid", map[string]string{ThemeKey: "purple"}, ThemeSystem},
		{"empty", map[string]string{ThemeKey: ""}, ThemeSystem},
		{"light", map[string]string{ThemeKey: "light"}, ThemeLight},
		{"dark", map[string]string{ThemeKey: "dark"}, ThemeDark},
		{"capitalized", map[string]string{ThemeKey: "Dark"}, ThemeSystem},
		{"uppercase", map[string]string{ThemeKey: "LIGHT"}, ThemeSystem},
		{"padded", map[string]string{ThemeKey: " dark"}, ThemeSystem},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore(NewMemoryBackend(tc.initial), &flipSource{SchemeLight}, nil)
			assert.Equal(t, tc.want, s.Theme())
		})
	}
}

func TestResolve_FollowsOSWithoutSet(t *testing.T) {
	src := &flipSource{scheme: SchemeDark}
	s := NewStore(NewMemoryBackend(nil), src, nil)

	assert.Equal(t, SchemeDark, s.Resolve())
	src.scheme = SchemeLight
	assert.Equal(t, SchemeLight, s.Resolve())
}

func TestResolve_ExplicitIgnoresOS(t *testing.T) {
	src := &flipSource{scheme: SchemeDark}
	s := NewStore(NewMemoryBackend(nil), src, nil)

	require.NoError(t, s.Set(ThemeLight))
	assert.Equal(t, SchemeLight, s.Resolve())
	src.scheme = SchemeLight
	require.NoError(t, s.Set(ThemeDark))
	assert.Equal(t, SchemeDark, s.Resolve())
}

func TestSet_PersistsSynchronously(t *testing.T) {
	backend := NewMemoryBackend(nil)
	s := NewStore(backend, &flipSource{SchemeLight}, nil)

	var seen []Theme
	var persisted []string
	s.Subscribe(func(th Theme) {
		seen = append(seen, th)
		v, _, _ := backend.Get(ThemeKey)
		persisted = append(persisted, v)
	})

	require.NoError(t, s.Set(ThemeDark))
	assert.Equal(t, []string{"dark"}, persisted)
	v, ok, err := backend.Get(ThemeKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
	assert.Equal(t, []Theme{ThemeDark}, seen)

	assert.Error(t, s.Set(Theme("purple")))
	assert.Error(t, s.Set(Theme("Dark")))
	assert.Equal(t, ThemeDark, s.Theme())
}

func TestParseTheme_UserInput(t *testing.T) {
	for _, in := range []string{"dark", "Dark", " DARK "} {
		got, ok := ParseTheme(in)
		assert.True(t, ok, in)
		assert.Equal(t, ThemeDark, got, in)
	}
	_, ok := ParseTheme("purple")
	assert.False(t, ok)
}

func TestSet_PersistFailure(t *testing.T) {
	backend := NewMemoryBackend(nil)
	backend.SetErr = errors.New("disk full")
	s := NewStore(backend, &flipSource{SchemeLight}, nil)

	err := s.Set(ThemeDark)
	require.Error(t, err)
	assert.Equal(t, ThemeDark, s.Theme())
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "preferences.toml")
	b := NewFileBackend(path)

	_, ok, err := b.Get(ThemeKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ThemeKey, "light"))
	require.NoError(t, b.Set("other", "x"))

	s := NewStore(NewFileBackend(path), &flipSource{SchemeDark}, nil)
	assert.Equal(t, ThemeLight, s.Theme())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `themePref = "light"`)
}

func TestFileBackend_CorruptFileReadsAsSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")
	require.NoError(t, os.WriteFile(path, []byte("themePref = [1, 2"), 0600))

	s := NewStore(NewFileBackend(path), &flipSource{SchemeDark}, nil)
	assert.Equal(t, ThemeSystem, s.Theme())

	require.NoError(t, s.Set(ThemeLight))
	assert.Equal(t, ThemeLight, NewStore(NewFileBackend(path), nil, nil).Theme())
}

func TestTerminalSource(t *testing.T) {
	env := map[string]string{}
	dark := true
	src := TerminalSource{
		Getenv:            func(k string) string { return env[k] },
		HasDarkBackground: func() bool { return dark },
	}

	assert.Equal(t, SchemeDark, src.Scheme())
	dark = false
	assert.Equal(t, SchemeLight, src.Scheme())

	env[SchemeEnv] = "Dark"
	assert.Equal(t, SchemeDark, src.Scheme())
	env[SchemeEnv] = "neon"
	assert.Equal(t, SchemeLight, src.Scheme())
}

func TestGlobal(t *testing.T) {
	t.Setenv("RAGDESK_HOME", t.TempDir())
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	g := Global()
	require.NotNil(t, g)
	assert.Same(t, g, Global())

	replacement := NewStore(NewMemoryBackend(nil), &flipSource{SchemeLight}, nil)
	SetGlobal(replacement)
	assert.Same(t, replacement, Global())
}
