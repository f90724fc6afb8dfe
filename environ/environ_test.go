// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environ

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	env := FromMap(map[string]string{
		"HOME":            "/home/user",
		"FOO":             "bar",
		"XDG_RUNTIME_DIR": "/run/user/1000",
		"XDG_DATA_HOME":   "",
	})

	tests := []struct {
		token string
		want  string
	}{
		{"plain", "plain"},
		{"$FOO", "bar"},
		{"${FOO}", "bar"},
		{"/a/$FOO/b", "/a/bar/b"},
		{"${FOO}suffix", "barsuffix"},
		{"$UNSET", ""},
		{"/x/${UNSET}/y", "/x//y"},
		{"$XDG_RUNTIME_DIR/bus", "/run/user/1000/bus"},
		{"$XDG_CONFIG_HOME/app", "/home/user/.config/app"},
		{"${XDG_CACHE_HOME}", "/home/user/.cache"},
		{"$XDG_STATE_HOME", "/home/user/.local/state"},
		{"$XDG_DATA_HOME/icons", "/home/user/.local/share/icons"},
		{"trailing$", "trailing$"},
		{"price: $5", "price: $5"},
		{"$$FOO", "$FOO"},
		{"$$$FOO", "$bar"},
		{"a $ b", "a $ b"},
		{"$FOO_1/x", "/x"},
		{"$FOO-1", "bar-1"},
	}

	for _, tt := range tests {
		got, err := env.Expand(tt.token)
		if err != nil {
			t.Errorf("Expand(%q) failed: %v", tt.token, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestExpandMalformed(t *testing.T) {
	t.Parallel()

	env := FromMap(map[string]string{"HOME": "/home/user"})
	tests := []struct {
		token  string
		offset int
	}{
		{"echo ${HOME", 5},
		{"${}", 0},
		{"/x/${1A}", 3},
		{"${HOME-x}", 0},
	}

	for _, tt := range tests {
		_, err := env.Expand(tt.token)
		var syntax *SyntaxError
		if !errors.As(err, &syntax) {
			t.Errorf("Expand(%q) = %v, want *SyntaxError", tt.token, err)
			continue
		}
		if syntax.Offset != tt.offset {
			t.Errorf("Expand(%q) offset = %d, want %d", tt.token, syntax.Offset, tt.offset)
		}
	}
}

func TestUnescape(t *testing.T) {
	t.Parallel()

	if got := Unescape("price: $$5 $HOME $${X"); got != "price: $5 $HOME ${X" {
		t.Errorf("Unescape = %q", got)
	}
}

func TestXDGDefaultsNeedHome(t *testing.T) {
	t.Parallel()

	env := FromMap(map[string]string{})
	if got, _ := env.Expand("$XDG_CONFIG_HOME/app"); got != "/app" {
		t.Errorf("Expand without HOME = %q, want %q", got, "/app")
	}
}

func TestExpandIsSinglePass(t *testing.T) {
	t.Parallel()

	env := FromMap(map[string]string{"OUTER": "$INNER", "INNER": "surprise"})
	if got, _ := env.Expand("$OUTER"); got != "$INNER" {
		t.Errorf("Expand re-expanded a substituted value: got %q", got)
	}
}

func TestExpandAll(t *testing.T) {
	t.Parallel()

	env := FromMap(map[string]string{"A": "1"})
	input := []string{"$A", "b"}
	got, err := env.ExpandAll(input)
	if err != nil {
		t.Fatalf("ExpandAll failed: %v", err)
	}
	if got[0] != "1" || got[1] != "b" {
		t.Errorf("ExpandAll = %q", got)
	}
	if input[0] != "$A" {
		t.Error("ExpandAll modified its input")
	}
}

func TestExpandAllStopsAtError(t *testing.T) {
	t.Parallel()

	if _, err := FromMap(nil).ExpandAll([]string{"ok", "${BROKEN"}); err == nil {
		t.Error("ExpandAll accepted an unterminated reference")
	}
}

func TestRuntimeDir(t *testing.T) {
	t.Parallel()

	if got := FromMap(map[string]string{"XDG_RUNTIME_DIR": "/run/user/42"}).RuntimeDir(); got != "/run/user/42" {
		t.Errorf("RuntimeDir = %q", got)
	}
	want := filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
	if got := FromMap(nil).RuntimeDir(); got != want {
		t.Errorf("RuntimeDir fallback = %q, want %q", got, want)
	}
}

func TestExists(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	file := filepath.Join(directory, "present")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	dangling := filepath.Join(directory, "dangling")
	if err := os.Symlink(filepath.Join(directory, "missing"), dangling); err != nil {
		t.Fatal(err)
	}

	if !Exists(file) {
		t.Error("Exists(file) = false")
	}
	if !Exists(directory) {
		t.Error("Exists(directory) = false")
	}
	if !Exists(dangling) {
		t.Error("Exists(dangling symlink) = false")
	}
	if Exists(filepath.Join(directory, "missing")) {
		t.Error("Exists(missing) = true")
	}
	if Exists("") {
		t.Error(`Exists("") = true`)
	}
}
