// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package environ expands environment references in directive arguments
// and answers the file existence question asked by "-try" directives.
//
// Expansion understands $NAME and ${NAME}, and "$$" stands for a literal
// dollar sign. A "$" not followed by a name, a brace or another "$" is kept
// as written. Unset variables expand to the empty string. The XDG base
// directory variables fall back to their documented defaults under $HOME
// when unset, so a module can write $XDG_CONFIG_HOME/app on any system.
package environ

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// xdgDefaults maps XDG base directory variables to their defaults relative
// to $HOME. XDG_RUNTIME_DIR deliberately has none.
var xdgDefaults = map[string]string{
	"XDG_DATA_HOME":   ".local/share",
	"XDG_CONFIG_HOME": ".config",
	"XDG_STATE_HOME":  ".local/state",
	"XDG_CACHE_HOME":  ".cache",
}

// Env resolves variables from a lookup function.
type Env struct {
	lookup func(string) (string, bool)
}

// Process returns an Env backed by the current process environment.
func Process() Env {
	return Env{lookup: os.LookupEnv}
}

// FromMap returns an Env backed by a fixed map.
func FromMap(values map[string]string) Env {
	return Env{lookup: func(name string) (string, bool) {
		value, ok := values[name]
		return value, ok
	}}
}

// Lookup returns the raw value of name without XDG defaults.
func (e Env) Lookup(name string) (string, bool) {
	if e.lookup == nil {
		return "", false
	}
	return e.lookup(name)
}

// Get returns the value of name as path expansion sees it, applying XDG
// defaults. Unset variables yield "".
func (e Env) Get(name string) string {
	if value, ok := e.Lookup(name); ok && value != "" {
		return value
	}
	if relative, ok := xdgDefaults[name]; ok {
		if home, _ := e.Lookup("HOME"); home != "" {
			return filepath.Join(home, relative)
		}
	}
	return ""
}

// SyntaxError reports a malformed ${...} reference.
type SyntaxError struct {
	Token  string
	Offset int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at offset %d in %q", e.Reason, e.Offset, e.Token)
}

// Expand substitutes every $NAME and ${NAME} in token and collapses "$$"
// to "$". Substituted values are not expanded again.
func (e Env) Expand(token string) (string, error) {
	if !strings.Contains(token, "$") {
		return token, nil
	}
	var out strings.Builder
	for i := 0; i < len(token); i++ {
		if token[i] != '$' || i+1 == len(token) {
			out.WriteByte(token[i])
			continue
		}
		switch next := token[i+1]; {
		case next == '$':
			out.WriteByte('$')
			i++
		case next == '{':
			end := strings.IndexByte(token[i+2:], '}')
			if end < 0 {
				return "", &SyntaxError{Token: token, Offset: i, Reason: "unterminated ${"}
			}
			name := token[i+2 : i+2+end]
			if !validName(name) {
				return "", &SyntaxError{Token: token, Offset: i, Reason: fmt.Sprintf("invalid variable name %q", name)}
			}
			out.WriteString(e.Get(name))
			i += end + 2
		case nameStart(next):
			j := i + 1
			for j < len(token) && nameByte(token[j]) {
				j++
			}
			out.WriteString(e.Get(token[i+1 : j]))
			i = j - 1
		default:
			out.WriteByte('$')
		}
	}
	return out.String(), nil
}

// ExpandAll expands each token, returning a new slice.
func (e Env) ExpandAll(tokens []string) ([]string, error) {
	expanded := make([]string, len(tokens))
	for i, token := range tokens {
		value, err := e.Expand(token)
		if err != nil {
			return nil, err
		}
		expanded[i] = value
	}
	return expanded, nil
}

// Unescape collapses "$$" to "$" without expanding anything. It yields the
// literal text of an argument that is never expanded.
func Unescape(token string) string {
	return strings.ReplaceAll(token, "$$", "$")
}

func nameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func nameByte(c byte) bool {
	return nameStart(c) || ('0' <= c && c <= '9')
}

func validName(name string) bool {
	if name == "" || !nameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !nameByte(name[i]) {
			return false
		}
	}
	return true
}

// RuntimeDir returns $XDG_RUNTIME_DIR, falling back to /run/user/UID.
func (e Env) RuntimeDir() string {
	if dir := e.Get("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
}

// Predicate reports whether a path exists.
type Predicate func(path string) bool

// Exists reports whether path names an existing file system entry. A
// dangling symlink counts as existing, matching what bwrap sees.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Lstat(path)
	return err == nil
}
