// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
	"github.com/bureau-foundation/xiwrap/lib/binhash"
)

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator accumulates pre-flight checks for one invocation.
type Validator struct {
	results []ValidationResult
	errors  int

	// usernsSysctl is read by ValidateUserNamespaces. Tests point it
	// elsewhere.
	usernsSysctl string
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{usernsSysctl: "/proc/sys/kernel/unprivileged_userns_clone"}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message, Warning: true})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: false, Message: message})
	v.errors++
}

// ValidateBwrap checks that bubblewrap can be found and reports its
// version.
func (v *Validator) ValidateBwrap(configured string) {
	path, err := BwrapPath(configured)
	if err != nil {
		v.fail("bwrap", err.Error())
		return
	}
	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		v.warn("bwrap", fmt.Sprintf("found at %s but --version failed", path))
		return
	}
	v.pass("bwrap", available(path, strings.TrimSpace(string(output))))
}

// available describes a found helper as "available: PATH (DETAIL, ...)",
// adding its digest when the file can be read. Empty details are dropped.
func available(path string, details ...string) string {
	var kept []string
	for _, detail := range append(details, fingerprint(path)) {
		if detail != "" {
			kept = append(kept, detail)
		}
	}
	if len(kept) == 0 {
		return "available: " + path
	}
	return fmt.Sprintf("available: %s (%s)", path, strings.Join(kept, ", "))
}

// fingerprint returns "sha256:PREFIX" for path, or "" if it cannot be
// read.
func fingerprint(path string) string {
	digest, err := binhash.HashFile(path)
	if err != nil {
		return ""
	}
	return binhash.ShortDigest(digest)
}

// ValidateDBusProxy checks for xdg-dbus-proxy. Its absence only matters
// when the stream has bus rules.
func (v *Validator) ValidateDBusProxy(configured string, needed bool) {
	path, err := FindExecutable("xdg-dbus-proxy", configured, nil)
	switch {
	case err == nil:
		v.pass("xdg-dbus-proxy", available(path))
	case needed:
		v.fail("xdg-dbus-proxy", err.Error()+" (required by bus directives)")
	default:
		v.warn("xdg-dbus-proxy", err.Error()+" (no bus directives, not required)")
	}
}

// ValidateUserNamespaces checks the Debian-style sysctl that can disable
// unprivileged user namespaces.
func (v *Validator) ValidateUserNamespaces() {
	data, err := os.ReadFile(v.usernsSysctl)
	if err != nil {
		if os.IsNotExist(err) {
			v.pass("userns", "user namespaces supported (no clone restriction)")
			return
		}
		v.warn("userns", fmt.Sprintf("cannot check user namespace support: %v", err))
		return
	}
	if strings.TrimSpace(string(data)) == "0" {
		v.fail("userns", "unprivileged user namespaces are disabled (set kernel.unprivileged_userns_clone=1)")
		return
	}
	v.pass("userns", "user namespaces enabled")
}

// ValidateRuntimeDir checks XDG_RUNTIME_DIR, which holds the proxy
// sockets and the session bus.
func (v *Validator) ValidateRuntimeDir(env environ.Env, needed bool) {
	dir := env.Get("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = env.RuntimeDir()
		if needed {
			v.warn("runtime_dir", "XDG_RUNTIME_DIR not set, using "+dir)
		}
	}
	info, err := os.Stat(dir)
	switch {
	case err != nil && needed:
		v.fail("runtime_dir", fmt.Sprintf("cannot access %s: %v", dir, err))
	case err != nil:
		v.warn("runtime_dir", fmt.Sprintf("cannot access %s: %v", dir, err))
	case !info.IsDir():
		v.fail("runtime_dir", "not a directory: "+dir)
	default:
		v.pass("runtime_dir", "exists: "+dir)
	}
}

// ValidateSources checks the source of every non-try bind in stream.
// Sandbox startup fails on a missing source, so these are errors; a
// missing "-try" source is only noted.
func (v *Validator) ValidateSources(stream directive.Stream, exists environ.Predicate) {
	if exists == nil {
		exists = environ.Exists
	}
	for _, d := range stream {
		var optional bool
		switch d.Kind() {
		case directive.KindBind, directive.KindROBind, directive.KindDevBind:
		case directive.KindBindTry, directive.KindROBindTry, directive.KindDevBindTry:
			optional = true
		default:
			continue
		}
		if len(d.Args) == 0 {
			continue
		}
		source := d.Args[0]
		switch {
		case exists(source):
		case optional:
			v.warn("mount", fmt.Sprintf("%s: optional source not found, skipped: %s", d.Location, source))
		default:
			v.fail("mount", fmt.Sprintf("%s: source not found: %s", d.Location, source))
		}
	}
	if !v.hasFailure("mount") {
		v.pass("mount", "all required mount sources exist")
	}
}

func (v *Validator) hasFailure(name string) bool {
	for _, r := range v.results {
		if r.Name == name && !r.Passed {
			return true
		}
	}
	return false
}

// Decorate renders the mark of one result, for example in color. A nil
// Decorate leaves marks plain.
type Decorate func(result ValidationResult, mark string) string

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	v.PrintStyledResults(w, nil)
}

// PrintStyledResults is PrintResults with marks passed through decorate.
func (v *Validator) PrintStyledResults(w io.Writer, decorate Decorate) {
	for _, r := range v.results {
		var mark string
		switch {
		case !r.Passed:
			mark = "✗"
		case r.Warning:
			mark = "⚠"
		default:
			mark = "✓"
		}
		if decorate != nil {
			mark = decorate(r, mark)
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to run sandbox")
	}
}
