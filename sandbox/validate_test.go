// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
)

func TestValidatorAccumulation(t *testing.T) {
	t.Parallel()

	validator := NewValidator()
	if validator.HasErrors() || len(validator.Results()) != 0 {
		t.Fatal("new validator should be empty")
	}

	validator.pass("check-a", "all good")
	validator.warn("check-b", "something is off")
	if validator.HasErrors() {
		t.Error("warnings should not count as errors")
	}
	if warning := validator.Results()[1]; !warning.Passed || !warning.Warning {
		t.Errorf("warning result = %+v", warning)
	}

	validator.fail("check-c", "broken")
	if !validator.HasErrors() {
		t.Error("should have errors after a fail")
	}
	if failure := validator.Results()[2]; failure.Passed || failure.Warning {
		t.Errorf("failure result = %+v", failure)
	}
}

func TestValidateSources(t *testing.T) {
	t.Parallel()

	present := map[string]bool{"/usr": true}
	exists := func(path string) bool { return present[path] }
	stream := directive.Stream{
		{Name: "ro-bind", Args: []string{"/usr"}, Location: directive.Location{File: "m", Line: 1}},
		{Name: "ro-bind-try", Args: []string{"/opt"}, Location: directive.Location{File: "m", Line: 2}},
		{Name: "bind", Args: []string{"/missing", "/x"}, Location: directive.Location{File: "m", Line: 3}},
		{Name: "tmpfs", Args: []string{"/nonexistent"}, Location: directive.Location{File: "m", Line: 4}},
	}

	validator := NewValidator()
	validator.ValidateSources(stream, exists)

	results := validator.Results()
	if len(results) != 2 {
		t.Fatalf("results = %+v, want one warning and one failure", results)
	}
	if !results[0].Warning || !strings.Contains(results[0].Message, "m:2") {
		t.Errorf("try result = %+v", results[0])
	}
	if results[1].Passed || !strings.Contains(results[1].Message, "m:3: source not found: /missing") {
		t.Errorf("bind result = %+v", results[1])
	}
}

func TestValidateSourcesAllPresent(t *testing.T) {
	t.Parallel()

	validator := NewValidator()
	validator.ValidateSources(directive.Stream{{Name: "ro-bind", Args: []string{"/usr"}}}, func(string) bool { return true })
	if validator.HasErrors() || len(validator.Results()) != 1 || !validator.Results()[0].Passed {
		t.Errorf("results = %+v", validator.Results())
	}
}

func TestValidateUserNamespaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  *string
		wantFail bool
	}{
		{"sysctl absent", nil, false},
		{"enabled", ptr("1\n"), false},
		{"disabled", ptr("0\n"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "unprivileged_userns_clone")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			validator := NewValidator()
			validator.usernsSysctl = path
			validator.ValidateUserNamespaces()
			if validator.HasErrors() != tt.wantFail {
				t.Errorf("HasErrors = %v, results %+v", validator.HasErrors(), validator.Results())
			}
		})
	}
}

func TestValidateDBusProxy(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	executable := filepath.Join(directory, "xdg-dbus-proxy")
	if err := os.WriteFile(executable, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(directory, "absent")

	validator := NewValidator()
	validator.ValidateDBusProxy(executable, true)
	validator.ValidateDBusProxy(missing, false)
	validator.ValidateDBusProxy(missing, true)

	results := validator.Results()
	if !results[0].Passed || results[0].Warning {
		t.Errorf("present proxy: %+v", results[0])
	}
	if !strings.Contains(results[0].Message, "sha256:") {
		t.Errorf("present proxy message %q lacks its digest", results[0].Message)
	}
	if !results[1].Warning {
		t.Errorf("missing but unneeded proxy: %+v", results[1])
	}
	if results[2].Passed {
		t.Errorf("missing and needed proxy: %+v", results[2])
	}
}

func TestAvailableMessage(t *testing.T) {
	t.Parallel()

	unreadable := filepath.Join(t.TempDir(), "gone")
	tests := []struct {
		details []string
		want    string
	}{
		{nil, "available: " + unreadable},
		{[]string{""}, "available: " + unreadable},
		{[]string{"bubblewrap 0.11.0"}, "available: " + unreadable + " (bubblewrap 0.11.0)"},
	}
	for _, tt := range tests {
		if got := available(unreadable, tt.details...); got != tt.want {
			t.Errorf("available(%q) = %q, want %q", tt.details, got, tt.want)
		}
	}

	readable := filepath.Join(t.TempDir(), "bwrap")
	if err := os.WriteFile(readable, []byte("binary"), 0o755); err != nil {
		t.Fatal(err)
	}
	got := available(readable, "bubblewrap 0.11.0")
	if !strings.HasPrefix(got, "available: "+readable+" (bubblewrap 0.11.0, sha256:") || !strings.HasSuffix(got, ")") {
		t.Errorf("available with digest = %q", got)
	}
}

func TestValidateRuntimeDir(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	validator := NewValidator()
	validator.ValidateRuntimeDir(environ.FromMap(map[string]string{"XDG_RUNTIME_DIR": directory}), true)
	validator.ValidateRuntimeDir(environ.FromMap(map[string]string{"XDG_RUNTIME_DIR": filepath.Join(directory, "gone")}), true)

	results := validator.Results()
	if !results[0].Passed {
		t.Errorf("existing runtime dir: %+v", results[0])
	}
	if results[1].Passed {
		t.Errorf("missing runtime dir: %+v", results[1])
	}
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	validator := NewValidator()
	validator.pass("check-a", "looks good")
	validator.warn("check-b", "might be a problem")
	validator.fail("check-c", "definitely broken")

	var buffer bytes.Buffer
	validator.PrintResults(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"\u2713 check-a: looks good",
		"\u26a0 check-b: might be a problem",
		"\u2717 check-c: definitely broken",
		"Validation failed with 1 error(s)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	buffer.Reset()
	NewValidator().PrintResults(&buffer)
	if !strings.Contains(buffer.String(), "Ready to run sandbox") {
		t.Errorf("expected ready message for empty validator, got:\n%s", buffer.String())
	}
}

func TestPrintStyledResults(t *testing.T) {
	t.Parallel()

	validator := NewValidator()
	validator.pass("bwrap", "available")
	validator.fail("mount", "source not found")

	var buffer bytes.Buffer
	validator.PrintStyledResults(&buffer, func(result ValidationResult, mark string) string {
		if result.Passed {
			return "<ok " + mark + ">"
		}
		return "<bad " + mark + ">"
	})
	for _, want := range []string{
		"<ok \u2713> bwrap: available",
		"<bad \u2717> mount: source not found",
	} {
		if !strings.Contains(buffer.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buffer.String())
		}
	}
}

func ptr(s string) *string { return &s }
