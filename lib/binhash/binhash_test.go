// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
	}{
		{"script", []byte("#!/bin/sh\nexec bwrap \"$@\"\n")},
		{"empty", nil},
		// Larger than io.Copy's buffer.
		{"large", make([]byte, 256*1024)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "helper")
			if err := os.WriteFile(path, test.content, 0o755); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			got, err := HashFile(path)
			if err != nil {
				t.Fatalf("HashFile: %v", err)
			}
			if want := sha256.Sum256(test.content); got != want {
				t.Errorf("HashFile = %x, want %x", got, want)
			}
		})
	}
}

func TestHashFileNonexistent(t *testing.T) {
	t.Parallel()

	_, err := HashFile(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil || !strings.Contains(err.Error(), "does-not-exist") {
		t.Fatalf("HashFile = %v, want an error naming the path", err)
	}
}

func TestFormatDigest(t *testing.T) {
	t.Parallel()

	digest := sha256.Sum256([]byte("bwrap"))
	full := FormatDigest(digest)
	if !strings.HasPrefix(full, "sha256:") || len(full) != len("sha256:")+64 {
		t.Errorf("FormatDigest = %q, want sha256: and 64 hex digits", full)
	}
	short := ShortDigest(digest)
	if len(short) != len("sha256:")+12 || !strings.HasPrefix(full, short) {
		t.Errorf("ShortDigest = %q, want a 12-digit prefix of %q", short, full)
	}
}
