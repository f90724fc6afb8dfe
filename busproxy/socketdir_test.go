// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package busproxy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewSocketDir(t *testing.T) {
	t.Parallel()

	runtimeDir := t.TempDir()
	first, err := NewSocketDir(runtimeDir)
	if err != nil {
		t.Fatalf("NewSocketDir failed: %v", err)
	}
	second, err := NewSocketDir(runtimeDir)
	if err != nil {
		t.Fatalf("NewSocketDir failed: %v", err)
	}
	if first == second {
		t.Errorf("two invocations share socket directory %s", first)
	}
	if filepath.Dir(first) != filepath.Join(runtimeDir, "xiwrap") {
		t.Errorf("socket directory %s not under %s/xiwrap", first, runtimeDir)
	}

	info, err := os.Stat(first)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() || info.Mode().Perm() != 0o700 {
		t.Errorf("socket directory mode = %v, want drwx------", info.Mode())
	}
}

func TestCreateSocketDirRefusesExisting(t *testing.T) {
	t.Parallel()

	directory := SocketDirPath(t.TempDir())
	if err := CreateSocketDir(directory); err != nil {
		t.Fatalf("CreateSocketDir failed: %v", err)
	}
	if err := CreateSocketDir(directory); err == nil {
		t.Error("CreateSocketDir reused an existing directory")
	}
}
