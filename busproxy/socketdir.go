// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package busproxy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SocketDirPath returns a fresh, not yet created, socket directory path
// under runtimeDir/xiwrap. Every call returns a different path.
func SocketDirPath(runtimeDir string) string {
	return filepath.Join(runtimeDir, "xiwrap", uuid.NewString())
}

// CreateSocketDir creates directory, owner-only. It fails if directory
// already exists. The caller removes it with os.RemoveAll when the
// sandbox exits.
func CreateSocketDir(directory string) error {
	if err := os.MkdirAll(filepath.Dir(directory), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(directory), err)
	}
	if err := os.Mkdir(directory, 0o700); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	return nil
}

// NewSocketDir allocates and creates a socket directory.
func NewSocketDir(runtimeDir string) (string, error) {
	directory := SocketDirPath(runtimeDir)
	if err := CreateSocketDir(directory); err != nil {
		return "", err
	}
	return directory, nil
}
