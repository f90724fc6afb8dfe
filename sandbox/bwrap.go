// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
)

// bwrapLocations are checked, in order, before PATH.
var bwrapLocations = []string{
	"/usr/bin/bwrap",
	"/usr/local/bin/bwrap",
	"/bin/bwrap",
}

// BwrapPath returns the bubblewrap executable: configured if set, else
// the first standard location that exists, else a PATH lookup.
func BwrapPath(configured string) (string, error) {
	return FindExecutable("bwrap", configured, bwrapLocations)
}

// FindExecutable resolves a helper binary. A configured path must exist
// and is not searched further; otherwise candidates are tried in order
// and then PATH.
func FindExecutable(name, configured string, candidates []string) (string, error) {
	if configured != "" {
		if err := checkExecutable(configured); err != nil {
			return "", fmt.Errorf("configured %s: %w", name, err)
		}
		return configured, nil
	}
	for _, path := range candidates {
		if checkExecutable(path) == nil {
			return path, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in standard locations or PATH", name)
	}
	return path, nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
