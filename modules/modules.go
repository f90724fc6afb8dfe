// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package modules ships the builtin xiwrap module library inside the
// binary. The include resolver searches it after every on-disk directory,
// so a file with the same name in --include-path, the user's config
// directory, or /etc/xiwrap/includes overrides the builtin copy.
package modules

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed includes
var content embed.FS

// FS returns the builtin modules, one file per module name.
func FS() fs.FS {
	sub, err := fs.Sub(content, "includes")
	if err != nil {
		// "includes" is a compile-time embed; Sub only fails on an
		// invalid path.
		panic(err)
	}
	return sub
}

// Names lists the builtin module names in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(FS(), ".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
