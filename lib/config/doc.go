// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional xiwrap configuration file.
//
// The file is selected by the --config flag or, failing that, the
// XIWRAP_CONFIG environment variable. There is no ~/.config discovery and
// no search: without either, xiwrap runs on [Default]. Sandbox policy lives
// in directive modules, not here; the file only locates helper binaries and
// module directories and tunes proxy startup.
//
// Path fields support ${VAR} and ${VAR:-default} expansion after loading.
//
// Key exports:
//
//   - [Config] and [Default]
//   - [Select], [LoadFile], and [Config.Validate]
package config
