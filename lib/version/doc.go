// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which xiwrap build is running.
//
// Release builds inject [Version] and [GitCommit] with -ldflags -X.
// Development builds fall back to the VCS stamp the Go toolchain records
// in the binary, so "xiwrap --version" identifies a checkout even without
// a release process.
package version
