// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash fingerprints the helper binaries xiwrap executes.
//
// "xiwrap --check" prints the SHA256 digest of the bwrap and
// xdg-dbus-proxy it found, so an administrator can confirm which build a
// sandbox will run under when several are installed, or after a package
// upgrade replaced one in place.
//
//   - [HashFile] streams a file through SHA256 with constant memory
//   - [FormatDigest] renders a digest as "sha256:HEX"
//   - [ShortDigest] renders the first 12 hex digits for one-line reports
package binhash
