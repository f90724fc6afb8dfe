// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit conventions of the xiwrap binary.
//
// xiwrap passes through the exit status of the sandboxed command, so its
// own failures use codes a command is unlikely to produce: [ExitSetup]
// (125, as used by env(1) and container runtimes) for anything that went
// wrong before the command started, and [ExitUsage] for bad invocations.
package process
