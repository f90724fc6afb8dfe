// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox compiles a flattened directive stream into a bubblewrap
// (bwrap) invocation.
//
// [Compile] walks the stream once, in order, and produces an [Invocation]:
// the bwrap executable, its argument vector, and the extra files the child
// must inherit. Extra files are numbered from descriptor 3 in the order
// they appear in [Invocation].Files; callers pass them through
// exec.Cmd.ExtraFiles unchanged. The compiler never opens files itself.
// Text destined for --ro-bind-data is carried in the [ExtraFile] and
// materialized by the launcher.
//
// The argument vector always begins with a fixed baseline (die with
// parent, clear the environment, new PID, IPC, network, and UTS
// namespaces, a private /tmp). share-* directives remove the matching
// namespace flag. Bus socket bindings computed by the bus proxy compiler
// are appended after every directive so nothing in the stream can mount
// over them.
//
// The sandbox does not manage the process running inside it and enforces
// no policy of its own: every mount and variable comes from the stream.
//
// [Validator] performs the pre-flight checks behind "xiwrap --check".
package sandbox
