// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package include flattens a directive stream by splicing every "include"
// directive with the directives of the module it names.
//
// A reference is tried, in order, as an absolute path, as a path relative
// to the including file (the working directory for the command line), and
// then as a module name in each search directory followed by the builtin
// library. The first regular file found wins.
//
// Expansion is depth-first and not memoized: including the same module
// twice emits its directives twice. A module that is already being
// expanded higher up the include chain is a cycle and fails with
// [CircularIncludeError] instead of recursing.
//
// Every argument of every directive is environment-expanded exactly once,
// here, so the compilers never see $VAR syntax.
package include
