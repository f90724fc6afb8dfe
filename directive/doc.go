// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package directive defines the xiwrap directive language: one directive per
// line, a name followed by positional arguments, with shell-like quoting.
//
// A [Directive] is a name, its arguments, and the [Location] it came from.
// [Parse] reads a directive file; [ParseLine] handles a single physical
// line; [ScanArgs] turns a command line of the form
// "--name arg... --name arg... -- command" into the same directives, so
// every directive can be written either in a module file or as a flag.
//
// Parsing never rejects a directive name. Whether a name means anything is
// decided by the compilers: [Directive.Kind] maps the name onto the closed
// set of kinds that at least one compiler understands, and compilers report
// [KindUnknown] as an [UnknownDirectiveError].
package directive
