// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package directive

import (
	"fmt"
	"strings"
)

// CommandLineFile is the Location.File of directives given as flags.
const CommandLineFile = "<command line>"

// Location identifies where a directive was written. Line is 1-based; for
// command-line directives it is the position of the flag in argv.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("line %d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Directive is one parsed line. Directives are values: code that needs to
// change the arguments (environment expansion) builds a new one with
// [Directive.WithArgs].
type Directive struct {
	Name     string
	Args     []string
	Location Location
}

// Stream is an ordered sequence of directives. Order is significant: bwrap
// applies mounts in sequence and later mounts shadow earlier ones.
type Stream []Directive

// Kind returns the directive kind for d's name, or KindUnknown.
func (d Directive) Kind() Kind {
	return Lookup(d.Name)
}

// WithArgs returns a copy of d carrying args instead of d.Args.
func (d Directive) WithArgs(args []string) Directive {
	copied := make([]string, len(args))
	copy(copied, args)
	return Directive{Name: d.Name, Args: copied, Location: d.Location}
}

// String renders d as a directive line that ParseLine would read back.
func (d Directive) String() string {
	parts := make([]string, 0, len(d.Args)+1)
	parts = append(parts, d.Name)
	for _, arg := range d.Args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

// quote returns arg unchanged when it needs no quoting, and a double-quoted
// form otherwise. Only \" and \\ are escaped; other bytes, including
// control characters, are written as they are.
func quote(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, " \t\n\r\v\f'\"\\#") {
		return arg
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(arg); i++ {
		if arg[i] == '"' || arg[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(arg[i])
	}
	b.WriteByte('"')
	return b.String()
}
