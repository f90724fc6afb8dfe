// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package directive

import (
	"fmt"
	"strings"
)

// Scan is the result of splitting a command line with ScanArgs.
type Scan struct {
	// Directives are the flag groups that are not driver options, in
	// command-line order.
	Directives Stream

	// Options holds the raw tokens of driver option groups, ready for a
	// flag parser.
	Options []string

	// Command is everything after the first bare "--".
	Command []string

	// Terminated reports whether a bare "--" was present.
	Terminated bool
}

// ScanArgs groups argv (without the program name) into "--name arg..."
// runs up to the first bare "--". isOption decides which names belong to
// the driver rather than the directive language; it is also asked about
// single-letter shorthands such as "-h", which are only recognized outside
// a directive group. Inside one, "--setenv OPT -h" passes "-h" as a value.
// Any other token starting with a single dash is an argument.
// "--name=value" is read as "--name value".
func ScanArgs(argv []string, isOption func(name string) bool) (Scan, error) {
	var scan Scan
	var current *Directive
	optionGroup := false

	flush := func() {
		if current != nil {
			scan.Directives = append(scan.Directives, *current)
			current = nil
		}
		optionGroup = false
	}

	for i, token := range argv {
		switch {
		case token == "--":
			flush()
			scan.Command = append([]string{}, argv[i+1:]...)
			scan.Terminated = true
			return scan, nil

		case strings.HasPrefix(token, "--"):
			flush()
			name, value, hasValue := strings.Cut(strings.TrimPrefix(token, "--"), "=")
			if name == "" {
				return Scan{}, fmt.Errorf("argument %d: malformed flag %q", i+1, token)
			}
			if isOption != nil && isOption(name) {
				optionGroup = true
				scan.Options = append(scan.Options, token)
				continue
			}
			current = &Directive{
				Name:     name,
				Location: Location{File: CommandLineFile, Line: i + 1},
			}
			if hasValue {
				current.Args = append(current.Args, value)
			}

		case current == nil && len(token) == 2 && token[0] == '-' && isOption != nil && isOption(token[1:]):
			flush()
			optionGroup = true
			scan.Options = append(scan.Options, token)

		case optionGroup:
			scan.Options = append(scan.Options, token)

		case current != nil:
			current.Args = append(current.Args, token)

		default:
			return Scan{}, fmt.Errorf("argument %d: unexpected argument %q (directives are written as --name ARG...)", i+1, token)
		}
	}
	flush()
	return scan, nil
}
