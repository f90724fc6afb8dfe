// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package directive

import "fmt"

// ParseError reports a line that could not be tokenized.
type ParseError struct {
	Location Location
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Reason)
}

// UnknownDirectiveError reports a directive name that no compiler
// recognizes.
type UnknownDirectiveError struct {
	Directive Directive
}

func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("%s: unknown directive %q", e.Directive.Location, e.Directive.Name)
}

// ArgumentError reports a known directive with the wrong arguments.
type ArgumentError struct {
	Directive Directive
	Reason    string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid directive %q: %s", e.Directive.Location, e.Directive.String(), e.Reason)
}

// CheckArity returns an ArgumentError unless d has between min and max
// arguments inclusive.
func CheckArity(d Directive, min, max int) error {
	count := len(d.Args)
	if count >= min && count <= max {
		return nil
	}
	var reason string
	switch {
	case min == max && min == 0:
		reason = "takes no arguments"
	case min == max && min == 1:
		reason = "takes exactly 1 argument"
	case min == max:
		reason = fmt.Sprintf("takes exactly %d arguments", min)
	default:
		reason = fmt.Sprintf("takes %d to %d arguments", min, max)
	}
	return &ArgumentError{Directive: d, Reason: fmt.Sprintf("%s, got %d", reason, count)}
}
