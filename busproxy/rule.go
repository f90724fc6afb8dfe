// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package busproxy

import (
	"strings"

	"github.com/bureau-foundation/xiwrap/directive"
)

// Scope is a message bus.
type Scope string

const (
	Session Scope = directive.BusSession
	System  Scope = directive.BusSystem
)

// RuleKind is an xdg-dbus-proxy filter policy.
type RuleKind string

const (
	See       RuleKind = "see"
	Talk      RuleKind = "talk"
	Own       RuleKind = "own"
	Call      RuleKind = "call"
	Broadcast RuleKind = "broadcast"
)

// takesRule reports whether kind carries a "NAME=RULE" argument.
func (k RuleKind) takesRule() bool {
	return k == Call || k == Broadcast
}

// Rule is one filter rule.
type Rule struct {
	Scope Scope
	Kind  RuleKind
	Name  string

	// Extra is the method or signal match of call and broadcast rules.
	Extra string

	Location directive.Location
}

// Flag renders the rule as an xdg-dbus-proxy option.
func (r Rule) Flag() string {
	if r.Kind.takesRule() {
		return "--" + string(r.Kind) + "=" + r.Name + "=" + r.Extra
	}
	return "--" + string(r.Kind) + "=" + r.Name
}

// ParseRule decodes a bus directive. see, talk, and own take a bus name.
// call and broadcast take "NAME=RULE" or the two arguments "NAME RULE".
func ParseRule(d directive.Directive) (Rule, error) {
	scope, rule, ok := directive.ParseBusName(d.Name)
	if !ok {
		return Rule{}, &directive.UnknownDirectiveError{Directive: d}
	}
	r := Rule{Scope: Scope(scope), Kind: RuleKind(rule), Location: d.Location}

	if !r.Kind.takesRule() {
		if err := directive.CheckArity(d, 1, 1); err != nil {
			return Rule{}, err
		}
		if strings.Contains(d.Args[0], "=") {
			return Rule{}, &directive.ArgumentError{Directive: d, Reason: string(r.Kind) + " rules take a bus name without a match rule"}
		}
		r.Name = d.Args[0]
		return r, validName(d, r.Name)
	}

	if err := directive.CheckArity(d, 1, 2); err != nil {
		return Rule{}, err
	}
	if len(d.Args) == 2 {
		r.Name, r.Extra = d.Args[0], d.Args[1]
	} else {
		name, extra, found := strings.Cut(d.Args[0], "=")
		if !found {
			return Rule{}, &directive.ArgumentError{Directive: d, Reason: "expected NAME=RULE"}
		}
		r.Name, r.Extra = name, extra
	}
	if r.Extra == "" {
		return Rule{}, &directive.ArgumentError{Directive: d, Reason: "empty match rule"}
	}
	return r, validName(d, r.Name)
}

func validName(d directive.Directive, name string) error {
	if name == "" {
		return &directive.ArgumentError{Directive: d, Reason: "empty bus name"}
	}
	return nil
}
