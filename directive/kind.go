// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package directive

import "strings"

// Kind enumerates every directive that some part of xiwrap understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindInclude
	KindBind
	KindBindTry
	KindROBind
	KindROBindTry
	KindDevBind
	KindDevBindTry
	KindROBindText
	KindTmpfs
	KindProc
	KindDev
	KindMqueue
	KindDir
	KindSetenv
	KindUnsetenv
	KindShareNet
	KindSharePID
	KindShareIPC
	KindAppID
	// KindBus covers all dbus-* filter directives. The bus compiler
	// decodes scope and rule from the name with ParseBusName.
	KindBus
)

var kindNames = map[string]Kind{
	"include":      KindInclude,
	"bind":         KindBind,
	"bind-try":     KindBindTry,
	"ro-bind":      KindROBind,
	"ro-bind-try":  KindROBindTry,
	"dev-bind":     KindDevBind,
	"dev-bind-try": KindDevBindTry,
	"ro-bind-text": KindROBindText,
	"tmpfs":        KindTmpfs,
	"proc":         KindProc,
	"dev":          KindDev,
	"mqueue":       KindMqueue,
	"dir":          KindDir,
	"setenv":       KindSetenv,
	"unsetenv":     KindUnsetenv,
	"share-net":    KindShareNet,
	"share-pid":    KindSharePID,
	"share-ipc":    KindShareIPC,
	"app-id":       KindAppID,
}

// Lookup maps a directive name to its kind. Names are case-sensitive.
func Lookup(name string) Kind {
	if kind, ok := kindNames[name]; ok {
		return kind
	}
	if _, _, ok := ParseBusName(name); ok {
		return KindBus
	}
	return KindUnknown
}

// String returns the canonical name for single-name kinds, "dbus-*" for
// KindBus, and "unknown" otherwise.
func (k Kind) String() string {
	if k == KindBus {
		return "dbus-*"
	}
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Bus scopes as written in directive names.
const (
	BusSession = "session"
	BusSystem  = "system"
)

// BusRuleNames lists the filter rule kinds accepted after the scope.
var BusRuleNames = []string{"see", "talk", "own", "call", "broadcast"}

// ParseBusName decodes "dbus-RULE", "dbus-session-RULE" and
// "dbus-system-RULE". An unscoped name belongs to the session bus.
func ParseBusName(name string) (scope, rule string, ok bool) {
	rest, found := strings.CutPrefix(name, "dbus-")
	if !found {
		return "", "", false
	}
	scope = BusSession
	if tail, scoped := strings.CutPrefix(rest, BusSession+"-"); scoped {
		rest = tail
	} else if tail, scoped := strings.CutPrefix(rest, BusSystem+"-"); scoped {
		scope = BusSystem
		rest = tail
	}
	for _, candidate := range BusRuleNames {
		if rest == candidate {
			return scope, candidate, true
		}
	}
	return "", "", false
}
