// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"strconv"
	"strings"
)

// FirstExtraFD is the descriptor number of Invocation.Files[0] in the
// child, following exec.Cmd.ExtraFiles numbering.
const FirstExtraFD = 3

// FileKind identifies what a launcher must open for an ExtraFile.
type FileKind int

const (
	// SyncRead is the read end of the invocation's readiness pipe.
	SyncRead FileKind = iota

	// SyncWrite is the write end of the readiness pipe.
	SyncWrite

	// Data is a read-only file holding ExtraFile.Data.
	Data
)

func (k FileKind) String() string {
	switch k {
	case SyncRead:
		return "sync-read"
	case SyncWrite:
		return "sync-write"
	case Data:
		return "data"
	default:
		return "FileKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ExtraFile is one inherited descriptor.
type ExtraFile struct {
	Kind FileKind

	// Data is the content of a Data file.
	Data string
}

// Invocation is a fully compiled command.
type Invocation struct {
	Executable string

	// Args excludes the executable.
	Args []string

	// Files[i] becomes descriptor FirstExtraFD+i in the child.
	Files []ExtraFile
}

// Argv returns the executable followed by Args.
func (inv *Invocation) Argv() []string {
	return append([]string{inv.Executable}, inv.Args...)
}

// String renders the invocation as a shell command line, quoting
// arguments that need it.
func (inv *Invocation) String() string {
	argv := inv.Argv()
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// shellQuote single-quotes s unless it consists only of characters that
// are safe unquoted.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("@%+=:,./_-", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// BusBinding exposes a filtering proxy socket inside the sandbox.
type BusBinding struct {
	// Socket is the proxy's listening socket on the host.
	Socket string

	// Dest is where the socket appears inside the sandbox.
	Dest string

	// AddressVar is set to "unix:path=Dest" inside the sandbox.
	AddressVar string
}
