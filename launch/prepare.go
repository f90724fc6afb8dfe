// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/xiwrap/busproxy"
	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
	"github.com/bureau-foundation/xiwrap/sandbox"
)

// Settings selects the helper binaries and how they run.
type Settings struct {
	Bwrap     string
	DBusProxy string

	// ConfineProxy runs each bus proxy inside its own bwrap sandbox.
	ConfineProxy bool

	Env    environ.Env
	Exists environ.Predicate
	Logger *slog.Logger
}

// Prepared is a compiled invocation that has not started.
type Prepared struct {
	// SocketDir is created by Run only if Plan is not empty.
	SocketDir string

	Plan    *busproxy.Plan
	Sandbox *sandbox.Invocation
}

// Prepare compiles stream and command. The bus plan is compiled first
// because the sandbox mounts its sockets.
func Prepare(stream directive.Stream, command []string, settings Settings) (*Prepared, error) {
	socketDir := busproxy.SocketDirPath(settings.Env.RuntimeDir())

	plan, err := busproxy.Compile(stream, busproxy.Options{
		Executable: settings.DBusProxy,
		SocketDir:  socketDir,
		Env:        settings.Env,
		Confine:    settings.ConfineProxy,
		Bwrap:      settings.Bwrap,
		Exists:     settings.Exists,
		Logger:     settings.Logger,
	})
	if err != nil {
		return nil, err
	}

	var reserved []sandbox.ExtraFile
	if !plan.Empty() {
		reserved = append(reserved, sandbox.ExtraFile{Kind: sandbox.SyncRead})
	}
	invocation, err := sandbox.Compile(stream, command, sandbox.Options{
		Executable: settings.Bwrap,
		Env:        settings.Env,
		Exists:     settings.Exists,
		Reserved:   reserved,
		Buses:      plan.Bindings(),
		Logger:     settings.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("compiling sandbox: %w", err)
	}

	return &Prepared{SocketDir: socketDir, Plan: plan, Sandbox: invocation}, nil
}

// Invocations lists everything Run would start, in start order.
func (p *Prepared) Invocations() []*sandbox.Invocation {
	var invocations []*sandbox.Invocation
	for _, proxy := range p.Plan.Proxies() {
		invocations = append(invocations, proxy.Invocation)
	}
	return append(invocations, p.Sandbox)
}
