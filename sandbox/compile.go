// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
)

var (
	// ErrUnexpandedInclude means an include reached the compiler. The
	// resolver removes them all, so this indicates a caller bug.
	ErrUnexpandedInclude = errors.New("include directive reached the sandbox compiler")

	// ErrEmptyCommand means no command followed "--".
	ErrEmptyCommand = errors.New("no command to run")
)

// flatpakInfoPath is where portals look for the application identity.
const flatpakInfoPath = "/.flatpak-info"

// Options configures Compile.
type Options struct {
	// Executable is the bwrap path placed in Invocation.Executable.
	Executable string

	// Env supplies values for "setenv NAME" without a value. The raw
	// value is used, without XDG defaults.
	Env environ.Env

	// Exists decides whether "-try" sources are present. Nil means
	// environ.Exists.
	Exists environ.Predicate

	// Reserved are descriptors the caller has already assigned. They
	// occupy the first entries of Invocation.Files in order. A SyncRead
	// entry is passed to bwrap with --sync-fd.
	Reserved []ExtraFile

	// Buses are proxy sockets to mount after all directives.
	Buses []BusBinding

	Logger *slog.Logger
}

// compiler accumulates one invocation.
type compiler struct {
	options Options
	exists  environ.Predicate
	logger  *slog.Logger
	args    []string
	files   []ExtraFile
}

// Compile translates stream into a bwrap invocation running command.
// Directives are applied in stream order; bus directives are ignored here
// and handled through Options.Buses.
func Compile(stream directive.Stream, command []string, options Options) (*Invocation, error) {
	if len(command) == 0 {
		return nil, ErrEmptyCommand
	}

	c := &compiler{
		options: options,
		exists:  options.Exists,
		logger:  options.Logger,
		files:   append([]ExtraFile(nil), options.Reserved...),
	}
	if c.exists == nil {
		c.exists = environ.Exists
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	shared, err := sharedNamespaces(stream)
	if err != nil {
		return nil, err
	}
	c.baseline(shared)

	for _, d := range stream {
		if err := c.apply(d); err != nil {
			return nil, err
		}
	}

	for _, bus := range options.Buses {
		c.emit("--ro-bind", bus.Socket, bus.Dest)
		c.emit("--setenv", bus.AddressVar, "unix:path="+bus.Dest)
	}

	c.emit("--")
	c.emit(command...)

	return &Invocation{
		Executable: options.Executable,
		Args:       c.args,
		Files:      c.files,
	}, nil
}

// sharedNamespaces collects share-* directives. They affect the baseline,
// so they are read before anything is emitted.
func sharedNamespaces(stream directive.Stream) (map[directive.Kind]bool, error) {
	shared := make(map[directive.Kind]bool)
	for _, d := range stream {
		switch kind := d.Kind(); kind {
		case directive.KindShareNet, directive.KindSharePID, directive.KindShareIPC:
			if err := directive.CheckArity(d, 0, 0); err != nil {
				return nil, err
			}
			shared[kind] = true
		}
	}
	return shared, nil
}

func (c *compiler) baseline(shared map[directive.Kind]bool) {
	c.emit("--die-with-parent", "--clearenv")
	if !shared[directive.KindSharePID] {
		c.emit("--unshare-pid")
	}
	if !shared[directive.KindShareIPC] {
		c.emit("--unshare-ipc")
	}
	if !shared[directive.KindShareNet] {
		c.emit("--unshare-net")
	}
	c.emit("--unshare-uts", "--tmpfs", "/tmp")

	for i, file := range c.options.Reserved {
		if file.Kind == SyncRead {
			c.emit("--sync-fd", strconv.Itoa(FirstExtraFD+i))
		}
	}
}

func (c *compiler) apply(d directive.Directive) error {
	switch kind := d.Kind(); kind {
	case directive.KindBind, directive.KindROBind, directive.KindDevBind:
		return c.bind(d, false)

	case directive.KindBindTry, directive.KindROBindTry, directive.KindDevBindTry:
		return c.bind(d, true)

	case directive.KindROBindText:
		if err := directive.CheckArity(d, 2, 2); err != nil {
			return err
		}
		if err := requirePaths(d, d.Args[1]); err != nil {
			return err
		}
		c.data(d.Args[0], d.Args[1])

	case directive.KindTmpfs, directive.KindProc, directive.KindDev, directive.KindMqueue, directive.KindDir:
		if err := directive.CheckArity(d, 1, 1); err != nil {
			return err
		}
		if err := requirePaths(d, d.Args[0]); err != nil {
			return err
		}
		c.emit("--"+d.Name, d.Args[0])

	case directive.KindSetenv:
		if err := directive.CheckArity(d, 1, 2); err != nil {
			return err
		}
		var value string
		if len(d.Args) == 2 {
			value = d.Args[1]
		} else {
			value, _ = c.options.Env.Lookup(d.Args[0])
		}
		c.emit("--setenv", d.Args[0], value)

	case directive.KindUnsetenv:
		if err := directive.CheckArity(d, 1, 1); err != nil {
			return err
		}
		c.emit("--unsetenv", d.Args[0])

	case directive.KindAppID:
		if err := directive.CheckArity(d, 1, 1); err != nil {
			return err
		}
		c.data(FlatpakInfo(d.Args[0]), flatpakInfoPath)

	case directive.KindShareNet, directive.KindSharePID, directive.KindShareIPC:
		// Applied to the baseline.

	case directive.KindBus:
		// Compiled by the bus proxy compiler.

	case directive.KindInclude:
		return fmt.Errorf("%s: %w", d.Location, ErrUnexpandedInclude)

	default:
		return &directive.UnknownDirectiveError{Directive: d}
	}
	return nil
}

// bind handles the bind family. SRC alone mounts at the same path inside.
func (c *compiler) bind(d directive.Directive, try bool) error {
	if err := directive.CheckArity(d, 1, 2); err != nil {
		return err
	}
	source := d.Args[0]
	dest := source
	if len(d.Args) == 2 {
		dest = d.Args[1]
	}
	if try && (source == "" || !c.exists(source)) {
		c.logger.Debug("skipping optional mount", "source", source, "dest", dest, "at", d.Location.String())
		return nil
	}
	if err := requirePaths(d, source, dest); err != nil {
		return err
	}
	c.emit("--"+d.Name, source, dest)
	return nil
}

// requirePaths rejects a path that expanded to nothing, such as $UNSET.
func requirePaths(d directive.Directive, paths ...string) error {
	for _, path := range paths {
		if path == "" {
			return &directive.ArgumentError{Directive: d, Reason: "path expands to empty"}
		}
	}
	return nil
}

// data allocates a Data descriptor holding text and mounts it at dest.
func (c *compiler) data(text, dest string) {
	fd := FirstExtraFD + len(c.files)
	c.files = append(c.files, ExtraFile{Kind: Data, Data: text})
	c.emit("--ro-bind-data", strconv.Itoa(fd), dest)
}

func (c *compiler) emit(args ...string) {
	c.args = append(c.args, args...)
}

// FlatpakInfo returns the /.flatpak-info content identifying appID.
func FlatpakInfo(appID string) string {
	return "[Application]\nname=" + appID + "\n"
}
