// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/modules"
)

// options are the driver flags, as opposed to directive flags.
type options struct {
	includePaths []string
	configPath   string
	debug        bool
	check        bool
	verbose      bool
	listModules  bool
	help         bool
	version      bool
}

func newFlagSet(o *options) *pflag.FlagSet {
	flags := pflag.NewFlagSet("xiwrap", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.SortFlags = false

	flags.StringArrayVar(&o.includePaths, "include-path", nil, "add `DIR` to the module search path (repeatable, searched first)")
	flags.StringVar(&o.configPath, "config", "", "read configuration from `FILE` (default $XIWRAP_CONFIG)")
	flags.BoolVar(&o.debug, "debug", false, "print the bwrap and xdg-dbus-proxy command lines and exit")
	flags.BoolVar(&o.check, "check", false, "run pre-flight checks and exit")
	flags.BoolVar(&o.verbose, "verbose", false, "log each resolution and launch step")
	flags.BoolVar(&o.listModules, "list-modules", false, "list the builtin modules and exit")
	flags.BoolVarP(&o.help, "help", "h", false, "show this help and exit")
	flags.BoolVar(&o.version, "version", false, "show version information and exit")
	return flags
}

// isOption reports whether a scanned "--name" or "-x" belongs to flags.
func isOption(flags *pflag.FlagSet) func(string) bool {
	return func(name string) bool {
		if len(name) == 1 {
			return flags.ShorthandLookup(name) != nil
		}
		return flags.Lookup(name) != nil
	}
}

// usageError is an invalid command line, reported with exit status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// parseArgs splits argv into driver options, directives and the command.
func parseArgs(argv []string) (*options, directive.Scan, error) {
	o := &options{}
	flags := newFlagSet(o)

	scan, err := directive.ScanArgs(argv, isOption(flags))
	if err != nil {
		return nil, directive.Scan{}, &usageError{err}
	}
	if err := flags.Parse(scan.Options); err != nil {
		return nil, directive.Scan{}, &usageError{err}
	}
	if extra := flags.Args(); len(extra) > 0 {
		return nil, directive.Scan{}, &usageError{fmt.Errorf("unexpected argument %q", extra[0])}
	}
	if o.debug && o.check {
		return nil, directive.Scan{}, &usageError{fmt.Errorf("--debug and --check are mutually exclusive")}
	}
	return o, scan, nil
}

// needsCommand reports whether the invocation must end in "-- COMMAND".
func (o *options) needsCommand() bool {
	return !o.help && !o.version && !o.check && !o.listModules
}

func printUsage(w io.Writer) {
	flags := newFlagSet(&options{})
	fmt.Fprintf(w, `xiwrap - run a command in a bubblewrap sandbox described by directive modules

USAGE
    xiwrap [OPTION]... -- COMMAND [ARG]...

DIRECTIVES
    Any directive can be given as a flag, with the same arguments as in a
    module file:

    --include MODULE            splice a module (builtin: %s)
    --ro-bind[-try] SRC [DEST]  read-only bind mount (-try: skip if SRC is missing)
    --bind[-try], --dev-bind[-try], --ro-bind-text TEXT DEST
    --tmpfs, --proc, --dev, --mqueue, --dir DEST
    --setenv NAME [VALUE], --unsetenv NAME
    --share-net, --share-pid, --share-ipc
    --app-id ID
    --dbus[-session|-system]-{see,talk,own} NAME
    --dbus[-session|-system]-{call,broadcast} NAME=RULE

    Arguments expand $NAME and ${NAME}; write $$ for a literal $. The TEXT
    of --ro-bind-text is never expanded.

OPTIONS
%s
ENVIRONMENT
    XIWRAP_CONFIG    configuration file used when --config is not given
    XIWRAP_DEBUG     enable debug logging, like --verbose
    XDG_CONFIG_HOME  user modules are read from $XDG_CONFIG_HOME/xiwrap/includes

EXIT STATUS
    The command's exit status; 125 if xiwrap failed before starting it;
    2 for an invalid command line.
`, strings.Join(modules.Names(), ", "), flags.FlagUsages())
}
