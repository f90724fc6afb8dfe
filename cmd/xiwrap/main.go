// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/xiwrap/busproxy"
	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
	"github.com/bureau-foundation/xiwrap/include"
	"github.com/bureau-foundation/xiwrap/launch"
	"github.com/bureau-foundation/xiwrap/lib/config"
	"github.com/bureau-foundation/xiwrap/lib/process"
	"github.com/bureau-foundation/xiwrap/lib/version"
	"github.com/bureau-foundation/xiwrap/modules"
	"github.com/bureau-foundation/xiwrap/sandbox"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], environ.Process(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit, returning the exit status.
func run(ctx context.Context, argv []string, env environ.Env, stdout, stderr io.Writer) int {
	o, scan, err := parseArgs(argv)
	if err != nil {
		process.Report(stderr, err)
		fmt.Fprintln(stderr, "Try 'xiwrap --help' for more information.")
		return process.ExitUsage
	}

	switch {
	case o.help:
		printUsage(stdout)
		return 0
	case o.version:
		fmt.Fprintln(stdout, version.Info())
		return 0
	case o.listModules:
		for _, name := range modules.Names() {
			fmt.Fprintln(stdout, name)
		}
		return 0
	}

	if o.needsCommand() && len(scan.Command) == 0 {
		process.Report(stderr, errors.New("missing command: expected -- COMMAND [ARG]..."))
		return process.ExitUsage
	}

	logger := newLogger(stderr, o.verbose, env)
	slog.SetDefault(logger)

	cfg, cfgPath, err := config.Select(o.configPath, env.Lookup)
	if err != nil {
		process.Report(stderr, err)
		return process.ExitSetup
	}
	if cfgPath != "" {
		logger.Debug("loaded configuration", "path", cfgPath)
	}

	stream, err := resolve(scan.Directives, o, cfg, env, logger)
	if err != nil {
		process.Report(stderr, err)
		return process.ExitSetup
	}

	if o.check {
		return check(stream, cfg, env, stdout, stderr)
	}

	settings, err := helperSettings(stream, cfg, env, logger, o.debug)
	if err != nil {
		process.Report(stderr, err)
		return process.ExitSetup
	}
	prepared, err := launch.Prepare(stream, scan.Command, settings)
	if err != nil {
		process.Report(stderr, err)
		return process.ExitSetup
	}

	if o.debug {
		printInvocations(stdout, prepared)
		return 0
	}

	runner := &launch.Runner{
		Logger:         logger,
		Env:            env,
		StartupTimeout: cfg.StartupTimeout(),
	}
	err = runner.Run(ctx, prepared)
	if code, ok := launch.ExitCode(err); ok {
		return code
	}
	if err != nil {
		process.Report(stderr, err)
		return process.ExitSetup
	}
	return 0
}

// resolve flattens the command-line directives. Relative includes given
// on the command line resolve against the working directory.
func resolve(root directive.Stream, o *options, cfg *config.Config, env environ.Env, logger *slog.Logger) (directive.Stream, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	resolver := include.New(include.Options{
		SearchPaths: include.SearchPaths(env, o.includePaths, cfg.IncludePaths, cfg.SystemIncludes()),
		Builtin:     modules.FS(),
		Env:         env,
		Logger:      logger,
	})
	stream, err := resolver.Flatten(root, workingDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("flattened directives", "count", len(stream))
	return stream, nil
}

// helperSettings locates bwrap and, when bus rules are present,
// xdg-dbus-proxy. In debug mode a missing helper is printed by name.
func helperSettings(stream directive.Stream, cfg *config.Config, env environ.Env, logger *slog.Logger, debug bool) (launch.Settings, error) {
	rules, err := busproxy.Rules(stream)
	if err != nil {
		return launch.Settings{}, err
	}

	bwrap, err := sandbox.BwrapPath(cfg.Bwrap)
	if err != nil {
		if !debug {
			return launch.Settings{}, err
		}
		bwrap = "bwrap"
	}

	var dbusProxy string
	if len(rules) > 0 {
		dbusProxy, err = sandbox.FindExecutable("xdg-dbus-proxy", cfg.DBusProxy, nil)
		if err != nil {
			if !debug {
				return launch.Settings{}, err
			}
			dbusProxy = "xdg-dbus-proxy"
		}
	}

	return launch.Settings{
		Bwrap:        bwrap,
		DBusProxy:    dbusProxy,
		ConfineProxy: cfg.ConfineProxy,
		Env:          env,
		Exists:       environ.Exists,
		Logger:       logger,
	}, nil
}

// check runs the pre-flight validation for the resolved stream.
func check(stream directive.Stream, cfg *config.Config, env environ.Env, stdout, stderr io.Writer) int {
	rules, err := busproxy.Rules(stream)
	if err != nil {
		process.Report(stderr, err)
		return process.ExitSetup
	}
	needsBus := len(rules) > 0

	validator := sandbox.NewValidator()
	validator.ValidateBwrap(cfg.Bwrap)
	validator.ValidateDBusProxy(cfg.DBusProxy, needsBus)
	validator.ValidateUserNamespaces()
	validator.ValidateRuntimeDir(env, needsBus)
	validator.ValidateSources(stream, environ.Exists)
	validator.PrintStyledResults(stdout, checkMarks(stdout))

	if validator.HasErrors() {
		return process.ExitSetup
	}
	return 0
}

// printInvocations writes each helper command line with its inherited
// descriptors.
func printInvocations(w io.Writer, prepared *launch.Prepared) {
	if !prepared.Plan.Empty() {
		fmt.Fprintf(w, "# socket directory: %s\n", prepared.SocketDir)
	}
	for _, invocation := range prepared.Invocations() {
		for i, file := range invocation.Files {
			fd := sandbox.FirstExtraFD + i
			if file.Kind == sandbox.Data {
				fmt.Fprintf(w, "# fd %d: %s %q\n", fd, file.Kind, file.Data)
			} else {
				fmt.Fprintf(w, "# fd %d: %s\n", fd, file.Kind)
			}
		}
		fmt.Fprintln(w, invocation.String())
	}
}
