// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/bureau-foundation/xiwrap/busproxy"
	"github.com/bureau-foundation/xiwrap/environ"
	"github.com/bureau-foundation/xiwrap/lib/clock"
	"github.com/bureau-foundation/xiwrap/sandbox"
)

const (
	// DefaultStartupTimeout bounds each proxy's readiness wait.
	DefaultStartupTimeout = 5 * time.Second

	// DefaultStopGrace is how long a proxy has to exit after SIGTERM
	// before it is killed.
	DefaultStopGrace = 2 * time.Second
)

// Runner starts prepared invocations. The zero value is usable and talks
// to the real clock and the process's standard streams.
type Runner struct {
	Clock  clock.Clock
	Logger *slog.Logger

	// Env supplies PATH and TERM for the helper processes.
	Env environ.Env

	StartupTimeout time.Duration
	StopGrace      time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// runningProxy tracks one started proxy until it is reaped.
type runningProxy struct {
	proxy *busproxy.Proxy
	cmd   *exec.Cmd

	// exited receives once when the process exits.
	exited chan error

	// done closes after the process is reaped.
	done chan struct{}
}

// Run starts the proxies of p, waits for each to become ready, then runs
// bwrap to completion. A non-zero exit of the sandboxed command is
// returned as *ExitError; any other error means the command never ran or
// its status could not be collected.
func (r *Runner) Run(ctx context.Context, p *Prepared) (err error) {
	r.defaults()

	var pipe *syncPipe
	var proxies []*runningProxy
	defer func() {
		for i := len(proxies) - 1; i >= 0; i-- {
			r.stopProxy(proxies[i])
		}
		pipe.Close()
		if pipe != nil {
			if removeErr := os.RemoveAll(p.SocketDir); removeErr != nil {
				r.Logger.Warn("removing socket directory", "path", p.SocketDir, "error", removeErr)
			}
		}
	}()

	if !p.Plan.Empty() {
		if err := busproxy.CreateSocketDir(p.SocketDir); err != nil {
			return err
		}
		// The socket directory exists from here on; the deferred
		// cleanup keys its removal on pipe being set.
		pipe, err = newSyncPipe()
		if err != nil {
			os.RemoveAll(p.SocketDir)
			return err
		}
	}

	for _, proxy := range p.Plan.Proxies() {
		running, err := r.startProxy(ctx, proxy, pipe)
		if running != nil {
			proxies = append(proxies, running)
		}
		if err != nil {
			return err
		}
	}
	pipe.closeWrite()

	return r.runSandbox(ctx, p.Sandbox, pipe)
}

func (r *Runner) defaults() {
	if r.Clock == nil {
		r.Clock = clock.Real()
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.StartupTimeout <= 0 {
		r.StartupTimeout = DefaultStartupTimeout
	}
	if r.StopGrace <= 0 {
		r.StopGrace = DefaultStopGrace
	}
	if r.Stdin == nil {
		r.Stdin = os.Stdin
	}
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
}

// startProxy starts one proxy and blocks until it is ready. The returned
// proxy is non-nil whenever a process was started, even on error, so the
// caller can stop it.
func (r *Runner) startProxy(ctx context.Context, proxy *busproxy.Proxy, pipe *syncPipe) (*runningProxy, error) {
	logger := r.Logger.With("scope", proxy.Scope)

	socket, stopWatch, err := busproxy.SocketCreated(proxy.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("watching %s bus socket: %w", proxy.Scope, err)
	}
	defer stopWatch()

	extra, owned, err := openFiles(proxy.Invocation.Files, pipe)
	if err != nil {
		return nil, fmt.Errorf("%s bus proxy: %w", proxy.Scope, err)
	}
	defer closeAll(owned)

	cmd := exec.Command(proxy.Invocation.Executable, proxy.Invocation.Args...)
	cmd.Env = r.helperEnv()
	cmd.ExtraFiles = extra
	cmd.Stdout = r.Stderr
	cmd.Stderr = r.Stderr

	logger.Debug("starting bus proxy", "command", proxy.Invocation.String())
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s bus proxy: %w", proxy.Scope, err)
	}

	running := &runningProxy{
		proxy:  proxy,
		cmd:    cmd,
		exited: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go func() {
		waitErr := cmd.Wait()
		running.exited <- &ProxyExitedError{Scope: string(proxy.Scope), Err: waitErr}
		close(running.done)
	}()

	err = busproxy.WaitReady(ctx, r.Clock, r.StartupTimeout, running.exited,
		busproxy.SyncByte(pipe.read), socket)
	if err != nil {
		var timeout *busproxy.StartupTimeoutError
		if errors.As(err, &timeout) {
			timeout.Scope = proxy.Scope
			return running, timeout
		}
		var exited *ProxyExitedError
		if errors.As(err, &exited) {
			return running, exited
		}
		return running, fmt.Errorf("waiting for %s bus proxy: %w", proxy.Scope, err)
	}
	logger.Debug("bus proxy ready", "pid", cmd.Process.Pid, "socket", proxy.SocketPath)
	return running, nil
}

// stopProxy sends SIGTERM, waits up to StopGrace, then kills. It returns
// once the process is reaped.
func (r *Runner) stopProxy(running *runningProxy) {
	select {
	case <-running.done:
		return
	default:
	}

	logger := r.Logger.With("scope", running.proxy.Scope, "pid", running.cmd.Process.Pid)
	if err := running.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logger.Warn("signaling bus proxy", "error", err)
	}
	select {
	case <-running.done:
		logger.Debug("bus proxy stopped")
	case <-r.Clock.After(r.StopGrace):
		logger.Warn("bus proxy ignored SIGTERM, killing", "grace", r.StopGrace)
		running.cmd.Process.Kill()
		<-running.done
	}
}

// runSandbox runs bwrap in the foreground and translates its status.
func (r *Runner) runSandbox(ctx context.Context, invocation *sandbox.Invocation, pipe *syncPipe) error {
	extra, owned, err := openFiles(invocation.Files, pipe)
	if err != nil {
		return fmt.Errorf("sandbox: %w", err)
	}
	defer func() { closeAll(owned) }()

	cmd := exec.CommandContext(ctx, invocation.Executable, invocation.Args...)
	cmd.Env = r.helperEnv()
	cmd.ExtraFiles = extra
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.StopGrace

	r.Logger.Debug("starting sandbox", "command", invocation.String())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting bwrap: %w", err)
	}
	// bwrap now holds the read end; the proxies watch it to notice the
	// sandbox going away.
	closeAll(owned)
	owned = nil
	pipe.closeRead()

	err = cmd.Wait()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			code = 128 + int(status.Signal())
		}
		r.Logger.Debug("sandbox exited", "code", code)
		return &ExitError{Code: code}
	}
	return fmt.Errorf("waiting for bwrap: %w", err)
}

// helperEnv is the environment of bwrap and the proxies themselves, not of
// the sandboxed command: bwrap runs with --clearenv. Only PATH and TERM
// are passed so nothing else from the caller leaks into /proc/PID/environ
// of the helpers.
func (r *Runner) helperEnv() []string {
	path := r.Env.Get("PATH")
	if path == "" {
		path = "/usr/local/bin:/usr/bin:/bin"
	}
	env := []string{"PATH=" + path}
	if term := r.Env.Get("TERM"); term != "" {
		env = append(env, "TERM="+term)
	}
	return env
}
