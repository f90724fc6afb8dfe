// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package busproxy

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
	"github.com/bureau-foundation/xiwrap/sandbox"
)

const (
	// DefaultSystemAddress is used when DBUS_SYSTEM_BUS_ADDRESS is unset.
	DefaultSystemAddress = "unix:path=/var/run/dbus/system_bus_socket"

	// SystemDest is where the system bus proxy appears in the sandbox.
	SystemDest = "/run/dbus/system_bus_socket"
)

// ErrNoSocketDir means a plan with active scopes was compiled without a
// socket directory.
var ErrNoSocketDir = errors.New("bus rules present but no socket directory allocated")

// Options configures Compile.
type Options struct {
	// Executable is the xdg-dbus-proxy path.
	Executable string

	// SocketDir holds the proxy sockets. Required when the stream has
	// bus rules; allocate it with NewSocketDir.
	SocketDir string

	// Env provides bus addresses and XDG_RUNTIME_DIR.
	Env environ.Env

	// Confine runs each proxy inside its own minimal bwrap sandbox.
	Confine bool

	// Bwrap is the bwrap path used when Confine is set.
	Bwrap string

	// Exists is passed to the sandbox compiler for the confinement
	// wrapper. Nil means environ.Exists.
	Exists environ.Predicate

	Logger *slog.Logger
}

// Proxy is the compiled proxy for one scope.
type Proxy struct {
	Scope Scope

	// Address is the real bus the proxy connects to.
	Address string

	// SocketPath is where the proxy listens on the host.
	SocketPath string

	// Dest is where SocketPath is mounted inside the sandbox.
	Dest string

	Rules []Rule

	// Invocation starts the proxy. Files[0] is the write end of the
	// readiness pipe.
	Invocation *sandbox.Invocation
}

// AddressVar is the environment variable that locates this bus.
func (p *Proxy) AddressVar() string {
	if p.Scope == System {
		return "DBUS_SYSTEM_BUS_ADDRESS"
	}
	return "DBUS_SESSION_BUS_ADDRESS"
}

// Plan holds the proxies needed by one stream.
type Plan struct {
	Session *Proxy
	System  *Proxy
}

// Empty reports whether no proxy is needed.
func (p *Plan) Empty() bool {
	return p.Session == nil && p.System == nil
}

// Proxies returns the active proxies in start order, system first.
func (p *Plan) Proxies() []*Proxy {
	var proxies []*Proxy
	if p.System != nil {
		proxies = append(proxies, p.System)
	}
	if p.Session != nil {
		proxies = append(proxies, p.Session)
	}
	return proxies
}

// Bindings returns the socket mounts for the sandbox compiler.
func (p *Plan) Bindings() []sandbox.BusBinding {
	var bindings []sandbox.BusBinding
	for _, proxy := range p.Proxies() {
		bindings = append(bindings, sandbox.BusBinding{
			Socket:     proxy.SocketPath,
			Dest:       proxy.Dest,
			AddressVar: proxy.AddressVar(),
		})
	}
	return bindings
}

// Rules collects the bus rules of stream in order, ignoring every other
// directive.
func Rules(stream directive.Stream) ([]Rule, error) {
	var rules []Rule
	for _, d := range stream {
		if d.Kind() != directive.KindBus {
			continue
		}
		rule, err := ParseRule(d)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Compile builds the proxy plan for stream.
func Compile(stream directive.Stream, options Options) (*Plan, error) {
	rules, err := Rules(stream)
	if err != nil {
		return nil, err
	}

	var appID string
	for _, d := range stream {
		if d.Kind() == directive.KindAppID && len(d.Args) == 1 {
			appID = d.Args[0]
		}
	}

	byScope := map[Scope][]Rule{}
	for _, rule := range rules {
		byScope[rule.Scope] = append(byScope[rule.Scope], rule)
	}

	plan := &Plan{}
	if len(rules) == 0 {
		return plan, nil
	}
	if options.SocketDir == "" {
		return nil, ErrNoSocketDir
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, scope := range []Scope{System, Session} {
		scopeRules := byScope[scope]
		if len(scopeRules) == 0 {
			continue
		}
		proxy := &Proxy{
			Scope:      scope,
			Address:    busAddress(scope, options.Env),
			SocketPath: filepath.Join(options.SocketDir, "dbus-"+string(scope)+".sock"),
			Dest:       busDest(scope, options.Env),
			Rules:      scopeRules,
		}
		invocation, err := proxyInvocation(proxy, appID, options)
		if err != nil {
			return nil, fmt.Errorf("%s bus proxy: %w", scope, err)
		}
		proxy.Invocation = invocation
		logger.Debug("compiled bus proxy",
			"scope", string(scope),
			"address", proxy.Address,
			"socket", proxy.SocketPath,
			"rules", len(scopeRules),
		)
		if scope == System {
			plan.System = proxy
		} else {
			plan.Session = proxy
		}
	}
	return plan, nil
}

func busAddress(scope Scope, env environ.Env) string {
	if scope == System {
		if address, ok := env.Lookup("DBUS_SYSTEM_BUS_ADDRESS"); ok && address != "" {
			return address
		}
		return DefaultSystemAddress
	}
	if address, ok := env.Lookup("DBUS_SESSION_BUS_ADDRESS"); ok && address != "" {
		return address
	}
	return "unix:path=" + filepath.Join(env.RuntimeDir(), "bus")
}

func busDest(scope Scope, env environ.Env) string {
	if scope == System {
		return SystemDest
	}
	return filepath.Join(env.RuntimeDir(), "bus")
}

// proxyArgs is the xdg-dbus-proxy command line reporting readiness on fd.
func proxyArgs(proxy *Proxy, fd int) []string {
	args := []string{
		"--fd=" + strconv.Itoa(fd),
		proxy.Address,
		proxy.SocketPath,
		"--filter",
	}
	for _, rule := range proxy.Rules {
		args = append(args, rule.Flag())
	}
	return args
}

func proxyInvocation(proxy *Proxy, appID string, options Options) (*sandbox.Invocation, error) {
	reserved := []sandbox.ExtraFile{{Kind: sandbox.SyncWrite}}
	args := proxyArgs(proxy, sandbox.FirstExtraFD)

	if !options.Confine {
		return &sandbox.Invocation{
			Executable: options.Executable,
			Args:       args,
			Files:      reserved,
		}, nil
	}

	command := append([]string{options.Executable}, args...)
	return sandbox.Compile(ConfineStream(options.SocketDir, appID), command, sandbox.Options{
		Executable: options.Bwrap,
		Env:        options.Env,
		Exists:     options.Exists,
		Reserved:   reserved,
		Logger:     options.Logger,
	})
}

// confineFile labels directives synthesized for the proxy wrapper.
const confineFile = "<dbus-proxy sandbox>"

// ConfineStream is the sandbox a confined proxy runs in: the host's
// programs and libraries, the runtime directories holding the real buses,
// the socket directory, and the host network namespace so abstract bus
// sockets stay reachable.
func ConfineStream(socketDir, appID string) directive.Stream {
	lines := [][]string{
		{"tmpfs", "/tmp"},
		{"dev", "/dev"},
		{"proc", "/proc"},
		{"bind-try", "/bin"},
		{"bind-try", "/lib"},
		{"bind-try", "/lib64"},
		{"bind-try", "/usr"},
		{"bind-try", "/etc"},
		{"bind-try", "/run"},
		{"bind", socketDir},
		{"share-net"},
	}
	if appID != "" {
		lines = append(lines, []string{"app-id", appID})
	}
	stream := make(directive.Stream, len(lines))
	for i, line := range lines {
		stream[i] = directive.Directive{
			Name:     line[0],
			Args:     line[1:],
			Location: directive.Location{File: confineFile, Line: i + 1},
		}
	}
	return stream
}
