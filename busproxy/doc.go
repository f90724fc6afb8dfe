// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package busproxy compiles the dbus-* directives of a flattened stream
// into xdg-dbus-proxy invocations and waits for started proxies to become
// ready.
//
// Each bus scope (session, system) is compiled independently. A scope
// with no rules gets no proxy and no socket; a stream without bus
// directives yields an empty [Plan]. For an active scope the proxy
// listens on a socket in a per-invocation directory ([NewSocketDir]) and
// [Plan.Bindings] tells the sandbox compiler where to mount it.
//
// Proxies signal readiness by writing a byte to the descriptor passed
// with --fd. [WaitReady] combines that byte, the socket appearing on disk,
// and the proxy's own exit into one bounded wait; exceeding the bound is
// a [StartupTimeoutError].
package busproxy
