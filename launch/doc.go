// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package launch turns a flattened directive stream into running
// processes: the bus proxies the stream asks for, then bwrap.
//
// [Prepare] runs both compilers and is side-effect free, so "--debug" can
// print exactly what [Runner.Run] would start. Run owns every resource it
// creates (the socket directory, the readiness pipe, unlinked data files,
// the proxy processes) and releases all of them on every return path,
// including startup failures and context cancellation.
//
// Proxies and bwrap share one readiness pipe. Each proxy gets the write
// end and reports readiness with a single byte; bwrap gets the read end
// through --sync-fd and holds it for the sandbox's lifetime, so the
// proxies exit on their own once the sandbox is gone. Run still sends
// them SIGTERM during cleanup.
package launch
