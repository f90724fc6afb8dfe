// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the proxy readiness wait and the shutdown grace
// period run against either wall time or a test-controlled clock.
//
// Production code receives Real(). Tests construct Fake(start), start the
// code under test, call WaitForTimers until the code has armed its
// deadline, then Advance past it:
//
//	c := clock.Fake(time.Unix(0, 0))
//	go func() { done <- busproxy.WaitReady(ctx, c, time.Second, signal) }()
//	c.WaitForTimers(1)
//	c.Advance(time.Second)
package clock
