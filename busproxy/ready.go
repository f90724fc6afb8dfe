// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package busproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bureau-foundation/xiwrap/lib/clock"
)

// ErrSyncClosed means the readiness pipe reached end of file: every
// proxy holding the write end exited without signaling.
var ErrSyncClosed = errors.New("readiness pipe closed before the proxy signaled")

// Condition is one readiness signal. Done receives nil once when the
// condition holds, or an error if it never will.
type Condition struct {
	Name string
	Done <-chan error
}

// StartupTimeoutError reports conditions still unmet when the startup
// bound expired.
type StartupTimeoutError struct {
	Scope   Scope
	Timeout time.Duration
	Pending []string
}

func (e *StartupTimeoutError) Error() string {
	scope := ""
	if e.Scope != "" {
		scope = string(e.Scope) + " "
	}
	return fmt.Sprintf("%sbus proxy not ready after %v (waiting for %s)",
		scope, e.Timeout, strings.Join(e.Pending, ", "))
}

// SyncByte returns a Condition satisfied when one byte is read from r.
// xdg-dbus-proxy writes that byte to its --fd once it is listening.
func SyncByte(r io.Reader) Condition {
	done := make(chan error, 1)
	go func() {
		var buffer [1]byte
		_, err := io.ReadFull(r, buffer[:])
		switch {
		case err == nil:
			done <- nil
		case errors.Is(err, io.EOF):
			done <- ErrSyncClosed
		default:
			done <- fmt.Errorf("reading readiness pipe: %w", err)
		}
	}()
	return Condition{Name: "sync byte", Done: done}
}

// WaitReady blocks until every condition is satisfied. It fails early if a
// condition fails, if abort delivers (typically the proxy exiting), or if
// ctx ends, and with a *StartupTimeoutError once timeout elapses on clk.
// Conditions that already hold are collected before the bound is armed.
func WaitReady(ctx context.Context, clk clock.Clock, timeout time.Duration, abort <-chan error, conditions ...Condition) error {
	pending := make(map[int]bool, len(conditions))
	for i, condition := range conditions {
		select {
		case err := <-condition.Done:
			if err != nil {
				return fmt.Errorf("%s: %w", condition.Name, err)
			}
		default:
			pending[i] = true
		}
	}
	if len(pending) == 0 {
		return nil
	}

	deadline := clk.After(timeout)

	results := make(chan result, len(pending))
	stop := make(chan struct{})
	defer close(stop)
	for i := range pending {
		go func() {
			select {
			case err := <-conditions[i].Done:
				results <- result{index: i, err: err}
			case <-stop:
			}
		}()
	}

	settle := func(r result) error {
		if r.err != nil {
			return fmt.Errorf("%s: %w", conditions[r.index].Name, r.err)
		}
		delete(pending, r.index)
		return nil
	}

	for len(pending) > 0 {
		select {
		case r := <-results:
			if err := settle(r); err != nil {
				return err
			}
		case err := <-abort:
			if err == nil {
				err = errors.New("proxy exited")
			}
			return err
		case <-deadline:
			// Results that raced the deadline still count.
			for drained := false; !drained; {
				select {
				case r := <-results:
					if err := settle(r); err != nil {
						return err
					}
				default:
					drained = true
				}
			}
			if len(pending) == 0 {
				return nil
			}
			var names []string
			for i, condition := range conditions {
				if pending[i] {
					names = append(names, condition.Name)
				}
			}
			return &StartupTimeoutError{Timeout: timeout, Pending: names}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

type result struct {
	index int
	err   error
}
