// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"errors"
	"fmt"
)

// ExitError carries a non-zero exit status of the sandboxed command. A
// command killed by a signal reports 128 plus the signal number, as a
// shell would.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

// ExitCode returns the code carried by an *ExitError in err's chain.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// ProxyExitedError reports a bus proxy that exited before it was ready.
type ProxyExitedError struct {
	Scope string
	Err   error
}

func (e *ProxyExitedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s bus proxy exited before becoming ready", e.Scope)
	}
	return fmt.Sprintf("%s bus proxy exited before becoming ready: %v", e.Scope, e.Err)
}

func (e *ProxyExitedError) Unwrap() error { return e.Err }
