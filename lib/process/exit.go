// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
)

const (
	// ExitUsage reports an invalid command line.
	ExitUsage = 2

	// ExitSetup reports a failure before the sandboxed command ran:
	// parse, include, compile, or proxy startup errors.
	ExitSetup = 125
)

// Report writes "xiwrap: err" to w.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "xiwrap: %v\n", err)
}
