// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package include

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/xiwrap/directive"
)

// IncludeNotFoundError reports a reference that matched nothing on the
// search path.
type IncludeNotFoundError struct {
	Ref      string
	Location directive.Location
	Searched []string
}

func (e *IncludeNotFoundError) Error() string {
	return fmt.Sprintf("%s: include %q not found (searched: %s)",
		e.Location, e.Ref, strings.Join(e.Searched, ", "))
}

// CircularIncludeError reports an include chain that leads back to a module
// still being expanded. Cycle starts and ends with the repeated module.
type CircularIncludeError struct {
	Cycle    []string
	Location directive.Location
}

func (e *CircularIncludeError) Error() string {
	return fmt.Sprintf("%s: circular include: %s", e.Location, strings.Join(e.Cycle, " -> "))
}
