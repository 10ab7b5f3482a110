// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"sync"
	stdlibtime "time"
)

// Public API.

type (
	// Clock is a settable clock.TimeSource for tests.
	Clock struct {
		now stdlibtime.Time
		err error
		mx  sync.Mutex
	}
)
