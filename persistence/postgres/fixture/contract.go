// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"sync"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Public API.

type (
	// Container is a disposable Postgres server; every TempDB call gets its own database cloned from the default one.
	Container struct {
		container *postgres.PostgresContainer
		seed      uint64
		mx        sync.Mutex
	}
)

// Private API.

const (
	pgImage    = "postgres:17-alpine"
	pgUser     = "postgres"
	pgPass     = "postgres"
	pgDatabase = "postgres"
	dbPort     = "5432/tcp"
)
