// SPDX-License-Identifier: ice License 1.0

package sqlite

import (
	"database/sql"
	"embed"

	"github.com/ice-blockchain/authenticator/privacy"
)

// Public API.

type (
	Config struct {
		Path string `yaml:"path" mapstructure:"path"`
	}
)

// Private API.

const (
	maxReaders = 4
	pragmas    = "_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
)

// .
var (
	//go:embed migrations/*.sql
	migrationsFS embed.FS
)

type (
	// repository uses a single writer connection and a small reader pool, so writes never hit "database is locked".
	repository struct {
		writer *sql.DB
		reader *sql.DB
		ed     privacy.EncryptDecrypter
	}
)
