// SPDX-License-Identifier: ice License 1.0

package postgres

import (
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ice-blockchain/authenticator/privacy"
)

// Public API.

type (
	Config struct {
		PrimaryURL string `yaml:"primaryURL" mapstructure:"primaryURL"` //nolint:tagliatelle // Nope.
		RunDDL     bool   `yaml:"runDDL" mapstructure:"runDDL"`         //nolint:tagliatelle // Nope.
	}
)

// Private API.

const (
	schemaTable = "authenticator_schema_migrations"
)

// .
var (
	//go:embed migrations/*.sql
	migrationsFS embed.FS
)

type (
	repository struct {
		pool *pgxpool.Pool
		ed   privacy.EncryptDecrypter
	}
)
