// SPDX-License-Identifier: ice License 1.0

package persistence

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Public API.

const (
	MemoryDriver   = "memory"
	SQLiteDriver   = "sqlite"
	PostgresDriver = "postgres"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")
	// ErrUnreadable is returned by SelectAll, together with every readable row, when some secrets could not be read.
	ErrUnreadable = errors.New("unreadable")
)

type (
	// Row is one stored credential. Secret is stored and returned verbatim.
	Row struct {
		ID      string `db:"id"`
		Issuer  string `db:"issuer"`
		Account string `db:"account"`
		Secret  string `db:"secret"`
	}
	// Repository is a row store keyed by an id it assigns itself.
	// SelectAll returns rows in insertion order.
	Repository interface {
		io.Closer
		Insert(ctx context.Context, issuer, account, secret string) (*Row, error)
		SelectAll(ctx context.Context) ([]*Row, error)
		DeleteByID(ctx context.Context, id string) error
	}
)
