// SPDX-License-Identifier: ice License 1.0

package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/persistence"
)

type (
	repository struct {
		rows []persistence.Row
		mx   sync.RWMutex
	}
)

// New builds a process-local repository; rows are lost on exit.
func New() persistence.Repository {
	return new(repository)
}

func (r *repository) Insert(ctx context.Context, issuer, account, secret string) (*persistence.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "context failed")
	}
	row := persistence.Row{ID: uuid.NewString(), Issuer: issuer, Account: account, Secret: secret}
	r.mx.Lock()
	r.rows = append(r.rows, row)
	r.mx.Unlock()

	return &row, nil
}

func (r *repository) SelectAll(ctx context.Context) ([]*persistence.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "context failed")
	}
	r.mx.RLock()
	defer r.mx.RUnlock()
	rows := make([]*persistence.Row, 0, len(r.rows))
	for ix := range r.rows {
		row := r.rows[ix]
		rows = append(rows, &row)
	}

	return rows, nil
}

func (r *repository) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context failed")
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	ix := slices.IndexFunc(r.rows, func(row persistence.Row) bool { return row.ID == id })
	if ix < 0 {
		return errors.Wrapf(persistence.ErrNotFound, "credential %v", id)
	}
	r.rows = slices.Delete(r.rows, ix, ix+1)

	return nil
}

func (*repository) Close() error {
	return nil
}
