// SPDX-License-Identifier: ice License 1.0

package postgres

import (
	"context"
	"io/fs"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"github.com/pkg/errors"

	appcfg "github.com/ice-blockchain/authenticator/config"
	"github.com/ice-blockchain/authenticator/log"
	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/privacy"
	"github.com/ice-blockchain/authenticator/terror"
)

// New connects to cfg.PrimaryURL (or the `..._PRIMARY_URL` env variable derived from applicationYAMLKey)
// and, when cfg.RunDDL is set, applies the embedded migrations.
func New(ctx context.Context, applicationYAMLKey string, cfg *Config, ed privacy.EncryptDecrypter) (persistence.Repository, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	url := appcfg.EnvFallback(cfg.PrimaryURL, applicationYAMLKey, "PRIMARY_URL")
	if url == "" {
		return nil, errors.New("postgres primaryURL is required")
	}
	pool, err := connect(ctx, url)
	if err != nil {
		return nil, err
	}
	repo := &repository{pool: pool, ed: ed}
	if cfg.RunDDL {
		if err = repo.migrate(ctx); err != nil {
			pool.Close()

			return nil, err
		}
	}

	return repo, nil
}

func connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse pool config")
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		var res int
		if qErr := conn.QueryRow(ctx, `SELECT 1`).Scan(&res); qErr != nil {
			return errors.Wrapf(qErr, "dummy select failed")
		}
		if res != 1 {
			return errors.New("db validation failed")
		}

		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start pool")
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	return pool, nil
}

func (r *repository) migrate(ctx context.Context) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot acquire connection for migration")
	}
	defer conn.Release()
	m, err := migrate.NewMigrator(ctx, conn.Conn(), schemaTable)
	if err != nil {
		return errors.Wrap(err, "cannot create migrator")
	}
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "cannot open embedded migrations")
	}
	if err = m.LoadMigrations(migrations); err != nil {
		return errors.Wrap(err, "cannot load migrations")
	}
	m.OnStart = func(sequence int32, name, direction, _ string) {
		log.Info("starting migration", "sequence", sequence, "name", name, "direction", direction)
	}

	return errors.Wrap(m.Migrate(ctx), "failed to migrate")
}

func (r *repository) Insert(ctx context.Context, issuer, account, secret string) (*persistence.Row, error) {
	const query = `INSERT INTO credentials (issuer, account, secret) VALUES ($1, $2, $3) RETURNING id::text AS id, issuer, account, secret`
	row := new(persistence.Row)
	if err := pgxscan.Get(ctx, r.pool, row, query, issuer, account, r.ed.Encrypt(secret)); err != nil {
		return nil, errors.Wrapf(parseDBError(err), "failed to insert credential for %v/%v", issuer, account)
	}
	row.Secret = secret

	return row, nil
}

func (r *repository) SelectAll(ctx context.Context) ([]*persistence.Row, error) {
	const query = `SELECT id::text AS id, issuer, account, secret FROM credentials ORDER BY id`
	var rows []*persistence.Row
	if err := pgxscan.Select(ctx, r.pool, &rows, query); err != nil {
		return nil, errors.Wrap(parseDBError(err), "failed to select credentials")
	}
	readable := make([]*persistence.Row, 0, len(rows))
	var unreadable *multierror.Error
	for _, row := range rows {
		secret, err := r.ed.Decrypt(row.Secret)
		if err != nil {
			unreadable = multierror.Append(unreadable, errors.Wrapf(err, "failed to decrypt secret of credential %v", row.ID))

			continue
		}
		row.Secret = secret
		readable = append(readable, row)
	}
	if unreadable != nil {
		return readable, multierror.Append(persistence.ErrUnreadable, unreadable.Errors...)
	}

	return readable, nil
}

func (r *repository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM credentials WHERE id::text = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrapf(parseDBError(err), "failed to delete credential %v", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(persistence.ErrNotFound, "credential %v", id)
	}

	return nil
}

func (r *repository) Close() error {
	r.pool.Close()

	return nil
}

func parseDBError(err error) error {
	var dbErr *pgconn.PgError
	if errors.As(err, &dbErr) && dbErr.Code == pgerrcode.UniqueViolation {
		return terror.New(persistence.ErrDuplicate, map[string]any{"constraint": dbErr.ConstraintName})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}

	return err
}
