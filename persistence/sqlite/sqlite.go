// SPDX-License-Identifier: ice License 1.0

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" //nolint:revive // Registers the driver.

	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/privacy"
)

// New opens (creating if needed) the database file at cfg.Path in WAL mode and applies pending migrations.
func New(ctx context.Context, cfg *Config, ed privacy.EncryptDecrypter) (persistence.Repository, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	return open(ctx, fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&%s", cfg.Path, pragmas), ed)
}

func open(ctx context.Context, dsn string, ed privacy.EncryptDecrypter) (*repository, error) {
	writer, err := connect(ctx, dsn, 1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open writer")
	}
	reader, err := connect(ctx, dsn, maxReaders)
	if err != nil {
		return nil, multierror.Append(errors.Wrap(err, "failed to open reader"), writer.Close()).ErrorOrNil()
	}
	repo := &repository{writer: writer, reader: reader, ed: ed}
	if err = runMigrations(writer); err != nil {
		return nil, multierror.Append(err, repo.Close()).ErrorOrNil()
	}

	return repo, nil
}

func connect(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %v", dsn)
	}
	db.SetMaxOpenConns(maxConns)
	if err = db.PingContext(ctx); err != nil {
		return nil, multierror.Append(errors.Wrapf(err, "failed to ping %v", dsn), db.Close()).ErrorOrNil()
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "failed to create migration source")
	}
	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create migration db driver")
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrator")
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to run migrations")
	}

	return nil
}

func (r *repository) Insert(ctx context.Context, issuer, account, secret string) (*persistence.Row, error) {
	const query = `INSERT INTO credentials (issuer, account, secret) VALUES (?, ?, ?)`
	res, err := r.writer.ExecContext(ctx, query, issuer, account, r.ed.Encrypt(secret))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to insert credential for %v/%v", issuer, account)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read inserted id")
	}

	return &persistence.Row{ID: strconv.FormatInt(id, 10), Issuer: issuer, Account: account, Secret: secret}, nil
}

func (r *repository) SelectAll(ctx context.Context) ([]*persistence.Row, error) {
	const query = `SELECT CAST(id AS TEXT), issuer, account, secret FROM credentials ORDER BY id`
	rows, err := r.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select credentials")
	}
	defer rows.Close()
	var (
		res        []*persistence.Row
		unreadable *multierror.Error
	)
	for rows.Next() {
		row := new(persistence.Row)
		if err = rows.Scan(&row.ID, &row.Issuer, &row.Account, &row.Secret); err != nil {
			return nil, errors.Wrap(err, "failed to scan credential")
		}
		if row.Secret, err = r.ed.Decrypt(row.Secret); err != nil {
			unreadable = multierror.Append(unreadable, errors.Wrapf(err, "failed to decrypt secret of credential %v", row.ID))

			continue
		}
		res = append(res, row)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate credentials")
	}
	if unreadable != nil {
		return res, multierror.Append(persistence.ErrUnreadable, unreadable.Errors...)
	}

	return res, nil
}

func (r *repository) DeleteByID(ctx context.Context, id string) error {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return errors.Wrapf(persistence.ErrNotFound, "credential %q", id)
	}
	const query = `DELETE FROM credentials WHERE id = ?`
	res, err := r.writer.ExecContext(ctx, query, numericID)
	if err != nil {
		return errors.Wrapf(err, "failed to delete credential %v", id)
	}
	if affected, aErr := res.RowsAffected(); aErr != nil {
		return errors.Wrapf(aErr, "failed to read affected rows for credential %v", id)
	} else if affected == 0 {
		return errors.Wrapf(persistence.ErrNotFound, "credential %v", id)
	}

	return nil
}

func (r *repository) Close() error {
	return multierror.Append(
		errors.Wrap(r.reader.Close(), "failed to close reader"),
		errors.Wrap(r.writer.Close(), "failed to close writer"),
	).ErrorOrNil()
}
