// SPDX-License-Identifier: ice License 1.0

package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/persistence/postgres/fixture"
	"github.com/ice-blockchain/authenticator/privacy"
	"github.com/ice-blockchain/authenticator/terror"
)

const testKey = "000102030405060708090a0b000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setupTestRepository(t *testing.T) *repository {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	container, err := fixture.New(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Close(context.Background())) })
	url, err := container.TempDB(t.Context())
	require.NoError(t, err)
	ed, err := privacy.NewEncryptDecrypter(testKey)
	require.NoError(t, err)
	repo, err := New(t.Context(), "authenticator/persistence", &Config{PrimaryURL: url, RunDDL: true}, ed)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, repo.Close()) })

	return repo.(*repository) //nolint:forcetypeassert,errcheck // We know for sure.
}

func TestRepository(t *testing.T) {
	t.Parallel()
	repo := setupTestRepository(t)
	require.NoError(t, repo.migrate(t.Context()))

	first, err := repo.Insert(t.Context(), "GitHub", "alice@example.com", "GEZDGNBVGY3TQOJQ")
	require.NoError(t, err)
	second, err := repo.Insert(t.Context(), "GitLab", "bob", "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.Equal(t, "GEZDGNBVGY3TQOJQ", first.Secret)
	assert.NotEqual(t, first.ID, second.ID)

	rows, err := repo.SelectAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []*persistence.Row{first, second}, rows)

	var stored string
	require.NoError(t, repo.pool.QueryRow(t.Context(), `SELECT secret FROM credentials WHERE id::text = $1`, first.ID).Scan(&stored))
	assert.NotEqual(t, "GEZDGNBVGY3TQOJQ", stored)

	require.NoError(t, repo.DeleteByID(t.Context(), first.ID))
	require.ErrorIs(t, repo.DeleteByID(t.Context(), first.ID), persistence.ErrNotFound)
	require.ErrorIs(t, repo.DeleteByID(t.Context(), "bogus"), persistence.ErrNotFound)
	rows, err = repo.SelectAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []*persistence.Row{second}, rows)

	_, err = repo.pool.Exec(t.Context(), `INSERT INTO credentials (issuer, account, secret) VALUES ('Broken', 'eve', 'deadbeefdeadbeefdeadbeefdeadbeefdeadbeef')`)
	require.NoError(t, err)
	third, err := repo.Insert(t.Context(), "GitHub", "carol", "GEZDGNBVGY3TQOJQ")
	require.NoError(t, err)
	rows, err = repo.SelectAll(t.Context())
	require.ErrorIs(t, err, persistence.ErrUnreadable)
	require.ErrorIs(t, err, privacy.ErrDecryptionFailed)
	assert.Equal(t, []*persistence.Row{second, third}, rows)
}

func TestNewWithoutURL(t *testing.T) {
	t.Parallel()
	_, err := New(t.Context(), "authenticator/missing", new(Config), privacy.Noop())
	require.Error(t, err)
}

func TestParseDBError(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, parseDBError(pgx.ErrNoRows), persistence.ErrNotFound)
	err := parseDBError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "credentials_pkey"})
	require.ErrorIs(t, err, persistence.ErrDuplicate)
	assert.Equal(t, map[string]any{"constraint": "credentials_pkey"}, terror.DataOf(err))
	other := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	assert.Equal(t, error(other), parseDBError(other))
}
