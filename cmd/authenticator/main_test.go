// SPDX-License-Identifier: ice License 1.0

package main

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/privacy"
)

const testKey = "000102030405060708090a0b000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testEncryptDecrypter() (privacy.EncryptDecrypter, error) {
	return privacy.NewEncryptDecrypter(testKey)
}

func TestNewRepository(t *testing.T) {
	t.Parallel()

	repo, err := newRepository(t.Context(), &persistenceConfig{Driver: persistence.MemoryDriver}, func() (privacy.EncryptDecrypter, error) {
		return nil, errors.New("must not be called")
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	cfg := &persistenceConfig{Driver: persistence.SQLiteDriver}
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "authenticator.db")
	repo, err = newRepository(t.Context(), cfg, testEncryptDecrypter)
	require.NoError(t, err)
	row, err := repo.Insert(t.Context(), "GitHub", "alice", "GEZDGNBVGY3TQOJQ")
	require.NoError(t, err)
	assert.Equal(t, "GEZDGNBVGY3TQOJQ", row.Secret)
	require.NoError(t, repo.Close())

	_, err = newRepository(t.Context(), &persistenceConfig{Driver: persistence.PostgresDriver}, testEncryptDecrypter)
	require.Error(t, err)

	errBadKey := errors.New("bad key")
	_, err = newRepository(t.Context(), &persistenceConfig{Driver: persistence.SQLiteDriver}, func() (privacy.EncryptDecrypter, error) {
		return nil, errBadKey
	})
	require.ErrorIs(t, err, errBadKey)

	_, err = newRepository(t.Context(), &persistenceConfig{Driver: "mongo"}, testEncryptDecrypter)
	require.ErrorContains(t, err, "unsupported persistence driver")
}
