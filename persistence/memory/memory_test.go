// SPDX-License-Identifier: ice License 1.0

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/authenticator/persistence"
)

func TestRepository(t *testing.T) {
	t.Parallel()
	repo := New()
	defer func() { require.NoError(t, repo.Close()) }()

	first, err := repo.Insert(t.Context(), "GitHub", "alice@example.com", "GEZDGNBVGY3TQOJQ")
	require.NoError(t, err)
	second, err := repo.Insert(t.Context(), "GitLab", "bob", "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "GEZDGNBVGY3TQOJQ", first.Secret)

	rows, err := repo.SelectAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []*persistence.Row{first, second}, rows)
	rows[0].Issuer = "mutated"

	require.NoError(t, repo.DeleteByID(t.Context(), first.ID))
	require.ErrorIs(t, repo.DeleteByID(t.Context(), first.ID), persistence.ErrNotFound)
	rows, err = repo.SelectAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []*persistence.Row{second}, rows)

	canceled, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = repo.Insert(canceled, "a", "b", "c")
	require.ErrorIs(t, err, context.Canceled)
}
