// SPDX-License-Identifier: ice License 1.0

package terror

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBogus = errors.New("bogus")

func TestErr(t *testing.T) {
	t.Parallel()
	err := errors.Wrap(Field(errBogus, "issuer"), "enroll failed")
	require.ErrorIs(t, err, errBogus)
	assert.Equal(t, map[string]any{FieldKey: "issuer"}, DataOf(err))
	tErr := As(err)
	require.NotNil(t, tErr)
	require.ErrorIs(t, tErr, errBogus)
	assert.Nil(t, As(errBogus))
	assert.Nil(t, DataOf(errBogus))
}
