// SPDX-License-Identifier: ice License 1.0

package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()
	ed, err := NewEncryptDecrypter(testKey)
	require.NoError(t, err)
	encrypted := ed.Encrypt("GEZDGNBVGY3TQOJQ")
	assert.NotContains(t, strings.ToUpper(encrypted), "GEZDGNBVGY3TQOJQ")
	assert.Equal(t, encrypted, ed.Encrypt("GEZDGNBVGY3TQOJQ"))
	decrypted, err := ed.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "GEZDGNBVGY3TQOJQ", decrypted)

	_, err = ed.Decrypt("not hex")
	require.ErrorIs(t, err, ErrHexDecodingFailed)
	tampered := encrypted[:len(encrypted)-2] + "00"
	if tampered == encrypted {
		tampered = encrypted[:len(encrypted)-2] + "ff"
	}
	_, err = ed.Decrypt(tampered)
	require.ErrorIs(t, err, ErrDecryptionFailed)

	other, err := NewEncryptDecrypter(strings.Repeat("ab", 44))
	require.NoError(t, err)
	_, err = other.Decrypt(encrypted)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNew(t *testing.T) {
	t.Parallel()
	ed, err := New("authenticator/privacy")
	require.NoError(t, err)
	decrypted, err := ed.Decrypt(ed.Encrypt("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", decrypted)

	for _, key := range []string{"zz", "00", strings.Repeat("00", 43)} {
		_, err = NewEncryptDecrypter(key)
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()
	ed := Noop()
	assert.Equal(t, "a", ed.Encrypt("a"))
	decrypted, err := ed.Decrypt("a")
	require.NoError(t, err)
	assert.Equal(t, "a", decrypted)
}
