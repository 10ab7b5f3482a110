// SPDX-License-Identifier: ice License 1.0

package privacy

import (
	"crypto/cipher"

	"github.com/pkg/errors"
)

// Public API.

var (
	ErrInvalidKey        = errors.New("invalid encryption key")
	ErrHexDecodingFailed = errors.New("failed to hex decode value")
	ErrDecryptionFailed  = errors.New("failed to decrypt value")
)

type (
	// EncryptDecrypter protects values at rest. Encryption is deterministic (AES-256-GCM-SIV with a fixed nonce).
	EncryptDecrypter interface {
		Encrypt(plaintext string) string
		Decrypt(ciphertext string) (string, error)
	}
)

// Private API.

type (
	encryptDecrypter struct {
		AES256GCMSIVCipher cipher.AEAD
		Nonce              []byte
	}
	noop   struct{}
	config struct {
		Secret string `yaml:"secret" mapstructure:"secret"`
	}
)
