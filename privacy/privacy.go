// SPDX-License-Identifier: ice License 1.0

package privacy

import (
	"encoding/hex"

	"github.com/ericlagergren/siv"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	appcfg "github.com/ice-blockchain/authenticator/config"
)

// New loads the hex encoded nonce+key from applicationYAMLKey, or from the derived `..._SECRET` env variable.
func New(applicationYAMLKey string) (EncryptDecrypter, error) {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)

	return NewEncryptDecrypter(appcfg.EnvFallback(cfg.Secret, applicationYAMLKey, "SECRET"))
}

// NewEncryptDecrypter expects hex(nonce || key), with a siv.NonceSize nonce and a 32 byte key.
func NewEncryptDecrypter(secret string) (EncryptDecrypter, error) {
	decodedKey, err := hex.DecodeString(secret)
	if err != nil {
		return nil, multierror.Append(ErrInvalidKey, errors.Wrap(err, "failed to decode key value"))
	}
	if len(decodedKey) != 32+siv.NonceSize { //nolint:mnd,gomnd // AES-256.
		return nil, errors.Wrapf(ErrInvalidKey, "we need 32+%v bytes, got %v", siv.NonceSize, len(decodedKey))
	}
	aes256gcmsiv, err := siv.NewGCM(decodedKey[siv.NonceSize:])
	if err != nil {
		return nil, multierror.Append(ErrInvalidKey, errors.Wrap(err, "failed to build aes gcm siv mode"))
	}

	return &encryptDecrypter{
		AES256GCMSIVCipher: aes256gcmsiv,
		Nonce:              decodedKey[:siv.NonceSize],
	}, nil
}

// Noop stores values as they are.
func Noop() EncryptDecrypter {
	return noop{}
}

func (e *encryptDecrypter) Encrypt(plaintext string) string {
	return hex.EncodeToString(e.AES256GCMSIVCipher.Seal(nil, e.Nonce, []byte(plaintext), nil))
}

func (e *encryptDecrypter) Decrypt(val string) (string, error) {
	decodedCiphertext, err := hex.DecodeString(val)
	if err != nil {
		return "", multierror.Append(ErrHexDecodingFailed, errors.Wrap(err, "failed to decode value"))
	}
	plaintext, err := e.AES256GCMSIVCipher.Open(nil, e.Nonce, decodedCiphertext, nil)
	if err != nil {
		return "", multierror.Append(ErrDecryptionFailed, errors.Wrap(err, "failed to Open ciphertext"))
	}

	return string(plaintext), nil
}

func (noop) Encrypt(plaintext string) string {
	return plaintext
}

func (noop) Decrypt(val string) (string, error) {
	return val, nil
}
