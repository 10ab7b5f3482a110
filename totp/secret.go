// SPDX-License-Identifier: ice License 1.0

package totp

import (
	"encoding/base32"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Normalize upper-cases the secret and strips every whitespace rune. It is idempotent.
func Normalize(raw string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, raw))
}

// Decode normalizes and base32-decodes the secret. Padding is optional, but when present it has to be exact.
func Decode(secret string) ([]byte, error) {
	normalized := Normalize(secret)
	if normalized == "" {
		return nil, errors.Wrap(ErrInvalidSecret, "secret is empty")
	}
	encoding := base32.StdEncoding
	if !strings.ContainsRune(normalized, base32.StdPadding) {
		// Lengths of 1, 3 or 6 mod 8 can't be produced by any byte sequence.
		switch len(normalized) % 8 { //nolint:mnd,gomnd // Base32 quantum.
		case 1, 3, 6: //nolint:mnd,gomnd // .
			return nil, errors.Wrapf(ErrInvalidSecret, "impossible unpadded length %v", len(normalized))
		}
		encoding = base32.StdEncoding.WithPadding(base32.NoPadding)
	}
	raw, err := encoding.DecodeString(normalized)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSecret, "base32 decoding failed: %v", err)
	}
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrInvalidSecret, "secret decodes to no bytes")
	}

	return raw, nil
}

// Validate reports whether secret is usable, returning its normalized form.
func Validate(secret string) (string, error) {
	if _, err := Decode(secret); err != nil {
		return "", err
	}

	return Normalize(secret), nil
}

func unpadded(secret string) string {
	return strings.TrimRight(Normalize(secret), string(base32.StdPadding))
}
