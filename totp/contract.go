// SPDX-License-Identifier: ice License 1.0

package totp

import (
	stdlibtime "time"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/totp/internal"
)

// Public API.

const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"

	DefaultStep   = 30 * stdlibtime.Second
	DefaultDigits = 6
	MinDigits     = 6
	MaxDigits     = 10
)

var (
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrInvalidOptions   = errors.New("invalid totp options")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

type (
	Algorithm string
	Options   struct {
		Algorithm Algorithm           `yaml:"algorithm" mapstructure:"algorithm"`
		Step      stdlibtime.Duration `yaml:"step" mapstructure:"step"`
		Digits    int                 `yaml:"digits" mapstructure:"digits"`
	}
	// Generator derives RFC 6238 codes. It is pure: the timestamp is always explicit.
	Generator interface {
		// Generate derives the code for the step containing timestamp (unix seconds), using the generator's options.
		Generate(secret string, timestamp int64) (string, error)
		GenerateWith(secret string, timestamp int64, opts *Options) (string, error)
		// Verify reports whether code is the one for exactly the step containing timestamp; there is no drift window.
		Verify(secret, code string, timestamp int64) bool
		ProvisioningURI(account, issuer, secret string) (string, error)
		Options() Options
	}
)

// Private API.

type (
	totp struct {
		generator internal.Generator
		opts      Options
	}
)
