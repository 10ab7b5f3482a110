// SPDX-License-Identifier: ice License 1.0

package totp

import (
	"crypto/subtle"
	"strings"
	stdlibtime "time"

	"github.com/pkg/errors"

	appcfg "github.com/ice-blockchain/authenticator/config"
	gotpgenerator "github.com/ice-blockchain/authenticator/totp/internal/gotp"
)

func New(applicationYAMLKey string) (Generator, error) {
	var opts Options
	appcfg.MustLoadFromKey(applicationYAMLKey, &opts)

	return NewWithOptions(&opts)
}

func NewWithOptions(opts *Options) (Generator, error) {
	resolved := DefaultOptions()
	if opts != nil {
		if opts.Algorithm != "" {
			resolved.Algorithm = Algorithm(strings.ToUpper(string(opts.Algorithm)))
		}
		if opts.Step != 0 {
			resolved.Step = opts.Step
		}
		if opts.Digits != 0 {
			resolved.Digits = opts.Digits
		}
	}
	if err := resolved.validate(); err != nil {
		return nil, err
	}

	return &totp{generator: gotpgenerator.New(), opts: resolved}, nil
}

func DefaultOptions() Options {
	return Options{Algorithm: SHA1, Step: DefaultStep, Digits: DefaultDigits}
}

// Counter is the HOTP moving factor for timestamp: floor(timestamp / step).
func Counter(timestamp int64, step stdlibtime.Duration) uint64 {
	return uint64(timestamp / stepSeconds(step)) //nolint:gosec // Timestamps are validated to be non-negative.
}

// Remaining is the number of seconds until the step containing timestamp ends, in [1, step].
func Remaining(timestamp int64, step stdlibtime.Duration) int64 {
	seconds := stepSeconds(step)

	return seconds - timestamp%seconds
}

func (t *totp) Options() Options {
	return t.opts
}

func (t *totp) Generate(secret string, timestamp int64) (string, error) {
	return t.generate(secret, timestamp, &t.opts)
}

func (t *totp) GenerateWith(secret string, timestamp int64, opts *Options) (string, error) {
	if opts == nil {
		return t.Generate(secret, timestamp)
	}
	if err := opts.validate(); err != nil {
		return "", err
	}

	return t.generate(secret, timestamp, opts)
}

func (t *totp) generate(secret string, timestamp int64, opts *Options) (string, error) {
	if timestamp < 0 {
		return "", errors.Wrapf(ErrInvalidTimestamp, "negative timestamp %v", timestamp)
	}
	if _, err := Decode(secret); err != nil {
		return "", err
	}
	code := t.generator.
		Create(unpadded(secret), opts.Digits, int(stepSeconds(opts.Step)), string(opts.Algorithm)).
		AtTime(stdlibtime.Unix(timestamp, 0))

	return code, nil
}

func (t *totp) Verify(secret, code string, timestamp int64) bool {
	expected, err := t.Generate(secret, timestamp)
	if err != nil || code == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1
}

func (t *totp) ProvisioningURI(account, issuer, secret string) (string, error) {
	if _, err := Decode(secret); err != nil {
		return "", err
	}

	return t.generator.ProvisioningURI(unpadded(secret), account, issuer, t.opts.Digits, int(stepSeconds(t.opts.Step)), string(t.opts.Algorithm)), nil
}

func (o *Options) validate() error {
	switch o.Algorithm {
	case SHA1, SHA256, SHA512:
	default:
		return errors.Wrapf(ErrInvalidOptions, "unsupported algorithm %q", o.Algorithm)
	}
	if o.Digits < MinDigits || o.Digits > MaxDigits {
		return errors.Wrapf(ErrInvalidOptions, "digits %v out of [%v, %v]", o.Digits, MinDigits, MaxDigits)
	}
	if o.Step < stdlibtime.Second || o.Step%stdlibtime.Second != 0 {
		return errors.Wrapf(ErrInvalidOptions, "step %v is not a positive whole number of seconds", o.Step)
	}

	return nil
}

func stepSeconds(step stdlibtime.Duration) int64 {
	return int64(step / stdlibtime.Second)
}
