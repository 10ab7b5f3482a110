// SPDX-License-Identifier: ice License 1.0

package internal

import (
	stdlibtime "time"
)

type (
	Generator interface {
		// Create expects an already validated, unpadded, upper-case base32 secret.
		Create(secret string, digits, interval int, algorithm string) TOTP
		// ProvisioningURI builds an otpauth:// key uri; account and issuer are raw, unescaped values.
		ProvisioningURI(secret, account, issuer string, digits, interval int, algorithm string) string
	}
	TOTP interface {
		AtTime(time stdlibtime.Time) string
	}
)
