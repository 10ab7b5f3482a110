// SPDX-License-Identifier: ice License 1.0

package api

import (
	"github.com/ice-blockchain/authenticator/clock"
	"github.com/ice-blockchain/authenticator/credentials"
	"github.com/ice-blockchain/authenticator/scheduler"
	"github.com/ice-blockchain/authenticator/totp"
)

// Public API.

type (
	ListCredentialsArg struct{}
	EnrollCredentialArg struct {
		Issuer  string `json:"issuer" example:"GitHub"`
		Account string `json:"account" example:"alice@example.com"`
		Secret  string `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	}
	CredentialIDArg struct {
		CredentialID string `uri:"credentialId" required:"true" example:"1"`
	}
	CountdownArg        struct{}
	ProvisioningURIResp struct {
		URI string `json:"uri" example:"otpauth://totp/GitHub:alice@example.com?issuer=GitHub&secret=JBSWY3DPEHPK3PXP"`
	}
	CountdownResp struct {
		RemainingSeconds int64 `json:"remainingSeconds" example:"17"`
	}
)

// Private API.

type (
	service struct {
		store      credentials.Store
		scheduler  scheduler.Scheduler
		generator  totp.Generator
		timeSource clock.TimeSource
	}
)
