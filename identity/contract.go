// SPDX-License-Identifier: ice License 1.0

package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Public API.

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.WithMessage(ErrUnauthenticated, "invalid token")
	ErrExpiredToken    = errors.WithMessage(ErrUnauthenticated, "expired token")
)

type (
	User struct {
		ID    string `json:"id" example:"did:ethr:0x4B73C58370AEfcEf86A6021afCDe5673511376B2"`
		Email string `json:"email,omitempty" example:"jdoe@example.com"`
	}
	// Provider turns a bearer token into the user it was issued to.
	Provider interface {
		Authenticate(ctx context.Context, token string) (*User, error)
	}
	// Gate answers whether an authenticated context is active.
	Gate interface {
		CurrentUser(ctx context.Context) (*User, error)
	}
	Token struct {
		*jwt.RegisteredClaims
		Email string `json:"email,omitempty"`
	}
)

// Private API.

type (
	contextKey struct{}
	jwtProvider struct {
		issuer string
		secret []byte
	}
	contextGate struct{}
	static      struct {
		user *User
	}
	config struct {
		Issuer    string `yaml:"issuer" mapstructure:"issuer"`
		JWTSecret string `yaml:"jwtSecret" mapstructure:"jwtSecret"` //nolint:tagliatelle // Nope.
	}
)
