// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	stdlibtime "time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/identity"
)

// GenerateToken signs an HS256 token for userID that expires after expiresIn (negative means already expired).
func GenerateToken(secret, issuer, userID, email string, expiresIn stdlibtime.Duration) (string, error) {
	now := stdlibtime.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Token{
		RegisteredClaims: &jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			NotBefore: jwt.NewNumericDate(now.Add(-stdlibtime.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
	})
	signed, err := token.SignedString([]byte(secret))

	return signed, errors.Wrapf(err, "failed to generate token for userID:%v", userID)
}
