// SPDX-License-Identifier: ice License 1.0

package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	appcfg "github.com/ice-blockchain/authenticator/config"
)

// New builds an HS256 token verifier; an empty jwtSecret falls back to the `..._JWT_SECRET` env variable.
func New(applicationYAMLKey string) (Provider, error) {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)

	return NewJWT(cfg.Issuer, appcfg.EnvFallback(cfg.JWTSecret, applicationYAMLKey, "JWT_SECRET"))
}

func NewJWT(issuer, secret string) (Provider, error) {
	if issuer == "" || secret == "" {
		return nil, errors.New("jwt issuer and secret are required")
	}

	return &jwtProvider{issuer: issuer, secret: []byte(secret)}, nil
}

func (p *jwtProvider) Authenticate(_ context.Context, token string) (*User, error) {
	claims := Token{RegisteredClaims: new(jwt.RegisteredClaims)}
	if _, err := jwt.ParseWithClaims(token, &claims, p.verify(), jwt.WithExpirationRequired()); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, errors.Wrap(ErrExpiredToken, err.Error())
		}

		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return nil, errors.Wrap(ErrInvalidToken, "missing subject")
	}

	return &User{ID: claims.Subject, Email: claims.Email}, nil
}

func (p *jwtProvider) verify() func(token *jwt.Token) (any, error) {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok || token.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if iss, err := token.Claims.GetIssuer(); err != nil || iss != p.issuer {
			return nil, errors.Errorf("invalid issuer: %v", iss)
		}

		return p.secret, nil
	}
}

func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func CurrentUser(ctx context.Context) (*User, error) {
	if user, ok := ctx.Value(contextKey{}).(*User); ok && user != nil {
		return user, nil
	}

	return nil, ErrUnauthenticated
}

// ContextGate trusts whatever user WithUser put into the context.
func ContextGate() Gate {
	return contextGate{}
}

// Static always reports user; a nil user means nobody is ever signed in.
func Static(user *User) Gate {
	return &static{user: user}
}

func (contextGate) CurrentUser(ctx context.Context) (*User, error) {
	return CurrentUser(ctx)
}

func (s *static) CurrentUser(context.Context) (*User, error) {
	if s.user == nil {
		return nil, ErrUnauthenticated
	}

	return s.user, nil
}
