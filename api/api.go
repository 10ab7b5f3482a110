// SPDX-License-Identifier: ice License 1.0

package api

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/authenticator/clock"
	"github.com/ice-blockchain/authenticator/credentials"
	"github.com/ice-blockchain/authenticator/identity"
	"github.com/ice-blockchain/authenticator/scheduler"
	"github.com/ice-blockchain/authenticator/server"
	"github.com/ice-blockchain/authenticator/terror"
	"github.com/ice-blockchain/authenticator/totp"
)

// New exposes store over http. Every route requires a bearer token.
func New(store credentials.Store, sched scheduler.Scheduler, generator totp.Generator, timeSource clock.TimeSource) server.State {
	return &service{store: store, scheduler: sched, generator: generator, timeSource: timeSource}
}

func (s *service) RegisterRoutes(router *server.Router) {
	router.Group("/v1").
		GET("/credentials", server.RootHandler(s.ListCredentials)).
		POST("/credentials", server.RootHandler(s.EnrollCredential)).
		DELETE("/credentials/:credentialId", server.RootHandler(s.RemoveCredential)).
		GET("/credentials/:credentialId/provisioning-uri", server.RootHandler(s.GetProvisioningURI)).
		GET("/countdown", server.RootHandler(s.GetCountdown))
}

func (s *service) CheckHealth(ctx context.Context) error {
	_, err := s.timeSource.Now(ctx)

	return errors.Wrap(err, "time source is not healthy")
}

func (s *service) Close(context.Context) error {
	s.scheduler.Stop()

	return nil
}

// ListCredentials returns every enrolled credential with its current code, in enrollment order.
func (s *service) ListCredentials(
	ctx context.Context,
	_ *server.Request[ListCredentialsArg, []credentials.View],
) (*server.Response[[]credentials.View], *server.Response[server.ErrorResponse]) {
	views, err := s.store.Views(ctx, s.scheduler.Remaining())
	if err != nil {
		return nil, errorResponse(errors.Wrap(err, "failed to list credentials"))
	}

	return server.OK(&views), nil
}

// EnrollCredential validates, persists and adds a credential. Its code stays pending until the next time step.
func (s *service) EnrollCredential(
	ctx context.Context,
	req *server.Request[EnrollCredentialArg, credentials.View],
) (*server.Response[credentials.View], *server.Response[server.ErrorResponse]) {
	credential, err := s.store.Enroll(ctx, req.Data.Issuer, req.Data.Account, req.Data.Secret)
	if err != nil {
		return nil, errorResponse(errors.Wrap(err, "failed to enroll credential"))
	}

	return server.Created(&credentials.View{
		ID:               credential.ID,
		Issuer:           credential.Issuer,
		Account:          credential.Account,
		Code:             credentials.Code{Status: credentials.Pending},
		RemainingSeconds: s.scheduler.Remaining(),
	}), nil
}

func (s *service) RemoveCredential(
	ctx context.Context,
	req *server.Request[CredentialIDArg, any],
) (*server.Response[any], *server.Response[server.ErrorResponse]) {
	if err := s.store.Remove(ctx, req.Data.CredentialID); err != nil {
		return nil, errorResponse(errors.Wrapf(err, "failed to remove credential %v", req.Data.CredentialID))
	}

	return server.NoContent(), nil
}

// GetProvisioningURI returns the otpauth:// URI of a credential, for export to another authenticator.
func (s *service) GetProvisioningURI(
	ctx context.Context,
	req *server.Request[CredentialIDArg, ProvisioningURIResp],
) (*server.Response[ProvisioningURIResp], *server.Response[server.ErrorResponse]) {
	uri, err := s.store.ProvisioningURI(ctx, req.Data.CredentialID, s.generator)
	if err != nil {
		return nil, errorResponse(err)
	}

	return server.OK(&ProvisioningURIResp{URI: uri}), nil
}

func (s *service) GetCountdown(
	ctx context.Context,
	_ *server.Request[CountdownArg, CountdownResp],
) (*server.Response[CountdownResp], *server.Response[server.ErrorResponse]) {
	if _, err := identity.CurrentUser(ctx); err != nil {
		return nil, errorResponse(err)
	}

	return server.OK(&CountdownResp{RemainingSeconds: s.scheduler.Remaining()}), nil
}

func errorResponse(err error) *server.Response[server.ErrorResponse] {
	data := terror.DataOf(err)
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return server.Unauthorized(err)
	case errors.Is(err, credentials.ErrInvalidSecret):
		return server.UnprocessableEntity(err, "INVALID_SECRET", data)
	case errors.Is(err, credentials.ErrValidation):
		return server.UnprocessableEntity(err, "VALIDATION_FAILED", data)
	case errors.Is(err, credentials.ErrNotFound):
		return server.NotFound(err, "CREDENTIAL_NOT_FOUND")
	case errors.Is(err, credentials.ErrDuplicate):
		return server.Conflict(err, "DUPLICATE_CREDENTIAL")
	case errors.Is(err, credentials.ErrPersistence):
		return server.ServiceUnavailable(err, "PERSISTENCE_FAILURE")
	case errors.Is(err, clock.ErrClockUnavailable):
		return server.ServiceUnavailable(err, "CLOCK_UNAVAILABLE")
	default:
		return server.Unexpected(err)
	}
}
