// SPDX-License-Identifier: ice License 1.0

package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	stdlibtime "time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/authenticator/clock/fixture"
	"github.com/ice-blockchain/authenticator/credentials"
	"github.com/ice-blockchain/authenticator/identity"
	identityfixture "github.com/ice-blockchain/authenticator/identity/fixture"
	"github.com/ice-blockchain/authenticator/persistence"
	"github.com/ice-blockchain/authenticator/persistence/memory"
	"github.com/ice-blockchain/authenticator/scheduler"
	"github.com/ice-blockchain/authenticator/server"
	serverfixture "github.com/ice-blockchain/authenticator/server/fixture"
	"github.com/ice-blockchain/authenticator/totp"
)

const (
	testIssuer = "authenticator"
	testSecret = "api-test-secret"
)

type (
	testEnv struct {
		client    *serverfixture.HTTPTestClient
		anonymous *serverfixture.HTTPTestClient
		clock     *fixture.Clock
		scheduler scheduler.Scheduler
	}
	brokenRepository struct {
		persistence.Repository
	}
)

func (brokenRepository) Insert(context.Context, string, string, string) (*persistence.Row, error) {
	return nil, errors.New("disk full")
}

func newTestEnv(t *testing.T, repo persistence.Repository) *testEnv {
	t.Helper()
	generator, err := totp.NewWithOptions(nil)
	require.NoError(t, err)
	provider, err := identity.NewJWT(testIssuer, testSecret)
	require.NoError(t, err)
	token, err := identityfixture.GenerateToken(testSecret, testIssuer, "alice", "alice@example.com", stdlibtime.Hour)
	require.NoError(t, err)
	fake := fixture.NewAt(59)
	store := credentials.New(repo, identity.ContextGate())
	require.NoError(t, store.Load(t.Context()))
	sched := scheduler.New(store, generator, fake, nil)
	handler := server.NewWithConfig(New(store, sched, generator, fake), new(server.Config), provider, false).Handler()
	anonymous := serverfixture.NewHTTPTestClient(handler)

	return &testEnv{client: anonymous.WithToken(token), anonymous: anonymous, clock: fake, scheduler: sched}
}

func (e *testEnv) tick(t *testing.T) {
	t.Helper()
	_, err := e.scheduler.Tick(t.Context())
	require.NoError(t, err)
}

//nolint:funlen // It's a scenario.
func TestCredentialLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, memory.New())

	body, status, _ := env.client.Post(t.Context(), t, "/v1/credentials", env.client.WrapJSONBody(t, EnrollCredentialArg{
		Issuer:  "GitHub",
		Account: "alice@example.com",
		Secret:  "gezdgnbvgy3tqojq",
	}))
	require.Equal(t, http.StatusCreated, status, body)
	enrolled := serverfixture.Decode[credentials.View](t, body)
	assert.NotEmpty(t, enrolled.ID)
	assert.Equal(t, credentials.Code{Status: credentials.Pending}, enrolled.Code)
	assert.NotContains(t, body, "GEZDGNBVGY3TQOJQ")

	body, status, _ = env.client.Get(t.Context(), t, "/v1/credentials")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, credentials.Pending, (*serverfixture.Decode[[]credentials.View](t, body))[0].Code.Status)

	env.tick(t)
	body, status, _ = env.client.Get(t.Context(), t, "/v1/credentials")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, []credentials.View{{
		ID:               enrolled.ID,
		Issuer:           "GitHub",
		Account:          "alice@example.com",
		Code:             credentials.Code{Status: credentials.Ready, Value: "263420", Counter: 1},
		RemainingSeconds: 1,
	}}, *serverfixture.Decode[[]credentials.View](t, body))

	body, status, _ = env.client.Get(t.Context(), t, "/v1/countdown")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, &CountdownResp{RemainingSeconds: 1}, serverfixture.Decode[CountdownResp](t, body))

	body, status, _ = env.client.Get(t.Context(), t, "/v1/credentials/"+enrolled.ID+"/provisioning-uri")
	require.Equal(t, http.StatusOK, status, body)
	uri, err := url.Parse(serverfixture.Decode[ProvisioningURIResp](t, body).URI)
	require.NoError(t, err)
	assert.Equal(t, "otpauth", uri.Scheme)
	assert.Equal(t, "GEZDGNBVGY3TQOJQ", uri.Query().Get("secret"))

	_, status, _ = env.client.Delete(t.Context(), t, "/v1/credentials/"+enrolled.ID)
	assert.Equal(t, http.StatusNoContent, status)
	body, status, _ = env.client.Get(t.Context(), t, "/v1/credentials")
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `[]`, body)

	body, status, _ = env.client.Delete(t.Context(), t, "/v1/credentials/"+enrolled.ID)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "CREDENTIAL_NOT_FOUND", serverfixture.Decode[server.ErrorResponse](t, body).Code)
	_, status, _ = env.client.Get(t.Context(), t, "/v1/credentials/"+enrolled.ID+"/provisioning-uri")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEnrollFailures(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, memory.New())

	body, status, _ := env.client.Post(t.Context(), t, "/v1/credentials", env.client.WrapJSONBody(t, EnrollCredentialArg{
		Issuer: "GitHub", Account: "alice", Secret: "not-base32!!",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	resp := serverfixture.Decode[server.ErrorResponse](t, body)
	assert.Equal(t, "INVALID_SECRET", resp.Code)
	assert.Equal(t, "secret", resp.Data["field"])

	body, status, _ = env.client.Post(t.Context(), t, "/v1/credentials", env.client.WrapJSONBody(t, EnrollCredentialArg{
		Account: "alice", Secret: "JBSWY3DPEHPK3PXP",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	resp = serverfixture.Decode[server.ErrorResponse](t, body)
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.Equal(t, "issuer", resp.Data["field"])

	body, status, _ = env.client.Get(t.Context(), t, "/v1/credentials")
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `[]`, body)

	broken := newTestEnv(t, brokenRepository{Repository: memory.New()})
	body, status, _ = broken.client.Post(t.Context(), t, "/v1/credentials", broken.client.WrapJSONBody(t, EnrollCredentialArg{
		Issuer: "GitHub", Account: "alice", Secret: "JBSWY3DPEHPK3PXP",
	}))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "PERSISTENCE_FAILURE", serverfixture.Decode[server.ErrorResponse](t, body).Code)
}

func TestUnauthenticated(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, memory.New())
	for _, path := range []string{"/v1/credentials", "/v1/countdown", "/v1/credentials/1/provisioning-uri"} {
		body, status, _ := env.anonymous.Get(t.Context(), t, path)
		env.anonymous.AssertUnauthorized(t, body, status)
	}
	body, status, _ := env.anonymous.Delete(t.Context(), t, "/v1/credentials/1")
	env.anonymous.AssertUnauthorized(t, body, status)
	body, status, _ = env.anonymous.Post(t.Context(), t, "/v1/credentials", env.anonymous.WrapJSONBody(t, EnrollCredentialArg{
		Issuer: "GitHub", Account: "alice", Secret: "JBSWY3DPEHPK3PXP",
	}))
	env.anonymous.AssertUnauthorized(t, body, status)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, memory.New())
	env.anonymous.TestHealthCheck(t.Context(), t)

	env.clock.Fail(errors.New("no network"))
	_, status, _ := env.anonymous.Get(t.Context(), t, "/health-check")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
