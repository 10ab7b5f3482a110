// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func NewHTTPTestClient(handler http.Handler) *HTTPTestClient {
	return &HTTPTestClient{handler: handler}
}

// WithToken returns a copy of the client that sends token as a bearer token.
func (tc *HTTPTestClient) WithToken(token string) *HTTPTestClient {
	return &HTTPTestClient{handler: tc.handler, token: token}
}

func (tc *HTTPTestClient) Get(ctx context.Context, tb testing.TB, url URL, headers ...http.Header) (ActualRespBody, RespStatusCode, http.Header) {
	tb.Helper()

	return tc.doRequest(ctx, tb, http.MethodGet, url, nil, headers...)
}

func (tc *HTTPTestClient) Delete(ctx context.Context, tb testing.TB, url URL, headers ...http.Header) (ActualRespBody, RespStatusCode, http.Header) {
	tb.Helper()

	return tc.doRequest(ctx, tb, http.MethodDelete, url, nil, headers...)
}

func (tc *HTTPTestClient) Post(
	ctx context.Context,
	tb testing.TB,
	url URL,
	body ReqBody,
	headers ...http.Header,
) (ActualRespBody, RespStatusCode, http.Header) {
	tb.Helper()

	return tc.doRequest(ctx, tb, http.MethodPost, url, body, headers...)
}

//nolint:revive // Looks alot better.
func (tc *HTTPTestClient) doRequest(
	ctx context.Context,
	tb testing.TB,
	method,
	url string,
	body io.Reader,
	headers ...http.Header,
) (respBody string, statusCode int, header http.Header) {
	tb.Helper()

	r := httptest.NewRequestWithContext(ctx, method, url, body)
	if body != nil {
		r.Header.Set("Content-Type", jsonContentType)
	}
	if tc.token != "" {
		r.Header.Set("Authorization", "Bearer "+tc.token)
	}
	if len(headers) != 0 && headers[0] != nil {
		for k, vs := range headers[0] {
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}
	}
	recorder := httptest.NewRecorder()
	tc.handler.ServeHTTP(recorder, r)
	resp := recorder.Result()
	defer func() { assert.NoError(tb, resp.Body.Close()) }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(tb, err)

	return string(b), resp.StatusCode, resp.Header
}

func (tc *HTTPTestClient) TestHealthCheck(ctx context.Context, tb testing.TB) {
	tb.Helper()

	body, status, headers := tc.Get(ctx, tb, "/health-check", http.Header{"CF-Connecting-IP": []string{"1.2.3.4"}})
	assert.JSONEq(tb, `{"clientIp":"1.2.3.4"}`, body)
	assert.Equal(tb, http.StatusOK, status)
	assert.Equal(tb, "application/json; charset=utf-8", headers.Get("Content-Type"))
}

func (*HTTPTestClient) AssertUnauthorized(tb testing.TB, body ActualRespBody, status RespStatusCode) {
	tb.Helper()

	assert.Equal(tb, http.StatusUnauthorized, status)
	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(tb, json.Unmarshal([]byte(body), &resp))
	assert.Equal(tb, "INVALID_TOKEN", resp.Code)
	assert.NotEmpty(tb, resp.Error)
}

func (*HTTPTestClient) WrapJSONBody(tb testing.TB, data any) ReqBody {
	tb.Helper()

	if s, isString := data.(string); isString {
		return strings.NewReader(s)
	}
	b, err := json.Marshal(data)
	require.NoError(tb, err)

	return bytes.NewReader(b)
}

// Decode unmarshals a response body into T.
func Decode[T any](tb testing.TB, body ActualRespBody) *T {
	tb.Helper()

	res := new(T)
	require.NoError(tb, json.Unmarshal([]byte(body), res))

	return res
}
