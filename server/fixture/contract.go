// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"io"
	"net/http"
)

// Public API.

type (
	RespStatusCode   = int
	ReqBody          = io.Reader
	URL              = string
	ExpectedRespBody = string
	ActualRespBody   = string
	ContentType      = string
	// HTTPTestClient drives a handler in-process; nothing listens on a port.
	HTTPTestClient struct {
		handler http.Handler
		token   string
	}
)

// Private API.

const (
	jsonContentType = "application/json"
)
