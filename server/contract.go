// SPDX-License-Identifier: ice License 1.0

package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync"
	stdlibtime "time"

	"github.com/gin-gonic/gin"

	"github.com/ice-blockchain/authenticator/identity"
)

// Public API.

type (
	Router = gin.Engine
	Server interface {
		// ListenAndServe starts everything and blocks until ctx is done or SIGINT/SIGTERM is received.
		ListenAndServe(ctx context.Context, cancel context.CancelFunc)
		// Handler builds the router without listening, for in-process use.
		Handler() http.Handler
	}
	// State is what users of this package implement to plug their routes and lifecycle into the server.
	State interface {
		RegisterRoutes(r *Router)
		CheckHealth(ctx context.Context) error
		Close(ctx context.Context) error
	}
	Request[REQ any, RESP any] struct {
		Data              *REQ           `json:"data,omitempty"`
		ginCtx            *gin.Context   //nolint:structcheck // Wrong.
		AuthenticatedUser *identity.User `json:"authenticatedUser,omitempty"`
		ClientIP          net.IP         `json:"clientIp,omitempty"`
		bindings          map[requestBinding]struct{}
		requiredFields    []string
		allowUnauthorized bool
	}
	Response[RESP any] struct {
		Data    *RESP
		Headers map[string]string
		Code    int
	}
	// ErrorResponse is the struct that is eventually serialized as a negative response back to the user.
	ErrorResponse struct {
		error `json:"-"`
		Data  map[string]any `json:"data,omitempty"`
		Error string         `json:"error" example:"something is missing"`
		Code  string         `json:"code,omitempty" example:"SOMETHING_NOT_FOUND"`
	}
	Config struct {
		HTTPServer struct {
			CertPath string `yaml:"certPath" mapstructure:"certPath"` //nolint:tagliatelle // Nope.
			KeyPath  string `yaml:"keyPath" mapstructure:"keyPath"`   //nolint:tagliatelle // Nope.
			Port     uint16 `yaml:"port" mapstructure:"port"`
		} `yaml:"httpServer" mapstructure:"httpServer"` //nolint:tagliatelle // Nope.
		DefaultEndpointTimeout stdlibtime.Duration `yaml:"defaultEndpointTimeout" mapstructure:"defaultEndpointTimeout"` //nolint:tagliatelle // Nope.
	}
)

// Private API.

const (
	json requestBinding = iota
	uri
	query
	header
)

const (
	srvGinCtxKey          = "authenticatorServer"
	defaultEndpointTimeout = 30 * stdlibtime.Second
)

//nolint:gochecknoglobals // gin's mode is process wide.
var releaseMode sync.Once

type (
	healthCheck struct {
		_ struct{} `allowUnauthorized:"true"` //nolint:revive // It's processed by the router.
	}
	requestBinding uint8
	// | srv is the internal representation of everything needed to bootstrap the http server.
	srv struct {
		State
		provider    identity.Provider
		server      *http.Server
		router      *Router
		quit        chan<- os.Signal
		cfg         Config
		development bool
	}
)
