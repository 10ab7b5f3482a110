// SPDX-License-Identifier: ice License 1.0

package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	appcfg "github.com/ice-blockchain/authenticator/config"
	"github.com/ice-blockchain/authenticator/identity"
	"github.com/ice-blockchain/authenticator/log"
)

func New(state State, applicationYAMLKey string, provider identity.Provider) Server {
	var cfg Config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)
	var development bool
	appcfg.MustLoadFromKey("development", &development)

	return NewWithConfig(state, &cfg, provider, development)
}

func NewWithConfig(state State, cfg *Config, provider identity.Provider, development bool) Server {
	s := &srv{State: state, provider: provider, cfg: *cfg, development: development}
	if s.cfg.DefaultEndpointTimeout <= 0 {
		s.cfg.DefaultEndpointTimeout = defaultEndpointTimeout
	}

	return s
}

func (s *srv) ListenAndServe(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	s.setupRouter()
	s.setupServer(ctx)
	quit := make(chan os.Signal, 1)
	s.quit = quit
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	go s.startServer()
	select {
	case <-ctx.Done():
	case <-quit:
	}
	s.shutDown() //nolint:contextcheck // Nope, we want to gracefully shutdown on a different context.
}

func (s *srv) Handler() http.Handler {
	if s.router == nil {
		s.setupRouter()
	}

	return s.router
}

func (s *srv) setupRouter() {
	if !s.development {
		releaseMode.Do(func() { gin.SetMode(gin.ReleaseMode) })
		s.router = gin.New()
		s.router.Use(gin.Recovery())
	} else {
		s.router = gin.Default()
	}
	log.Info(fmt.Sprintf("GIN Mode: %v", gin.Mode()))
	s.router.RemoteIPHeaders = []string{"cf-connecting-ip", "X-Real-IP", "X-Forwarded-For"}
	s.router.HandleMethodNotAllowed = true
	s.router.RedirectFixedPath = true
	s.router.RemoveExtraSlash = true
	s.router.UseRawPath = true
	s.router.Use(func(ginCtx *gin.Context) {
		ginCtx.Set(srvGinCtxKey, s)
		ginCtx.Next()
	})

	log.Info("registering routes...")
	s.RegisterRoutes(s.router)
	log.Info(fmt.Sprintf("%v routes registered", len(s.router.Routes())))
	s.setupHealthCheckRoutes()
}

func (s *srv) setupHealthCheckRoutes() {
	s.router.GET("health-check", RootHandler(func(ctx context.Context, req *Request[healthCheck, map[string]string]) (*Response[map[string]string], *Response[ErrorResponse]) { //nolint:lll // .
		if err := s.State.CheckHealth(ctx); err != nil {
			return nil, ServiceUnavailable(errors.Wrapf(err, "health check failed"), "UNHEALTHY")
		}

		return OK(&map[string]string{"clientIp": req.ClientIP.String()}), nil
	}))
}

func (s *srv) setupServer(ctx context.Context) {
	s.server = &http.Server{ //nolint:gosec // Not an issue, each request has a deadline set by the handler.
		Addr:    fmt.Sprintf(":%v", s.cfg.HTTPServer.Port),
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
}

func (s *srv) startServer() {
	defer log.Info("server stopped listening")
	log.Info(fmt.Sprintf("server started listening on %v...", s.cfg.HTTPServer.Port))

	isUnexpectedError := func(err error) bool {
		return err != nil &&
			!errors.Is(err, io.EOF) &&
			!errors.Is(err, http.ErrServerClosed)
	}
	var err error
	if s.cfg.HTTPServer.CertPath != "" && s.cfg.HTTPServer.KeyPath != "" {
		err = errors.Wrap(s.server.ListenAndServeTLS(s.cfg.HTTPServer.CertPath, s.cfg.HTTPServer.KeyPath), "server.ListenAndServeTLS failed")
	} else {
		log.Warn("no certificate configured, serving plain http")
		err = errors.Wrap(s.server.ListenAndServe(), "server.ListenAndServe failed")
	}
	if isUnexpectedError(err) {
		log.Error(err)
		s.quit <- syscall.SIGTERM
	}
}

func (s *srv) shutDown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DefaultEndpointTimeout)
	defer cancel()
	log.Info("shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, io.EOF) {
		log.Error(errors.Wrap(err, "server shutdown failed"))
	} else {
		log.Info("server shutdown succeeded")
	}

	if err := s.State.Close(ctx); err != nil && !errors.Is(err, io.EOF) {
		log.Error(errors.Wrap(err, "state close failed"))
	} else {
		log.Info("state close succeeded")
	}
}
