// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-extstore.
//
// go-extstore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest exposes the credential store and storage backends over HTTP.
package rest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/authstore"
	"github.com/jeremyhahn/go-extstore/pkg/factory"
)

// Server represents the REST API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	handler    *Handler
	config     *ServerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	// Host is the hostname to bind to (default: "0.0.0.0")
	Host string

	// Port is the port to listen on (default: 8080)
	Port int

	// EnableLogging enables request logging middleware
	EnableLogging bool

	// EnableRateLimit enables rate limiting middleware
	EnableRateLimit bool

	// RateLimitConfig is the rate limiting configuration
	RateLimitConfig *RateLimitConfig

	// MaxRequestSize is the maximum request body size in bytes (default: 100MB)
	MaxRequestSize int64

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// Mode sets the Gin mode: "debug", "release", or "test" (default: "release")
	Mode string

	// Logger is the pluggable logger adapter (default: DefaultLogger)
	Logger adapters.Logger

	// Authenticator is the pluggable authentication adapter (default: NoOpAuthenticator)
	Authenticator adapters.Authenticator

	// TLSConfig serves HTTPS when set
	TLSConfig *tls.Config

	// Endpoint is the storage endpoint object requests address. Overrides
	// are only honoured when an Authenticator other than the no-op one is set.
	Endpoint Endpoint
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		EnableLogging:   true,
		EnableRateLimit: false,
		RateLimitConfig: DefaultRateLimitConfig(),
		MaxRequestSize:  100 * 1024 * 1024, // 100MB
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		Mode:            gin.ReleaseMode,
		Logger:          adapters.NewDefaultLogger(),
		Authenticator:   adapters.NewNoOpAuthenticator(),
	}
}

// NewServer creates a new REST API server over store and registry.
func NewServer(store *authstore.CredentialStore, registry *factory.Registry, config *ServerConfig) (*Server, error) {
	if store == nil || registry == nil {
		return nil, errors.New("rest: store and registry are required")
	}
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Logger == nil {
		config.Logger = adapters.NewDefaultLogger()
	}
	if config.Authenticator == nil {
		config.Authenticator = adapters.NewNoOpAuthenticator()
	}
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}

	gin.SetMode(config.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware order: request ID → rate limit → security headers → auth → logging → size limit
	router.Use(RequestIDMiddleware())
	if config.EnableRateLimit {
		router.Use(RateLimitMiddleware(config.RateLimitConfig, config.Logger))
	}
	router.Use(SecurityHeadersMiddleware())
	router.Use(AuthenticationMiddleware(config.Authenticator, config.Logger))
	if config.EnableLogging {
		router.Use(LoggingMiddleware(config.Logger))
	}
	if config.MaxRequestSize > 0 {
		router.Use(RequestSizeLimitMiddleware(config.MaxRequestSize))
	}

	endpoint := config.Endpoint
	if _, open := config.Authenticator.(*adapters.NoOpAuthenticator); open && endpoint.AllowOverride {
		config.Logger.Warn(context.Background(), "Endpoint overrides disabled on an unauthenticated server")
		endpoint.AllowOverride = false
	}

	handler := NewHandler(store, registry, endpoint, config.Logger)
	SetupRoutes(router, handler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		TLSConfig:    config.TLSConfig,
	}

	return &Server{
		router:     router,
		httpServer: httpServer,
		handler:    handler,
		config:     config,
	}, nil
}

// Start starts the REST API server and blocks until it stops.
func (s *Server) Start() error {
	s.config.Logger.Info(context.Background(), "Starting REST API server",
		adapters.F("address", s.httpServer.Addr),
		adapters.F("tls", s.httpServer.TLSConfig != nil))

	var err error
	if s.httpServer.TLSConfig != nil {
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.config.Logger.Info(ctx, "Shutting down REST API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router (useful for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handler returns the HTTP handler
func (s *Server) Handler() *Handler {
	return s.handler
}

// Address returns the server address
func (s *Server) Address() string {
	return s.httpServer.Addr
}
