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

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/server/rest"
)

// ErrInvalidListen is returned when the listen address is not host:port.
var ErrInvalidListen = errors.New("invalid listen address")

// NewServer builds the REST server for the serve command. Object requests
// address the configured host and port. A configured token turns on bearer
// authentication and lets clients pick other endpoints; a certificate turns
// on TLS.
func (ctx *CommandContext) NewServer() (*rest.Server, error) {
	host, portStr, err := net.SplitHostPort(ctx.Config.Listen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidListen, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %q", ErrInvalidListen, portStr)
	}
	if host == "" {
		host = "0.0.0.0"
	}

	config := rest.DefaultServerConfig()
	config.Host = host
	config.Port = port
	config.Logger = ctx.Logger
	config.Endpoint = rest.Endpoint{Host: ctx.Config.Host, Port: ctx.Config.Port}
	if ctx.Config.Token != "" {
		config.Authenticator = adapters.NewStaticTokenAuthenticator(ctx.Config.Token)
		config.Endpoint.AllowOverride = true
	}
	config.TLSConfig, err = adapters.TLSFiles{
		CertFile:     ctx.Config.TLSCert,
		KeyFile:      ctx.Config.TLSKey,
		ClientCAFile: ctx.Config.TLSClientCA,
	}.Load()
	if err != nil {
		return nil, err
	}
	return rest.NewServer(ctx.Store.CredentialStore, ctx.Registry, config)
}

// ServeCommand runs the REST server until ctx is cancelled. The auth file
// is watched so configs added by other processes become visible.
func (ctx *CommandContext) ServeCommand(c context.Context) error {
	server, err := ctx.NewServer()
	if err != nil {
		return err
	}

	if err := ctx.Store.Watch(c); err != nil {
		ctx.Logger.Warn(c, "Auth file watch disabled",
			adapters.F("path", ctx.Store.Path()),
			adapters.F("error", err.Error()))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-c.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
