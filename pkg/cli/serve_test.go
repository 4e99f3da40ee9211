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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
)

func TestNewServer(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Listen = "127.0.0.1:18080"

	server, err := ctx.NewServer()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18080", server.Address())

	ctx.Config.Listen = ":8081"
	server, err = ctx.NewServer()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8081", server.Address())
}

func TestNewServer_InvalidListen(t *testing.T) {
	ctx := newTestContext(t)

	for _, listen := range []string{"", "nohost", "localhost:http", "localhost:70000"} {
		ctx.Config.Listen = listen
		_, err := ctx.NewServer()
		assert.ErrorIs(t, err, ErrInvalidListen, listen)
	}
}

func TestNewServer_Token(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Listen = ":0"
	ctx.Config.Token = "s3cret"

	server, err := ctx.NewServer()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/backends", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/backends", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewServer_EndpointOverridesNeedToken(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Listen = ":0"
	addMemoryAuth(t, ctx, "mem")
	target := "/api/v1/objects/memory/k?auth=mem&bucket=test-bucket&host=10.0.0.1"

	server, err := ctx.NewServer()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	ctx.Config.Token = "s3cret"
	server, err = ctx.NewServer()
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, "override reaches the backend")
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Listen = "127.0.0.1:0"

	c, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctx.ServeCommand(c) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestNewServer_TLSMisconfigured(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Listen = ":8443"
	ctx.Config.TLSCert = "/nonexistent/cert.pem"

	_, err := ctx.NewServer()
	assert.ErrorIs(t, err, adapters.ErrInvalidCertificate)
}
