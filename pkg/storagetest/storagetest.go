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

// Package storagetest is a conformance suite every external storage backend
// must pass. Failures must surface as the same error kind whatever the
// backend, so callers can stay protocol agnostic.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-extstore/pkg/authstore"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// BadURL names a host that never resolves.
const BadURL common.ResourceLocator = "http://nothinghere/"

// BadObjectURL addresses a full object on the host BadURL names.
const BadObjectURL common.ResourceLocator = "http://nothinghere/test-bucket/key.txt"

// Fixture describes the backend under test and the endpoint it talks to.
type Fixture struct {
	// Backend is the implementation under test.
	Backend common.Backend

	// Store is the credential store the backend resolves handles against.
	Store *authstore.CredentialStore

	// Host and Port address a reachable endpoint.
	Host string
	Port int

	// Bucket must exist on the endpoint (or be created by Configure).
	Bucket string

	// Credentials returns a valid config, named name, the endpoint accepts.
	Credentials func(name string) *common.AuthConfig

	// Rejected returns a valid config the endpoint refuses. Optional.
	Rejected func(name string) *common.AuthConfig

	// Foreign returns a valid config of another storage type carrying
	// credentials the endpoint would otherwise accept. Optional.
	Foreign func(name string) *common.AuthConfig
}

// Run drives f.Backend through the conformance scenarios.
func Run(t *testing.T, f Fixture) {
	t.Helper()
	require.NotNil(t, f.Backend, "fixture needs a backend")
	require.NotNil(t, f.Store, "fixture needs a credential store")
	require.NotNil(t, f.Credentials, "fixture needs credentials")

	prefix := f.Backend.Type()
	session := func(t *testing.T, name string) *common.Session {
		t.Helper()
		cfg := f.Credentials(prefix + "_" + name)
		ok, err := f.Store.Store(cfg)
		require.NoError(t, err)
		require.True(t, ok)
		s, err := f.Backend.Configure(f.Host, f.Port, f.Bucket, cfg.Handle())
		require.NoError(t, err)
		return s
	}

	t.Run("AuthConfigScenario", func(t *testing.T) {
		cfg := f.Credentials(fmt.Sprintf("test_%s_auth_config", prefix))
		assert.True(t, f.Store.IsValid(cfg))

		ok, err := f.Store.Store(cfg)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, f.Store.IsValid(cfg))
		assert.Equal(t, "minioadmin", cfg.Get("username"))

		s, err := f.Backend.Configure(f.Host, f.Port, "test-bucket", cfg.Handle())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("http://%s/test-bucket", hostPort(f.Host, f.Port)), s.BaseURL())
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := session(t, "roundtrip")
		ctx := context.Background()
		payload := []byte("byte-identical \x00\xff payload")

		require.NoError(t, f.Backend.Store(ctx, "roundtrip/object.bin", payload, s))
		got, err := f.Backend.Fetch(ctx, "roundtrip/object.bin", s)
		require.NoError(t, err)
		assert.Equal(t, payload, got)

		absolute := common.ResourceLocator(s.BaseURL() + "/roundtrip/object.bin")
		got, err = f.Backend.Fetch(ctx, absolute, s)
		require.NoError(t, err)
		assert.Equal(t, payload, got, "absolute and relative locators address the same object")
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := session(t, "overwrite")
		ctx := context.Background()

		require.NoError(t, f.Backend.Store(ctx, "overwrite.txt", []byte("first"), s))
		require.NoError(t, f.Backend.Store(ctx, "overwrite.txt", []byte("second"), s))
		got, err := f.Backend.Fetch(ctx, "overwrite.txt", s)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		s := session(t, "empty")
		ctx := context.Background()

		require.NoError(t, f.Backend.Store(ctx, "empty.txt", []byte{}, s))
		got, err := f.Backend.Fetch(ctx, "empty.txt", s)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := session(t, "notfound")
		_, err := f.Backend.Fetch(context.Background(), "does/not/exist", s)
		assertKind(t, "NotFound", err)
	})

	t.Run("BadURL", func(t *testing.T) {
		s := session(t, "badurl")
		ctx := context.Background()

		_, err := f.Backend.Fetch(ctx, BadURL, s)
		assertKind(t, "Unreachable", err)

		err = f.Backend.Store(ctx, BadURL, []byte("payload"), s)
		assertKind(t, "Unreachable", err)
	})

	t.Run("BadObjectURL", func(t *testing.T) {
		s := session(t, "badobjecturl")
		ctx := context.Background()

		_, err := f.Backend.Fetch(ctx, BadObjectURL, s)
		assertKind(t, "Unreachable", err)

		err = f.Backend.Store(ctx, BadObjectURL, []byte("payload"), s)
		assertKind(t, "Unreachable", err)
	})

	t.Run("UnknownHandleBadURL", func(t *testing.T) {
		s, err := f.Backend.Configure(f.Host, f.Port, f.Bucket, "no-such-handle")
		require.NoError(t, err)
		ctx := context.Background()

		_, err = f.Backend.Fetch(ctx, BadObjectURL, s)
		assertKind(t, "Unreachable", err)

		err = f.Backend.Store(ctx, BadObjectURL, []byte("payload"), s)
		assertKind(t, "Unreachable", err)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		s := session(t, "invalidkey")
		err := f.Backend.Store(context.Background(), "a/../b", []byte("x"), s)
		assertKind(t, "InvalidLocator", err)
	})

	t.Run("UnknownHandle", func(t *testing.T) {
		s, err := f.Backend.Configure(f.Host, f.Port, f.Bucket, "no-such-handle")
		require.NoError(t, err, "configure performs no lookups")
		_, err = f.Backend.Fetch(context.Background(), "anything", s)
		assertKind(t, "AuthFailed", err)
	})

	t.Run("RejectedCredentials", func(t *testing.T) {
		if f.Rejected == nil {
			t.Skip("fixture has no rejected credentials")
		}
		cfg := f.Rejected(prefix + "_rejected")
		ok, err := f.Store.Store(cfg)
		require.NoError(t, err)
		require.True(t, ok)
		s, err := f.Backend.Configure(f.Host, f.Port, f.Bucket, cfg.Handle())
		require.NoError(t, err)

		err = f.Backend.Store(context.Background(), "rejected.txt", []byte("x"), s)
		assertKind(t, "AuthFailed", err)
		_, err = f.Backend.Fetch(context.Background(), "rejected.txt", s)
		assertKind(t, "AuthFailed", err)
	})

	t.Run("ForeignHandle", func(t *testing.T) {
		if f.Foreign == nil {
			t.Skip("fixture has no foreign credentials")
		}
		cfg := f.Foreign(prefix + "_foreign")
		require.NotEqual(t, prefix, cfg.StorageType)
		ok, err := f.Store.Store(cfg)
		require.NoError(t, err)
		require.True(t, ok)
		s, err := f.Backend.Configure(f.Host, f.Port, f.Bucket, cfg.Handle())
		require.NoError(t, err)

		err = f.Backend.Store(context.Background(), "foreign.txt", []byte("x"), s)
		assertKind(t, "AuthFailed", err)
		_, err = f.Backend.Fetch(context.Background(), "foreign.txt", s)
		assertKind(t, "AuthFailed", err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		s := session(t, "cancelled")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.Backend.Fetch(ctx, "cancelled.txt", s)
		assert.True(t, errors.Is(err, context.Canceled), "fetch: got %v", err)
		err = f.Backend.Store(ctx, "cancelled.txt", []byte("x"), s)
		assert.True(t, errors.Is(err, context.Canceled), "store: got %v", err)
	})

	t.Run("NilSession", func(t *testing.T) {
		_, err := f.Backend.Fetch(context.Background(), "key", nil)
		assert.ErrorIs(t, err, common.ErrNotConfigured)
	})
}

func assertKind(t *testing.T, want string, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, common.Kind(err), "error: %v", err)
}

func hostPort(host string, port int) string {
	return (&common.Location{Host: host, Port: port}).HostPort()
}
