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

package adapters

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingCredentials is returned when required credentials are missing.
	ErrMissingCredentials = errors.New("missing credentials")
)

// Principal represents an authenticated caller of the REST surface.
type Principal struct {
	ID   string
	Name string
	Type string
}

// Authenticator authenticates inbound HTTP requests.
type Authenticator interface {
	// AuthenticateHTTP returns the caller, or ErrUnauthorized / ErrMissingCredentials.
	AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error)
}

// NoOpAuthenticator allows all requests.
// Useful for development or when authentication is handled externally.
type NoOpAuthenticator struct{}

// NewNoOpAuthenticator creates a new no-op authenticator.
func NewNoOpAuthenticator() *NoOpAuthenticator {
	return &NoOpAuthenticator{}
}

// AuthenticateHTTP allows all HTTP requests.
func (a *NoOpAuthenticator) AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error) {
	return &Principal{
		ID:   "anonymous",
		Name: "Anonymous",
		Type: "anonymous",
	}, nil
}

// BearerTokenAuthenticator is a simple token-based authenticator.
type BearerTokenAuthenticator struct {
	// ValidateToken validates a token and returns a principal.
	ValidateToken func(ctx context.Context, token string) (*Principal, error)
}

// NewBearerTokenAuthenticator creates a new bearer token authenticator.
func NewBearerTokenAuthenticator(validateFunc func(ctx context.Context, token string) (*Principal, error)) *BearerTokenAuthenticator {
	return &BearerTokenAuthenticator{
		ValidateToken: validateFunc,
	}
}

// NewStaticTokenAuthenticator accepts exactly one shared token.
func NewStaticTokenAuthenticator(expected string) *BearerTokenAuthenticator {
	return NewBearerTokenAuthenticator(func(ctx context.Context, token string) (*Principal, error) {
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return nil, ErrUnauthorized
		}
		return &Principal{ID: "token", Name: "Token", Type: "service"}, nil
	})
}

// AuthenticateHTTP authenticates using the Authorization header.
func (a *BearerTokenAuthenticator) AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error) {
	token := req.Header.Get("Authorization")
	if token == "" {
		return nil, ErrMissingCredentials
	}
	token = strings.TrimPrefix(token, "Bearer ")
	return a.ValidateToken(ctx, token)
}
