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
	"errors"
	"net/http/httptest"
	"testing"
)

func TestNoOpAuthenticator(t *testing.T) {
	auth := NewNoOpAuthenticator()
	req := httptest.NewRequest("GET", "/health", nil)

	principal, err := auth.AuthenticateHTTP(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal.ID != "anonymous" {
		t.Errorf("expected anonymous principal, got %s", principal.ID)
	}
}

func TestStaticTokenAuthenticator(t *testing.T) {
	auth := NewStaticTokenAuthenticator("s3cret")
	ctx := context.Background()

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"missing header", "", ErrMissingCredentials},
		{"wrong token", "Bearer nope", ErrUnauthorized},
		{"bearer token", "Bearer s3cret", nil},
		{"raw token", "s3cret", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/backends", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			principal, err := auth.AuthenticateHTTP(ctx, req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if principal.Type != "service" {
				t.Errorf("expected service principal, got %s", principal.Type)
			}
		})
	}
}
