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

package common

import (
	"context"
	"fmt"
	"strings"
)

// Backend is the common interface for all external storage backends.
type Backend interface {
	// Type returns the storage type tag the backend is registered under.
	Type() string

	// Configure builds a session for a bucket on an endpoint. It performs no network I/O.
	Configure(endpointHost string, endpointPort int, bucket string, credentials StorageHandle) (*Session, error)

	// Fetch retrieves an object.
	Fetch(ctx context.Context, locator ResourceLocator, session *Session) ([]byte, error)

	// Store uploads an object.
	Store(ctx context.Context, locator ResourceLocator, payload []byte, session *Session) error
}

// CredentialResolver looks up persisted auth configs by handle at request time.
type CredentialResolver interface {
	Lookup(handle StorageHandle) (*AuthConfig, error)
}

// Requirements maps a storage type to the config keys it needs.
type Requirements map[string][]string

// DefaultRequirements returns the required keys of the built-in storage types.
func DefaultRequirements() Requirements {
	return Requirements{
		"AWSS3":  {"username", "password", "region"},
		"memory": {"username", "password"},
	}
}

// Validate checks that cfg is named, tagged with a known storage type,
// and carries every key that type requires.
func (r Requirements) Validate(cfg *AuthConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if cfg.Name == "" {
		return fmt.Errorf("%w: name not set", ErrInvalidConfig)
	}
	required, ok := r[cfg.StorageType]
	if !ok {
		return fmt.Errorf("%w: unsupported storage type %q", ErrInvalidConfig, cfg.StorageType)
	}
	if missing := cfg.Missing(required); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// NewSession validates the addressing inputs shared by every backend and
// fills in defaults.
func NewSession(storageType, host string, port int, bucket string, handle StorageHandle) (*Session, error) {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: invalid port %d", ErrInvalidLocator, port)
	}
	if strings.ContainsAny(host, "/:@ ") {
		return nil, fmt.Errorf("%w: invalid host %q", ErrInvalidLocator, host)
	}
	if err := ValidateBucket(bucket); err != nil {
		return nil, err
	}
	if handle == "" {
		return nil, fmt.Errorf("%w: empty handle", ErrUnknownHandle)
	}
	return &Session{
		Scheme:      DefaultScheme,
		Host:        host,
		Port:        port,
		Bucket:      bucket,
		Handle:      handle,
		StorageType: storageType,
	}, nil
}
