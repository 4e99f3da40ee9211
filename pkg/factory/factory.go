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

// Package factory maps storage type tags to backend implementations.
package factory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/awss3"
	"github.com/jeremyhahn/go-extstore/pkg/common"
	"github.com/jeremyhahn/go-extstore/pkg/memory"
)

// Dependencies are handed to every backend creator.
type Dependencies struct {
	// Resolver looks up credentials behind session handles. Required.
	Resolver common.CredentialResolver

	// Logger is passed to backends that do not set their own.
	Logger adapters.Logger

	// S3 overrides the AWSS3 backend options.
	S3 *awss3.Options

	// Memory overrides the memory backend options.
	Memory *memory.Options
}

// BackendCreator is a function that creates a storage backend.
type BackendCreator func(deps Dependencies) (common.Backend, error)

var (
	creatorsMu sync.RWMutex
	creators   = make(map[string]BackendCreator)
)

// RegisterBackend registers a backend creator. Backends call it from init.
func RegisterBackend(storageType string, creator BackendCreator) {
	creatorsMu.Lock()
	defer creatorsMu.Unlock()
	creators[storageType] = creator
}

// RegisteredTypes returns the registered type tags, sorted.
func RegisteredTypes() []string {
	creatorsMu.RLock()
	defer creatorsMu.RUnlock()
	types := make([]string, 0, len(creators))
	for t := range creators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Registry resolves storage type tags to backends. Each backend is built on
// first lookup and reused afterwards, so BackendFor is idempotent.
type Registry struct {
	deps Dependencies

	mu       sync.Mutex
	backends map[string]common.Backend
}

// NewRegistry creates a registry over the creators registered at init.
// Backends built from deps without a Resolver fail with ErrNilResolver.
func NewRegistry(deps Dependencies) *Registry {
	if deps.Logger == nil {
		deps.Logger = adapters.NewNoOpLogger()
	}
	return &Registry{
		deps:     deps,
		backends: make(map[string]common.Backend),
	}
}

// BackendFor returns the backend registered under storageType.
func (r *Registry) BackendFor(storageType string) (common.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[storageType]; ok {
		return b, nil
	}

	creatorsMu.RLock()
	creator, ok := creators[storageType]
	creatorsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, storageType)
	}
	if r.deps.Resolver == nil {
		return nil, fmt.Errorf("create %s backend: %w", storageType, ErrNilResolver)
	}

	b, err := creator(r.deps)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", storageType, err)
	}
	r.backends[storageType] = b
	r.deps.Logger.Debug(context.Background(), "backend created", adapters.F("type", storageType))
	return b, nil
}

// Register installs an explicit backend instance under its own type tag,
// replacing any cached instance.
func (r *Registry) Register(b common.Backend) error {
	if b == nil {
		return ErrNilBackend
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Type()] = b
	return nil
}

// Types returns every tag the registry can resolve, sorted.
func (r *Registry) Types() []string {
	seen := make(map[string]bool)
	for _, t := range RegisteredTypes() {
		seen[t] = true
	}
	r.mu.Lock()
	for t := range r.backends {
		seen[t] = true
	}
	r.mu.Unlock()

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
