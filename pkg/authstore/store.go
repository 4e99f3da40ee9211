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

// Package authstore persists named authentication configs and resolves the
// handles backends use to look up credentials at request time.
package authstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// CredentialStore is an in-memory credential store. It is safe for concurrent use.
type CredentialStore struct {
	mu           sync.RWMutex
	byName       map[string]*common.AuthConfig
	byHandle     map[common.StorageHandle]*common.AuthConfig
	requirements common.Requirements
	logger       adapters.Logger

	// persist is called with the full config set after every accepted
	// Store, under the write lock. A non-nil error rolls the insert back.
	persist func(configs []*common.AuthConfig) error
}

// Option configures a CredentialStore.
type Option func(*CredentialStore)

// WithRequirements replaces the required-field table.
func WithRequirements(reqs common.Requirements) Option {
	return func(s *CredentialStore) {
		s.requirements = reqs
	}
}

// WithLogger sets the logger.
func WithLogger(logger adapters.Logger) Option {
	return func(s *CredentialStore) {
		s.logger = logger
	}
}

// New creates an empty store using the default requirements.
func New(opts ...Option) *CredentialStore {
	s := &CredentialStore{
		byName:       make(map[string]*common.AuthConfig),
		byHandle:     make(map[common.StorageHandle]*common.AuthConfig),
		requirements: common.DefaultRequirements(),
		logger:       adapters.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsValid reports whether cfg carries every field its storage type
// requires, using the default requirements. It does not consult any store.
func IsValid(cfg *common.AuthConfig) bool {
	return common.DefaultRequirements().Validate(cfg) == nil
}

// IsValid reports whether cfg satisfies this store's requirements. It does
// not consult persisted state.
func (s *CredentialStore) IsValid(cfg *common.AuthConfig) bool {
	return s.requirements.Validate(cfg) == nil
}

// Missing returns the keys this store requires of cfg's storage type that
// cfg lacks. An unsupported storage type has no known keys and returns nil;
// IsValid still reports it invalid.
func (s *CredentialStore) Missing(cfg *common.AuthConfig) []string {
	if cfg == nil {
		return nil
	}
	return cfg.Missing(s.requirements[cfg.StorageType])
}

// Store persists cfg under its name. On success it assigns cfg.ID, which is
// the handle backends resolve, and returns true. The store keeps its own
// copy, so later changes to cfg do not affect the persisted config.
//
// Returns ErrInvalidConfig when required fields are missing and
// ErrDuplicateName when the name is taken; neither alters stored state.
func (s *CredentialStore) Store(cfg *common.AuthConfig) (bool, error) {
	if err := s.requirements.Validate(cfg); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[cfg.Name]; exists {
		return false, fmt.Errorf("%w: %s", common.ErrDuplicateName, cfg.Name)
	}

	stored := cfg.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	handle := stored.Handle()
	if _, exists := s.byHandle[handle]; exists {
		return false, fmt.Errorf("%w: id %s already in use", common.ErrDuplicateName, stored.ID)
	}

	s.byName[stored.Name] = stored
	s.byHandle[handle] = stored

	if s.persist != nil {
		if err := s.persist(s.snapshotLocked()); err != nil {
			delete(s.byName, stored.Name)
			delete(s.byHandle, handle)
			return false, fmt.Errorf("persist auth config: %w", err)
		}
	}

	cfg.ID = stored.ID
	s.logger.Debug(context.Background(), "auth config stored",
		adapters.F("name", stored.Name),
		adapters.F("storage_type", stored.StorageType),
		adapters.F("handle", handle.String()))
	return true, nil
}

// Lookup returns a copy of the config behind handle.
func (s *CredentialStore) Lookup(handle common.StorageHandle) (*common.AuthConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.byHandle[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownHandle, handle)
	}
	return cfg.Clone(), nil
}

// ByName returns a copy of the config stored under name.
func (s *CredentialStore) ByName(name string) (*common.AuthConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: no config named %s", common.ErrUnknownHandle, name)
	}
	return cfg.Clone(), nil
}

// Names returns the stored config names, sorted.
func (s *CredentialStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored configs.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}

// replace swaps the whole config set. Used when reloading from disk.
// Entries are held to the same rules as Store: invalid configs and later
// entries reusing a name or ID are logged and skipped.
func (s *CredentialStore) replace(configs []*common.AuthConfig) {
	byName := make(map[string]*common.AuthConfig, len(configs))
	byHandle := make(map[common.StorageHandle]*common.AuthConfig, len(configs))
	for i, cfg := range configs {
		if err := s.admit(cfg, byName, byHandle); err != nil {
			s.logger.Warn(context.Background(), "auth config skipped on reload",
				adapters.F("index", i),
				adapters.F("kind", common.Kind(err)),
				adapters.F("error", err.Error()))
			continue
		}
		byName[cfg.Name] = cfg
		byHandle[cfg.Handle()] = cfg
	}

	s.mu.Lock()
	s.byName = byName
	s.byHandle = byHandle
	s.mu.Unlock()
}

// admit checks a persisted config against the requirements and the
// entries accepted before it.
func (s *CredentialStore) admit(cfg *common.AuthConfig, byName map[string]*common.AuthConfig, byHandle map[common.StorageHandle]*common.AuthConfig) error {
	if err := s.requirements.Validate(cfg); err != nil {
		return err
	}
	if cfg.ID == "" {
		return fmt.Errorf("%w: %s has no id", common.ErrInvalidConfig, cfg.Name)
	}
	if _, exists := byName[cfg.Name]; exists {
		return fmt.Errorf("%w: %s", common.ErrDuplicateName, cfg.Name)
	}
	if _, exists := byHandle[cfg.Handle()]; exists {
		return fmt.Errorf("%w: id %s already in use", common.ErrDuplicateName, cfg.ID)
	}
	return nil
}

// snapshotLocked returns the configs ordered by name. Caller holds s.mu.
func (s *CredentialStore) snapshotLocked() []*common.AuthConfig {
	configs := make([]*common.AuthConfig, 0, len(s.byName))
	for _, cfg := range s.byName {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}
