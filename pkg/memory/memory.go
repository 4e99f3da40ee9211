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

// Package memory provides an in-process external storage backend.
// Endpoints exist only once a session has been configured for them, which
// makes it useful for testing, development, and conformance checks that
// need no network.
package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// StorageType is the tag the backend registers under.
const StorageType = "memory"

// Account is the access key pair every endpoint accepts.
type Account struct {
	Username string
	Password string
}

// Options contains configuration options for the memory backend.
type Options struct {
	// Account is compared against the username and password of the
	// credentials behind a session handle (default: minioadmin/minioadmin)
	Account Account

	// Quota caps the bytes stored per endpoint (0 = unlimited)
	Quota int64

	// Logger is the pluggable logger adapter (default: NoOpLogger)
	Logger adapters.Logger
}

// DefaultOptions returns the default backend options.
func DefaultOptions() *Options {
	return &Options{
		Account: Account{Username: "minioadmin", Password: "minioadmin"},
		Logger:  adapters.NewNoOpLogger(),
	}
}

// endpoint is one simulated server.
type endpoint struct {
	buckets map[string]map[string][]byte
	used    int64
}

// Memory is a storage backend that keeps objects in memory.
type Memory struct {
	resolver common.CredentialResolver
	account  Account
	quota    int64
	logger   adapters.Logger

	mu        sync.RWMutex
	endpoints map[string]*endpoint
}

// New creates a new Memory storage backend. A nil opts uses DefaultOptions.
func New(resolver common.CredentialResolver, opts *Options) *Memory {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Memory{
		resolver:  resolver,
		account:   opts.Account,
		quota:     opts.Quota,
		logger:    logger.WithFields(adapters.F("backend", StorageType)),
		endpoints: make(map[string]*endpoint),
	}
}

// Type returns StorageType.
func (m *Memory) Type() string {
	return StorageType
}

// Configure builds a session and makes host:port reachable with bucket
// created on it.
func (m *Memory) Configure(endpointHost string, endpointPort int, bucket string, handle common.StorageHandle) (*common.Session, error) {
	session, err := common.NewSession(StorageType, endpointHost, endpointPort, bucket, handle)
	if err != nil {
		return nil, err
	}

	loc := common.Location{Scheme: session.Scheme, Host: session.Host, Port: session.Port}

	m.mu.Lock()
	defer m.mu.Unlock()

	ep, ok := m.endpoints[loc.HostPort()]
	if !ok {
		ep = &endpoint{buckets: make(map[string]map[string][]byte)}
		m.endpoints[loc.HostPort()] = ep
	}
	if _, ok := ep.buckets[bucket]; !ok {
		ep.buckets[bucket] = make(map[string][]byte)
	}
	return session, nil
}

// Fetch returns a copy of the object at locator.
func (m *Memory) Fetch(ctx context.Context, locator common.ResourceLocator, session *common.Session) ([]byte, error) {
	loc, err := m.prepare(ctx, locator, session)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ep, ok := m.endpoints[loc.HostPort()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnreachable, loc.Endpoint())
	}
	objects, ok := ep.buckets[loc.Bucket]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %s", common.ErrNotFound, loc.Bucket)
	}
	data, ok := objects[loc.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, loc.Key)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Store saves a copy of payload at locator, replacing any existing object.
func (m *Memory) Store(ctx context.Context, locator common.ResourceLocator, payload []byte, session *common.Session) error {
	loc, err := m.prepare(ctx, locator, session)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ep, ok := m.endpoints[loc.HostPort()]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrUnreachable, loc.Endpoint())
	}
	objects, ok := ep.buckets[loc.Bucket]
	if !ok {
		return fmt.Errorf("%w: bucket %s", common.ErrNotFound, loc.Bucket)
	}

	used := ep.used - int64(len(objects[loc.Key])) + int64(len(payload))
	if m.quota > 0 && used > m.quota {
		return fmt.Errorf("%w: %d of %d bytes", common.ErrQuotaExceeded, used, m.quota)
	}

	data := make([]byte, len(payload))
	copy(data, payload)
	objects[loc.Key] = data
	ep.used = used

	m.logger.Debug(ctx, "object stored",
		adapters.F("bucket", loc.Bucket),
		adapters.F("key", loc.Key),
		adapters.F("bytes", len(payload)))
	return nil
}

// Used returns the bytes stored on host:port.
func (m *Memory) Used(host string, port int) int64 {
	loc := common.Location{Host: host, Port: port}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ep, ok := m.endpoints[loc.HostPort()]; ok {
		return ep.used
	}
	return 0
}

// prepare runs the checks shared by Fetch and Store, in the order a
// remote server would apply them: connect, address, authenticate.
func (m *Memory) prepare(ctx context.Context, locator common.ResourceLocator, session *common.Session) (*common.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := session.Resolve(locator)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	_, reachable := m.endpoints[loc.HostPort()]
	m.mu.RUnlock()
	if !reachable {
		return nil, fmt.Errorf("%w: %s", common.ErrUnreachable, loc.Endpoint())
	}

	if loc.Bucket == "" || loc.Key == "" {
		return nil, fmt.Errorf("%w: %s has no bucket or key", common.ErrInvalidLocator, locator)
	}
	if err := common.ValidateKey(loc.Key); err != nil {
		return nil, err
	}
	if err := m.authenticate(session.Handle); err != nil {
		return nil, err
	}
	return loc, nil
}

func (m *Memory) authenticate(handle common.StorageHandle) error {
	cfg, err := m.resolver.Lookup(handle)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrAuthFailed, err)
	}
	if cfg.StorageType != StorageType {
		return fmt.Errorf("%w: handle %s is a %s config", common.ErrAuthFailed, handle, cfg.StorageType)
	}
	user := subtle.ConstantTimeCompare([]byte(cfg.Get("username")), []byte(m.account.Username))
	pass := subtle.ConstantTimeCompare([]byte(cfg.Get("password")), []byte(m.account.Password))
	if user&pass != 1 {
		return fmt.Errorf("%w: credentials rejected for %s", common.ErrAuthFailed, cfg.Name)
	}
	return nil
}
