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

package authstore

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-extstore/pkg/common"
)

func awsConfig(name string) *common.AuthConfig {
	cfg := common.NewAuthConfig("AWSS3")
	cfg.Set("username", "minioadmin")
	cfg.Set("password", "adminio€")
	cfg.Set("region", "us-east-1")
	cfg.SetName(name)
	return cfg
}

func TestStore_ValidConfig(t *testing.T) {
	store := New()
	cfg := awsConfig("test_awss3_auth_config")

	assert.True(t, store.IsValid(cfg), "valid before store")

	ok, err := store.Store(cfg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, cfg.ID, "store assigns an id")
	assert.True(t, store.IsValid(cfg), "valid after store")
	assert.True(t, IsValid(cfg))

	got, err := store.Lookup(cfg.Handle())
	require.NoError(t, err)
	assert.Equal(t, "minioadmin", got.Get("username"))
	assert.Equal(t, "adminio€", got.Get("password"))
	assert.Equal(t, "us-east-1", got.Get("region"))

	byName, err := store.ByName("test_awss3_auth_config")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, byName.ID)
}

func TestStore_InvalidConfig(t *testing.T) {
	store := New()
	cfg := awsConfig("incomplete")
	delete(cfg.Config, "password")

	assert.False(t, store.IsValid(cfg))
	ok, err := store.Store(cfg)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig), "got %v", err)
	assert.Empty(t, cfg.ID)
	assert.Equal(t, 0, store.Len())
}

func TestStore_DuplicateName(t *testing.T) {
	store := New()
	first := awsConfig("shared")
	ok, err := store.Store(first)
	require.NoError(t, err)
	require.True(t, ok)

	second := awsConfig("shared")
	second.Set("username", "someoneelse")
	ok, err = store.Store(second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrDuplicateName)
	assert.Empty(t, second.ID)

	got, err := store.ByName("shared")
	require.NoError(t, err)
	assert.Equal(t, "minioadmin", got.Get("username"), "previous config must be untouched")
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 1, store.Len())
}

func TestStore_ImmutableAfterStore(t *testing.T) {
	store := New()
	cfg := awsConfig("immutable")
	_, err := store.Store(cfg)
	require.NoError(t, err)

	cfg.Set("password", "mutated")
	got, err := store.Lookup(cfg.Handle())
	require.NoError(t, err)
	assert.Equal(t, "adminio€", got.Get("password"))

	got.Set("password", "mutated-copy")
	again, err := store.Lookup(cfg.Handle())
	require.NoError(t, err)
	assert.Equal(t, "adminio€", again.Get("password"))
}

func TestStore_UnknownHandle(t *testing.T) {
	store := New()
	_, err := store.Lookup("missing")
	assert.ErrorIs(t, err, common.ErrUnknownHandle)

	_, err = store.ByName("missing")
	assert.ErrorIs(t, err, common.ErrUnknownHandle)
}

func TestStore_CustomRequirements(t *testing.T) {
	store := New(WithRequirements(common.Requirements{"webdav": {"username"}}))

	cfg := common.NewAuthConfig("webdav")
	cfg.SetName("dav")
	cfg.Set("username", "u")
	assert.True(t, store.IsValid(cfg))
	assert.False(t, store.IsValid(awsConfig("aws")), "AWSS3 not in custom table")
}

func TestStore_MissingUsesOwnRequirements(t *testing.T) {
	store := New(WithRequirements(common.Requirements{"AWSS3": {"username", "endpoint"}}))

	cfg := awsConfig("aws")
	assert.False(t, store.IsValid(cfg))
	assert.Equal(t, []string{"endpoint"}, store.Missing(cfg))

	cfg.Set("endpoint", "http://minio:9000")
	assert.True(t, store.IsValid(cfg))
	assert.Empty(t, store.Missing(cfg))

	assert.Equal(t, []string{"region"}, New().Missing(&common.AuthConfig{
		Name:        "partial",
		StorageType: "AWSS3",
		Config:      map[string]string{"username": "u", "password": "p"},
	}))
	assert.Nil(t, store.Missing(nil))
}

func TestStore_ConcurrentDistinctNames(t *testing.T) {
	store := New()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.Store(awsConfig(fmt.Sprintf("cfg-%02d", i)))
			assert.NoError(t, err)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, store.Len(), "no lost updates")
	names := store.Names()
	assert.Equal(t, "cfg-00", names[0])
	assert.Equal(t, fmt.Sprintf("cfg-%02d", n-1), names[n-1])
}

func TestStore_ConcurrentSameName(t *testing.T) {
	store := New()
	const n = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Store(awsConfig("contended"))
			mu.Lock()
			defer mu.Unlock()
			if ok {
				successes++
			} else if errors.Is(err, common.ErrDuplicateName) {
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, dupes)
}

func TestStore_PersistFailureRollsBack(t *testing.T) {
	store := New()
	store.persist = func([]*common.AuthConfig) error { return errors.New("disk full") }

	cfg := awsConfig("rollback")
	ok, err := store.Store(cfg)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Empty(t, cfg.ID)
	assert.Equal(t, 0, store.Len())
}
