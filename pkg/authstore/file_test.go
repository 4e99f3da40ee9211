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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-extstore/pkg/common"
)

func TestFileStore_PersistAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")

	fs, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, fs.Len(), "missing file is an empty store")

	cfg := awsConfig("test_awss3_auth_config")
	ok, err := fs.Store(cfg)
	require.NoError(t, err)
	require.True(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	got, err := reopened.Lookup(cfg.Handle())
	require.NoError(t, err)
	assert.Equal(t, "minioadmin", got.Get("username"))
	assert.Equal(t, "AWSS3", got.StorageType)

	_, err = reopened.Store(awsConfig("test_awss3_auth_config"))
	assert.ErrorIs(t, err, common.ErrDuplicateName, "duplicate check survives restart")
}

func TestFileStore_DirectoryPath(t *testing.T) {
	dir := t.TempDir()
	fs, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), fs.Path())
}

func TestFileStore_Errors(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = Open(path)
	assert.Error(t, err)
}

func TestFileStore_ReloadSkipsRejectedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	data := `{"configs":[
  {"id":"1","name":"good","storage_type":"AWSS3","config":{"username":"u","password":"p","region":"r"}},
  {"id":"2","name":"good","storage_type":"AWSS3","config":{"username":"x","password":"x","region":"x"}},
  {"id":"1","name":"same-id","storage_type":"AWSS3","config":{"username":"u","password":"p","region":"r"}},
  {"id":"3","name":"incomplete","storage_type":"AWSS3","config":{"username":"u"}},
  {"id":"4","name":"unknown-type","storage_type":"webdav","config":{"username":"u"}},
  {"name":"no-id","storage_type":"memory","config":{"username":"u","password":"p"}},
  null,
  {"id":"5","name":"mem","storage_type":"memory","config":{"username":"u","password":"p"}}
]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	fs, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"good", "mem"}, fs.Names())

	got, err := fs.ByName("good")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID, "first entry for a name wins")
	assert.Equal(t, "u", got.Get("username"))

	_, err = fs.Lookup("2")
	assert.ErrorIs(t, err, common.ErrUnknownHandle)
}

func TestFileStore_WatchReloadsExternalChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")

	watched, err := Open(path)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watched.Watch(ctx))
	defer func() { _ = watched.Close() }()

	assert.ErrorIs(t, watched.Watch(ctx), ErrWatcherRunning)

	// A second process writes through its own store.
	writer, err := Open(path)
	require.NoError(t, err)
	cfg := awsConfig("from-elsewhere")
	_, err = writer.Store(cfg)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := watched.Lookup(cfg.Handle())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFileStore_CloseWithoutWatch(t *testing.T) {
	fs, err := Open(filepath.Join(t.TempDir(), "auth.json"))
	require.NoError(t, err)
	assert.NoError(t, fs.Close())
}
