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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-extstore/pkg/authstore"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

func newTestContext(t *testing.T) *CommandContext {
	t.Helper()
	cfg := &Config{
		AuthFile:     filepath.Join(t.TempDir(), "auth.json"),
		Host:         "localhost",
		Port:         9000,
		Bucket:       "test-bucket",
		Timeout:      5 * time.Second,
		OutputFormat: "text",
		LogLevel:     "error",
		LogFormat:    "text",
	}
	ctx, err := NewCommandContext(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func addMemoryAuth(t *testing.T, ctx *CommandContext, name string) {
	t.Helper()
	_, err := ctx.AuthAddCommand(name, "memory", map[string]string{
		"username": "minioadmin",
		"password": "minioadmin",
	})
	require.NoError(t, err)
	ctx.Config.Auth = name
}

func TestNewCommandContext_InvalidConfig(t *testing.T) {
	_, err := NewCommandContext(&Config{})
	assert.ErrorIs(t, err, ErrAuthFileRequired)
}

func TestParseSettings(t *testing.T) {
	settings, err := ParseSettings([]string{"username=minioadmin", "password=a=b", "region="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"username": "minioadmin",
		"password": "a=b",
		"region":   "",
	}, settings)

	_, err = ParseSettings([]string{"novalue"})
	assert.ErrorIs(t, err, ErrInvalidSetting)
	_, err = ParseSettings([]string{"=value"})
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestAuthCommands(t *testing.T) {
	ctx := newTestContext(t)

	cfg, err := ctx.AuthAddCommand("test_awss3_auth_config", "AWSS3", map[string]string{
		"username": "minioadmin",
		"password": "adminio€",
		"region":   "us-east-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.ID)

	_, err = ctx.AuthAddCommand("test_awss3_auth_config", "AWSS3", map[string]string{
		"username": "other", "password": "x", "region": "eu-west-1",
	})
	assert.ErrorIs(t, err, common.ErrDuplicateName)

	_, err = ctx.AuthAddCommand("incomplete", "AWSS3", map[string]string{"username": "u"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	infos, err := ctx.AuthListCommand()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "test_awss3_auth_config", infos[0].Name)
	assert.Equal(t, []string{"password", "region", "username"}, infos[0].Keys)
	assert.True(t, infos[0].Valid)
	assert.Equal(t, cfg.ID, infos[0].Handle)

	info, missing, err := ctx.AuthCheckCommand("test_awss3_auth_config")
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.Empty(t, missing)

	_, _, err = ctx.AuthCheckCommand("nope")
	assert.ErrorIs(t, err, common.ErrUnknownHandle)
}

func TestAuthCheckCommand_UsesStoreRequirements(t *testing.T) {
	ctx := newTestContext(t)
	store, err := authstore.Open(filepath.Join(t.TempDir(), "auth.json"),
		authstore.WithRequirements(common.Requirements{"memory": {"username", "token"}}))
	require.NoError(t, err)
	ctx.Store = store

	_, err = ctx.AuthAddCommand("token-only", "memory", map[string]string{
		"username": "minioadmin",
		"token":    "t",
	})
	require.NoError(t, err)

	info, missing, err := ctx.AuthCheckCommand("token-only")
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.Empty(t, missing, "no password needed under this store's table")
}

func TestAuthPersistsAcrossContexts(t *testing.T) {
	ctx := newTestContext(t)
	addMemoryAuth(t, ctx, "persisted")

	again, err := NewCommandContext(ctx.Config)
	require.NoError(t, err)
	defer func() { _ = again.Close() }()

	infos, err := again.AuthListCommand()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "persisted", infos[0].Name)
}

func TestBackendsCommand(t *testing.T) {
	ctx := newTestContext(t)
	assert.Equal(t, []string{"AWSS3", "memory"}, ctx.BackendsCommand())
}

func TestStoreAndFetchCommands(t *testing.T) {
	ctx := newTestContext(t)
	addMemoryAuth(t, ctx, "mem")
	bg := context.Background()

	src := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello extstore"), 0o600))

	n, err := ctx.StoreCommand(bg, src, "docs/in.txt")
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	dst := filepath.Join(t.TempDir(), "out.txt")
	n, err = ctx.FetchCommand(bg, "docs/in.txt", dst)
	require.NoError(t, err)
	assert.Equal(t, 14, n)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello extstore", string(data))

	// stdin and stdout
	ctx.Stdin = strings.NewReader("from stdin")
	var out bytes.Buffer
	ctx.Stdout = &out
	_, err = ctx.StoreCommand(bg, "-", "stdin.txt")
	require.NoError(t, err)
	_, err = ctx.FetchCommand(bg, "stdin.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", out.String())
}

func TestObjectCommandErrors(t *testing.T) {
	ctx := newTestContext(t)
	bg := context.Background()

	_, err := ctx.FetchCommand(bg, "key", "")
	assert.ErrorIs(t, err, ErrAuthNameRequired)

	ctx.Config.Auth = "missing"
	_, err = ctx.FetchCommand(bg, "key", "")
	assert.ErrorIs(t, err, common.ErrUnknownHandle)

	addMemoryAuth(t, ctx, "mem")
	_, err = ctx.FetchCommand(bg, "http://nothinghere/", "")
	assert.Equal(t, "Unreachable", common.Kind(err))

	_, err = ctx.FetchCommand(bg, "absent.txt", "")
	assert.Equal(t, "NotFound", common.Kind(err))

	ctx.Config.StorageType = "webdav"
	_, err = ctx.FetchCommand(bg, "absent.txt", "")
	assert.ErrorIs(t, err, common.ErrUnknownBackend)
}
