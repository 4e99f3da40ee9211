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
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/authstore"
	"github.com/jeremyhahn/go-extstore/pkg/awss3"
	"github.com/jeremyhahn/go-extstore/pkg/common"
	"github.com/jeremyhahn/go-extstore/pkg/factory"
)

// CommandContext holds the context for executing commands.
type CommandContext struct {
	Config   *Config
	Store    *authstore.FileStore
	Registry *factory.Registry
	Logger   adapters.Logger

	// Stdin and Stdout back the "-" file argument.
	Stdin  io.Reader
	Stdout io.Writer
}

// NewCommandContext opens the credential store and builds the backend
// registry from the configuration.
func NewCommandContext(cfg *Config) (*CommandContext, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger := adapters.NewLogger(os.Stderr, adapters.ParseLogLevel(cfg.LogLevel), cfg.LogFormat)

	store, err := authstore.Open(cfg.AuthFile, authstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open auth store: %w", err)
	}

	s3Opts := awss3.DefaultOptions()
	s3Opts.Timeout = cfg.Timeout
	s3Opts.Logger = logger

	registry := factory.NewRegistry(factory.Dependencies{
		Resolver: store,
		Logger:   logger,
		S3:       s3Opts,
	})

	return &CommandContext{
		Config:   cfg,
		Store:    store,
		Registry: registry,
		Logger:   logger,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
	}, nil
}

// Close closes the command context and cleans up resources.
func (ctx *CommandContext) Close() error {
	if ctx.Store != nil {
		return ctx.Store.Close()
	}
	return nil
}

// ParseSettings turns key=value pairs into an auth config map.
func ParseSettings(pairs []string) (map[string]string, error) {
	settings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSetting, pair)
		}
		settings[strings.TrimSpace(k)] = v
	}
	return settings, nil
}

// AuthAddCommand validates and persists a named auth config.
func (ctx *CommandContext) AuthAddCommand(name, storageType string, settings map[string]string) (*common.AuthConfig, error) {
	cfg := common.NewAuthConfig(storageType)
	cfg.SetName(name)
	for k, v := range settings {
		cfg.Set(k, v)
	}
	if _, err := ctx.Store.Store(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AuthListCommand describes every stored auth config without secrets.
func (ctx *CommandContext) AuthListCommand() ([]AuthInfo, error) {
	names := ctx.Store.Names()
	infos := make([]AuthInfo, 0, len(names))
	for _, name := range names {
		cfg, err := ctx.Store.ByName(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, describe(ctx.Store.CredentialStore, cfg))
	}
	return infos, nil
}

// AuthCheckCommand reports whether the named config is valid and which
// required keys it lacks.
func (ctx *CommandContext) AuthCheckCommand(name string) (*AuthInfo, []string, error) {
	cfg, err := ctx.Store.ByName(name)
	if err != nil {
		return nil, nil, err
	}
	info := describe(ctx.Store.CredentialStore, cfg)
	return &info, ctx.Store.Missing(cfg), nil
}

func describe(store *authstore.CredentialStore, cfg *common.AuthConfig) AuthInfo {
	keys := make([]string, 0, len(cfg.Config))
	for k := range cfg.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return AuthInfo{
		Name:        cfg.Name,
		Handle:      cfg.Handle().String(),
		StorageType: cfg.StorageType,
		Keys:        keys,
		Valid:       store.IsValid(cfg),
	}
}

// BackendsCommand lists the storage types that can be resolved.
func (ctx *CommandContext) BackendsCommand() []string {
	return ctx.Registry.Types()
}

// session builds a session from the configured endpoint, bucket, and
// auth config name.
func (ctx *CommandContext) session() (common.Backend, *common.Session, error) {
	if err := ValidateObjectConfig(ctx.Config); err != nil {
		return nil, nil, err
	}
	cfg, err := ctx.Store.ByName(ctx.Config.Auth)
	if err != nil {
		return nil, nil, err
	}
	storageType := ctx.Config.StorageType
	if storageType == "" {
		storageType = cfg.StorageType
	}
	backend, err := ctx.Registry.BackendFor(storageType)
	if err != nil {
		return nil, nil, err
	}
	session, err := backend.Configure(ctx.Config.Host, ctx.Config.Port, ctx.Config.Bucket, cfg.Handle())
	if err != nil {
		return nil, nil, err
	}
	return backend, session, nil
}

// FetchCommand downloads locator to outputPath, or stdout when outputPath
// is empty or "-". It returns the number of bytes written.
func (ctx *CommandContext) FetchCommand(c context.Context, locator, outputPath string) (int, error) {
	backend, session, err := ctx.session()
	if err != nil {
		return 0, err
	}

	data, err := backend.Fetch(c, common.ResourceLocator(locator), session)
	if err != nil {
		return 0, err
	}

	if outputPath == "" || outputPath == "-" {
		return ctx.Stdout.Write(data)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil { // #nosec G306 -- downloaded objects are user files
		return 0, err
	}
	return len(data), nil
}

// StoreCommand uploads filePath, or stdin when filePath is empty or "-",
// to locator. It returns the number of bytes uploaded.
func (ctx *CommandContext) StoreCommand(c context.Context, filePath, locator string) (int, error) {
	backend, session, err := ctx.session()
	if err != nil {
		return 0, err
	}

	var data []byte
	if filePath == "" || filePath == "-" {
		data, err = io.ReadAll(ctx.Stdin)
	} else {
		data, err = os.ReadFile(filePath) // #nosec G304 -- User-provided path for CLI file operations, intended behavior
	}
	if err != nil {
		return 0, err
	}

	if err := backend.Store(c, common.ResourceLocator(locator), data, session); err != nil {
		return 0, err
	}
	return len(data), nil
}

// SizeMessage renders n bytes for status lines.
func SizeMessage(n int) string {
	return formatSize(int64(n))
}
