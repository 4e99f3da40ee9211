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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// DefaultFileName is used when Open is given a directory.
const DefaultFileName = ".extstore-auth.json"

// ErrWatcherRunning is returned when Watch is called twice.
var ErrWatcherRunning = errors.New("watcher already running")

// persistedConfigs is the on-disk layout.
type persistedConfigs struct {
	Configs []*common.AuthConfig `json:"configs"`
}

// FileStore is a CredentialStore persisted to a JSON file. Every accepted Store call
// rewrites the file atomically (temp file + rename, mode 0600).
type FileStore struct {
	*CredentialStore

	path          string
	debounceDelay time.Duration

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Open loads the store at path, creating nothing until the first Store.
// A missing file is an empty store. If path is a directory, DefaultFileName
// inside it is used.
func Open(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: auth file path not set", common.ErrInvalidConfig)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}

	fs := &FileStore{
		CredentialStore: New(opts...),
		path:            path,
		debounceDelay:   100 * time.Millisecond,
	}
	fs.CredentialStore.persist = fs.save

	if err := fs.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return fs, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Reload replaces the in-memory configs with the file contents.
func (f *FileStore) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	var persisted persistedConfigs
	if len(data) > 0 {
		if err := json.Unmarshal(data, &persisted); err != nil {
			return fmt.Errorf("decode %s: %w", f.path, err)
		}
	}
	f.CredentialStore.replace(persisted.Configs)
	return nil
}

// save writes configs to disk. Called by Store under its write lock.
func (f *FileStore) save(configs []*common.AuthConfig) error {
	data, err := json.MarshalIndent(persistedConfigs{Configs: configs}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}

// Watch reloads the store whenever another process rewrites the file.
// It watches the parent directory so atomic replacements are seen. The
// watcher stops when ctx is cancelled or Close is called.
func (f *FileStore) Watch(ctx context.Context) error {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()

	if f.watcher != nil {
		return ErrWatcherRunning
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	f.watcher = watcher
	f.cancel = cancel

	f.wg.Add(1)
	go f.processEvents(ctx, watcher)
	return nil
}

func (f *FileStore) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer f.wg.Done()

	target := filepath.Clean(f.path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Editors and atomic writers emit bursts; reload once per burst.
			if timer == nil {
				timer = time.NewTimer(f.debounceDelay)
			} else {
				timer.Reset(f.debounceDelay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if err := f.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
				f.logger.Warn(ctx, "auth file reload failed",
					adapters.F("path", f.path), adapters.F("error", err.Error()))
				continue
			}
			f.logger.Debug(ctx, "auth file reloaded",
				adapters.F("path", f.path), adapters.F("configs", f.Len()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn(ctx, "auth file watcher error", adapters.F("error", err.Error()))
		}
	}
}

// Close stops the watcher, if any.
func (f *FileStore) Close() error {
	f.watchMu.Lock()
	watcher := f.watcher
	cancel := f.cancel
	f.watcher = nil
	f.cancel = nil
	f.watchMu.Unlock()

	if watcher == nil {
		return nil
	}
	cancel()
	err := watcher.Close()
	f.wg.Wait()
	return err
}
