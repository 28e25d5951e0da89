package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchSettle = 100 * time.Millisecond

// Store guards the config of a running daemon. Its lock is independent of
// the window registry.
type Store struct {
	path string

	mu       sync.RWMutex
	cfg      *Config
	lastHash [sha256.Size]byte
	repairs  []error
}

// Open loads path into a Store. On first run the parent directory and an
// empty file are created, then the defaults are written into it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create config directory: %v", ErrIO, err)
	}

	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrIO, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}
	cfg, repairs, err := parseRepaired(data)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, cfg: cfg, lastHash: contentHash(data), repairs: repairs}
	if len(bytes.TrimSpace(data)) == 0 {
		if err := s.Save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Repairs describes the saved windows Open clamped or dropped.
func (s *Store) Repairs() []error {
	return append([]error(nil), s.repairs...)
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Read returns a deep copy of the current config.
func (s *Store) Read() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg.Clone()
}

// Update mutates the in-memory config. It does not save.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
}

// SetWindows replaces the saved window list in memory.
func (s *Store) SetWindows(entries []WindowEntry) {
	s.Update(func(c *Config) {
		c.Windows = append([]WindowEntry{}, entries...)
	})
}

// Save validates and atomically writes the config to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cfg.Validate(); err != nil {
		return err
	}
	data, err := encode(s.cfg)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}
	s.lastHash = contentHash(data)
	return nil
}

// Reload rereads the global settings from disk. The in-memory window list is
// kept; the running registry owns it.
func (s *Store) Reload() error {
	_, err := s.reload(false)
	return err
}

// reload returns changed=false when the file content matches the last read or
// write. With skipSame unset the settings are always reapplied.
func (s *Store) reload(skipSame bool) (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", ErrIO, s.path, err)
	}
	hash := contentHash(data)

	s.mu.RLock()
	same := hash == s.lastHash
	s.mu.RUnlock()
	if skipSame && same {
		return false, nil
	}

	// Saved windows in the file are ignored here, so they cannot fail a
	// settings reload.
	next, _, err := parseRepaired(data)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	next.Windows = s.cfg.Windows
	s.cfg = next
	s.lastHash = hash
	s.mu.Unlock()
	return true, nil
}

// Watch reloads global settings whenever the file is changed by another
// process and calls onChange with the new config. Writes made through Save
// are recognized by content hash and ignored. Blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger, onChange func(Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic saves replace the file's inode.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			settle = time.After(watchSettle)
		case <-settle:
			settle = nil
			changed, err := s.reload(true)
			if err != nil {
				if errors.Is(err, ErrIO) {
					logger.Debug("config reload skipped", "error", err)
				} else {
					logger.Warn("ignoring invalid config edit", "path", s.path, "error", err)
				}
				continue
			}
			if changed {
				logger.Info("config reloaded", "path", s.path)
				if onChange != nil {
					onChange(s.Read())
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
