// Package persist moves the window registry in and out of the config file.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/relais/internal/config"
	"github.com/1broseidon/relais/internal/pair"
	"github.com/1broseidon/relais/internal/window"
)

// Snapshotter provides the current registry contents.
type Snapshotter interface {
	Snapshot() []window.Entry
}

// Restorer recreates saved pairs and reports registry changes.
type Restorer interface {
	Restore(ctx context.Context, entries []window.Entry, applyState bool) ([]string, error)
	Subscribe() (<-chan struct{}, func())
}

// Bridge saves registry snapshots through a config store and restores them.
type Bridge struct {
	store  *config.Store
	reg    Snapshotter
	mgr    Restorer
	logger *slog.Logger

	// unrestored holds saved windows that failed to restore. They are saved
	// again after the live windows until a window with the same label exists.
	mu         sync.Mutex
	unrestored []config.WindowEntry
}

// NewBridge creates a bridge.
func NewBridge(store *config.Store, reg Snapshotter, mgr Restorer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{store: store, reg: reg, mgr: mgr, logger: logger}
}

// Save writes the current registry and global settings to disk. Saved
// windows that failed to restore are kept after the live ones.
func (b *Bridge) Save() error {
	live := ToConfig(b.reg.Snapshot())
	b.store.SetWindows(append(live, b.keptUnrestored(live)...))
	if err := b.store.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// LoadAndRestore recreates every saved window in stored order. Entries that
// fail are skipped; the joined error describes them.
func (b *Bridge) LoadAndRestore(ctx context.Context) error {
	cfg := b.store.Read()
	if len(cfg.Windows) == 0 {
		return nil
	}

	labels, err := b.mgr.Restore(ctx, FromConfig(cfg.Windows), cfg.GetRestoreState())
	b.logger.Info("restored windows",
		"restored", len(labels),
		"saved", len(cfg.Windows),
		"with_state", cfg.GetRestoreState())

	restored := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		restored[label] = struct{}{}
	}
	var failed []config.WindowEntry
	for _, w := range cfg.Windows {
		if _, ok := restored[w.Label]; ok || !restorable(w) {
			continue
		}
		failed = append(failed, w)
	}
	if len(failed) > 0 {
		b.logger.Warn("keeping saved windows that failed to restore", "count", len(failed))
	}
	b.mu.Lock()
	b.unrestored = failed
	b.mu.Unlock()
	return err
}

// restorable reports whether a saved window could be restored on a later
// start. Entries with a bad URL or a reserved label never can.
func restorable(w config.WindowEntry) bool {
	if window.IsCtrlLabel(w.Label) {
		return false
	}
	_, err := pair.NormalizeURL(w.URL)
	return err == nil
}

// keptUnrestored returns the unrestored windows whose label is not taken by
// a live window. Taken labels are forgotten.
func (b *Bridge) keptUnrestored(live []config.WindowEntry) []config.WindowEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.unrestored) == 0 {
		return nil
	}
	taken := make(map[string]struct{}, len(live))
	for _, w := range live {
		taken[w.Label] = struct{}{}
	}
	kept := b.unrestored[:0]
	for _, w := range b.unrestored {
		if _, ok := taken[w.Label]; !ok {
			kept = append(kept, w)
		}
	}
	b.unrestored = kept
	return append([]config.WindowEntry(nil), kept...)
}

// Run saves after every burst of registry changes once the registry has been
// quiet for autosave_delay_ms. A pending save is flushed when ctx ends.
func (b *Bridge) Run(ctx context.Context) {
	changes, unsubscribe := b.mgr.Subscribe()
	defer unsubscribe()

	var fire <-chan time.Time
	pending := false
	for {
		select {
		case <-ctx.Done():
			if pending {
				b.autosave()
			}
			return
		case <-changes:
			pending = true
			fire = time.After(b.delay())
		case <-fire:
			fire = nil
			pending = false
			b.autosave()
		}
	}
}

func (b *Bridge) delay() time.Duration {
	ms := b.store.Read().AutosaveDelayMS
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (b *Bridge) autosave() {
	cfg := b.store.Read()
	if !cfg.GetAutosave() {
		return
	}
	if err := b.Save(); err != nil {
		b.logger.Error("autosave failed", "path", b.store.Path(), "error", err)
		return
	}
	b.logger.Debug("autosaved", "path", b.store.Path())
}

// ToConfig converts registry entries to their saved form.
func ToConfig(entries []window.Entry) []config.WindowEntry {
	out := make([]config.WindowEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, config.WindowEntry{
			Label:         e.Label,
			Title:         e.Title,
			URL:           e.URL,
			Pin:           e.Pin,
			Transparent:   e.Transparent,
			Alpha:         intPtr(int(e.Alpha)),
			PointerIgnore: e.PointerIgnore,
			MobileMode:    e.MobileMode,
			Zoom:          e.Zoom,
		})
	}
	return out
}

// FromConfig converts saved entries to registry entries.
func FromConfig(saved []config.WindowEntry) []window.Entry {
	out := make([]window.Entry, 0, len(saved))
	for _, w := range saved {
		alpha := int(window.DefaultAlpha)
		if w.Alpha != nil {
			alpha = *w.Alpha
		}
		if alpha < 0 {
			alpha = 0
		} else if alpha > 255 {
			alpha = 255
		}
		out = append(out, window.Entry{
			Label: w.Label,
			Title: w.Title,
			URL:   w.URL,
			Status: window.Status{
				Pin:           w.Pin,
				Transparent:   w.Transparent,
				Alpha:         uint8(alpha),
				PointerIgnore: w.PointerIgnore,
				MobileMode:    w.MobileMode,
				Zoom:          w.Zoom,
			},
		})
	}
	return out
}

func intPtr(v int) *int { return &v }
