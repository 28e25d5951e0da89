package hotkeys

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/relais/internal/config"
	"github.com/1broseidon/relais/internal/x11"
)

// releaseTimeout bounds one shortcut press.
const releaseTimeout = 10 * time.Second

// Releaser turns pointer passthrough off on every window.
type Releaser interface {
	ReleaseAll(ctx context.Context) (int, error)
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu       *xgbutil.XUtil
	root     xproto.Window
	releaser Releaser

	mu      sync.Mutex
	current string
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler.
func NewHandler(conn *x11.Connection, releaser Releaser) *Handler {
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})

	return &Handler{
		xu:       conn.XUtil,
		root:     conn.Root,
		releaser: releaser,
	}
}

// Register binds the release shortcut, replacing any previous binding.
// shortcut uses the config syntax, e.g. "ctrl+alt+r".
func (h *Handler) Register(shortcut string) error {
	sc, err := config.ParseShortcut(shortcut)
	if err != nil {
		return err
	}
	seq := sc.Keybind()

	h.mu.Lock()
	defer h.mu.Unlock()
	if seq == h.current {
		return nil
	}
	if h.current != "" {
		keybind.Detach(h.xu, h.root)
		h.current = ""
	}
	if err := h.registerFunc(seq, h.release); err != nil {
		return fmt.Errorf("failed to register shortcut %q: %w", shortcut, err)
	}
	h.current = seq
	log.Printf("Release shortcut registered: %s", shortcut)
	return nil
}

func (h *Handler) release() {
	// Key callbacks run on the X event loop, which the release waits on.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		n, err := h.releaser.ReleaseAll(ctx)
		if err != nil {
			log.Printf("Release shortcut failed: %v", err)
			return
		}
		log.Printf("Release shortcut: pointer passthrough released on %d window(s)", n)
	}()
}

func (h *Handler) registerFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// configureIgnoreMods lets shortcuts fire regardless of lock key state.
func configureIgnoreMods(xu *xgbutil.XUtil) {
	locks := []uint16{uint16(xproto.ModMaskLock)}
	for _, keysym := range []string{"Num_Lock", "Scroll_Lock"} {
		if mask := modMaskForKeysym(xu, keysym); mask != 0 {
			locks = append(locks, mask)
		}
	}
	xevent.IgnoreMods = lockCombinations(locks)
}

// lockCombinations returns every OR-combination of the distinct masks,
// including zero.
func lockCombinations(masks []uint16) []uint16 {
	var unique []uint16
	seen := make(map[uint16]bool)
	for _, m := range masks {
		if m != 0 && !seen[m] {
			seen[m] = true
			unique = append(unique, m)
		}
	}

	out := make([]uint16, 0, 1<<len(unique))
	for subset := 0; subset < 1<<len(unique); subset++ {
		var mask uint16
		for bit, m := range unique {
			if subset&(1<<bit) != 0 {
				mask |= m
			}
		}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
