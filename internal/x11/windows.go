package x11

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ErrWindowNotFound is returned when no client window matches a title.
var ErrWindowNotFound = errors.New("window not found")

// FindWindowByTitle searches the EWMH client list for a window whose
// _NET_WM_NAME contains the given substring. Returns the first match.
func (c *Connection) FindWindowByTitle(substring string) (xproto.Window, error) {
	if substring == "" {
		return 0, fmt.Errorf("%w: empty title", ErrWindowNotFound)
	}
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get client list: %w", err)
	}
	for _, win := range clients {
		name, err := ewmh.WmNameGet(c.XUtil, win)
		if err != nil {
			continue
		}
		if strings.Contains(name, substring) {
			return win, nil
		}
	}
	return 0, fmt.Errorf("%w: no title containing %q", ErrWindowNotFound, substring)
}

// WaitForWindow polls FindWindowByTitle until a match appears or ctx is done.
func (c *Connection) WaitForWindow(ctx context.Context, substring string, poll time.Duration) (xproto.Window, error) {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		win, err := c.FindWindowByTitle(substring)
		if err == nil {
			return win, nil
		}
		if !errors.Is(err, ErrWindowNotFound) {
			return 0, err
		}
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("waiting for window %q: %w", substring, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Exists reports whether windowID is still a valid window.
func (c *Connection) Exists(windowID xproto.Window) bool {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// FramePosition returns the root coordinates of the window's frame, or of
// the window itself when it is not decorated.
func (c *Connection) FramePosition(windowID xproto.Window) (x, y int, err error) {
	geom, err := xwindow.New(c.XUtil, windowID).DecorGeometry()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get frame geometry: %w", err)
	}
	return geom.X(), geom.Y(), nil
}

// ClientSize returns the size of the window without decorations.
func (c *Connection) ClientSize(windowID xproto.Window) (width, height int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get geometry: %w", err)
	}
	return int(geom.Width), int(geom.Height), nil
}

// MoveWindow moves the window frame to root coordinates x, y.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	// Use EWMH for better WM compatibility, with a direct fallback.
	if err := ewmh.MoveWindow(c.XUtil, windowID, x, y); err != nil {
		xwindow.New(c.XUtil, windowID).Move(x, y)
	}
	return nil
}

// ResizeWindow sets the client size of a window.
func (c *Connection) ResizeWindow(windowID xproto.Window, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}
	if err := ewmh.ResizeWindow(c.XUtil, windowID, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).Resize(width, height)
	}
	return nil
}

// MapWindow shows a window. With activate unset the window manager is asked
// not to give it focus.
func (c *Connection) MapWindow(windowID xproto.Window, activate bool) error {
	if !activate {
		// A user time of zero asks the WM not to focus the window on map.
		if err := ewmh.WmUserTimeSet(c.XUtil, windowID, 0); err != nil {
			return fmt.Errorf("failed to set user time: %w", err)
		}
	}
	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// UnmapWindow hides a window.
func (c *Connection) UnmapWindow(windowID xproto.Window) error {
	return xproto.UnmapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// IsViewable reports whether the window is mapped and all its ancestors are.
func (c *Connection) IsViewable(windowID xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// The message is built manually because the xgbutil ewmh request helpers
// panic on this library version.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	const sourceIndication = 2 // pager/direct action
	return c.sendRootMessage(windowID, "_NET_ACTIVE_WINDOW", []uint32{sourceIndication})
}

// ActiveWindow returns the window that currently has focus.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// MinimizeWindow iconifies a window via WM_CHANGE_STATE.
func (c *Connection) MinimizeWindow(windowID xproto.Window) error {
	const iconicState = 3
	return c.sendRootMessage(windowID, "WM_CHANGE_STATE", []uint32{iconicState})
}

// IsMinimized reports whether the window carries _NET_WM_STATE_HIDDEN.
func (c *Connection) IsMinimized(windowID xproto.Window) bool {
	return c.hasState(windowID, "_NET_WM_STATE_HIDDEN")
}

func (c *Connection) hasState(windowID xproto.Window, state string) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}
