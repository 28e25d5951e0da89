package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Handlers receive events for one watched window. They run on the event
// loop goroutine and must not block. Nil fields are skipped.
type Handlers struct {
	// Configured reports the frame position and client size after a move or
	// resize.
	Configured func(x, y, width, height int)
	Focus      func(focused bool)
	Destroyed  func()
}

// Watch subscribes to structure and focus events of windowID.
func (c *Connection) Watch(windowID xproto.Window, h Handlers) error {
	win := xwindow.New(c.XUtil, windowID)
	if err := win.Listen(xproto.EventMaskStructureNotify, xproto.EventMaskFocusChange); err != nil {
		return err
	}

	if h.Configured != nil {
		xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
			// Event coordinates are parent relative once the WM reparents
			// the window, so ask for the frame position instead.
			x, y, err := c.FramePosition(windowID)
			if err != nil {
				return
			}
			h.Configured(x, y, int(ev.Width), int(ev.Height))
		}).Connect(c.XUtil, windowID)
	}

	if h.Focus != nil {
		xevent.FocusInFun(func(xu *xgbutil.XUtil, ev xevent.FocusInEvent) {
			if ignoreFocus(ev.Mode, ev.Detail) {
				return
			}
			h.Focus(true)
		}).Connect(c.XUtil, windowID)
		xevent.FocusOutFun(func(xu *xgbutil.XUtil, ev xevent.FocusOutEvent) {
			if ignoreFocus(ev.Mode, ev.Detail) {
				return
			}
			h.Focus(false)
		}).Connect(c.XUtil, windowID)
	}

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if ev.Window != windowID {
			return
		}
		xevent.Detach(xu, windowID)
		if h.Destroyed != nil {
			h.Destroyed()
		}
	}).Connect(c.XUtil, windowID)

	return nil
}

// Unwatch drops every handler registered for windowID.
func (c *Connection) Unwatch(windowID xproto.Window) {
	xevent.Detach(c.XUtil, windowID)
}

// ignoreFocus filters focus changes caused by keyboard grabs and pointer
// crossings, which do not change the active window.
func ignoreFocus(mode, detail byte) bool {
	if mode == xproto.NotifyModeGrab || mode == xproto.NotifyModeUngrab {
		return true
	}
	return detail == xproto.NotifyDetailPointer
}
