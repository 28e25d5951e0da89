package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xprop"
)

const opacityAtom = "_NET_WM_WINDOW_OPACITY"

// SetOpacity sets the compositor opacity of a window. 255 removes the
// property, which compositors treat as opaque.
func (c *Connection) SetOpacity(windowID xproto.Window, alpha uint8) error {
	if alpha == 255 {
		atom, err := xprop.Atm(c.XUtil, opacityAtom)
		if err != nil {
			return err
		}
		return xproto.DeletePropertyChecked(c.XUtil.Conn(), windowID, atom).Check()
	}
	// The property is a 32-bit fraction of fully opaque.
	value := uint(alpha) * 0x01010101
	if err := xprop.ChangeProp32(c.XUtil, windowID, opacityAtom, "CARDINAL", value); err != nil {
		return fmt.Errorf("failed to set opacity: %w", err)
	}
	return nil
}

// SetAbove keeps a window above normal windows.
func (c *Connection) SetAbove(windowID xproto.Window, on bool) error {
	return c.setState(windowID, "_NET_WM_STATE_ABOVE", on)
}

// SetSkipTaskbar hides a window from taskbars and pagers.
func (c *Connection) SetSkipTaskbar(windowID xproto.Window, on bool) error {
	if err := c.setState(windowID, "_NET_WM_STATE_SKIP_TASKBAR", on); err != nil {
		return err
	}
	return c.setState(windowID, "_NET_WM_STATE_SKIP_PAGER", on)
}

func (c *Connection) setState(windowID xproto.Window, state string, on bool) error {
	action := ewmh.StateRemove
	if on {
		action = ewmh.StateAdd
	}
	if err := ewmh.WmStateReq(c.XUtil, windowID, action, state); err != nil {
		return fmt.Errorf("failed to update %s: %w", state, err)
	}
	return nil
}

// SetInputPassthrough lets pointer events fall through the window by giving
// it an empty input shape. Turning it off restores the default shape.
func (c *Connection) SetInputPassthrough(windowID xproto.Window, on bool) error {
	if !c.hasShape {
		return fmt.Errorf("X server has no SHAPE extension")
	}
	conn := c.XUtil.Conn()
	if on {
		return shape.RectanglesChecked(conn, shape.SoSet, shape.SkInput,
			xproto.ClipOrderingUnsorted, windowID, 0, 0, nil).Check()
	}
	return shape.MaskChecked(conn, shape.SoSet, shape.SkInput,
		windowID, 0, 0, xproto.PixmapNone).Check()
}

// SetDecorated asks the WM to draw or drop the title bar and borders.
func (c *Connection) SetDecorated(windowID xproto.Window, on bool) error {
	hints := &motif.Hints{Flags: motif.HintDecorations, Decoration: motif.DecorationNone}
	if on {
		hints.Decoration = motif.DecorationAll
	}
	return motif.WmHintsSet(c.XUtil, windowID, hints)
}

// SetSizeLimits sets the minimum client size. With fixed set the window is
// also limited to that size, which disables resizing in most WMs.
func (c *Connection) SetSizeLimits(windowID xproto.Window, minWidth, minHeight int, fixed bool) error {
	hints := &icccm.NormalHints{
		Flags:     icccm.SizeHintPMinSize,
		MinWidth:  uint(minWidth),
		MinHeight: uint(minHeight),
	}
	if fixed {
		hints.Flags |= icccm.SizeHintPMaxSize
		hints.MaxWidth = uint(minWidth)
		hints.MaxHeight = uint(minHeight)
	}
	return icccm.WmNormalHintsSet(c.XUtil, windowID, hints)
}
