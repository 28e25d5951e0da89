// Package x11 applies window styles and reports window events for the
// browser windows relais opens.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	// hasShape reports whether the SHAPE extension is available. Pointer
	// passthrough needs it.
	hasShape bool
}

// NewConnection establishes a connection to the X11 server and initializes required extensions
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	return &Connection{
		XUtil:    xu,
		Root:     xu.RootWin(),
		hasShape: shape.Init(xu.Conn()) == nil,
	}, nil
}

// HasShape reports whether input shaping is supported by the server.
func (c *Connection) HasShape() bool {
	return c.hasShape
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops EventLoop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

func (c *Connection) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return reply.Atom, nil
}

// sendRootMessage sends an EWMH client message about windowID to the root
// window.
func (c *Connection) sendRootMessage(windowID xproto.Window, atomName string, data []uint32) error {
	atom, err := c.atom(atomName)
	if err != nil {
		return err
	}
	for len(data) < 5 {
		data = append(data, 0)
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(data),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
