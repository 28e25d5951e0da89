package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// Monitor represents a physical display
type Monitor struct {
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

func (m Monitor) contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// Monitors retrieves all active monitors using XRandR
func (c *Connection) Monitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}
	return monitors, nil
}

// PointerMonitor returns the monitor under the mouse cursor, falling back to
// the first monitor.
func (c *Connection) PointerMonitor() (Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return Monitor{}, err
	}
	if len(monitors) == 0 {
		return Monitor{}, fmt.Errorf("no monitors found")
	}

	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return monitors[0], nil
	}
	return monitorAt(monitors, int(pointer.RootX), int(pointer.RootY)), nil
}

func monitorAt(monitors []Monitor, x, y int) Monitor {
	for _, m := range monitors {
		if m.contains(x, y) {
			return m
		}
	}
	return monitors[0]
}

// Centered returns the top-left corner that centers a width x height window
// on m, kept inside the monitor when the window is larger.
func (m Monitor) Centered(width, height int) (x, y int) {
	x = m.X + (m.Width-width)/2
	y = m.Y + (m.Height-height)/2
	if x < m.X {
		x = m.X
	}
	if y < m.Y {
		y = m.Y
	}
	return x, y
}
