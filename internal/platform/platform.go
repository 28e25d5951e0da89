// Package platform describes the OS window and browser primitives the pair
// manager is written against.
package platform

import (
	"context"
	"errors"
)

// ErrClosed is returned by window operations after the window has gone away.
var ErrClosed = errors.New("window closed")

// Point is a position in physical screen pixels.
type Point struct {
	X int
	Y int
}

// Sub returns p translated by -d.
func (p Point) Sub(d Point) Point { return Point{X: p.X - d.X, Y: p.Y - d.Y} }

// Add returns p translated by d.
func (p Point) Add(d Point) Point { return Point{X: p.X + d.X, Y: p.Y + d.Y} }

// Size is an outer window size in physical pixels.
type Size struct {
	Width  int
	Height int
}

// WindowOptions describes a window to open.
type WindowOptions struct {
	Label string
	Title string
	URL   string

	// Control marks the small button strip paired with a content window.
	Control bool

	Size        Size
	MinSize     Size
	Position    *Point
	Decorations bool
	Resizable   bool
	SkipTaskbar bool
	Visible     bool
}

// Window is a handle to one native window. Implementations must be safe to
// call from any goroutine.
type Window interface {
	Label() string
	Position() (Point, error)
	SetPosition(Point) error
	Size() (Size, error)
	SetSize(Size) error
	Show() error
	// ShowInactive maps the window without taking keyboard focus.
	ShowInactive() error
	Hide() error
	Close() error
	Focus() error
	IsFocused() bool
	IsVisible() bool
	Minimize() error
	IsMinimized() bool
	Unminimize() error
}

// Runtime opens windows and reports which ones still exist.
type Runtime interface {
	Open(ctx context.Context, opts WindowOptions) (Window, error)
	// Alive returns the labels of every window the runtime still knows about.
	Alive() ([]string, error)
}

// Styler applies window styles. Every call is idempotent.
type Styler interface {
	// SetTransparent applies alpha to the window; 255 is fully opaque.
	SetTransparent(w Window, alpha uint8) error
	SetPin(w Window, on bool) error
	SetPointerIgnore(w Window, on bool) error
	// SetZoom sets the page scale; 1.0 is 100%.
	SetZoom(w Window, scale float64) error
}

// Browser controls the page hosted by a content window.
type Browser interface {
	// SetUserAgent overrides the user agent and reloads the page.
	SetUserAgent(w Window, ua string) error
}
