//go:build linux

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/relais/internal/browser"
	"github.com/1broseidon/relais/internal/x11"
)

// findTimeout bounds the wait for a new browser window to be mapped.
const findTimeout = 10 * time.Second

// LinuxRuntime opens browser windows through a browser.Host and manages
// them as X11 windows.
type LinuxRuntime struct {
	conn   *x11.Connection
	host   *browser.Host
	logger *slog.Logger

	mu      sync.Mutex
	sink    Sink
	windows map[string]*linuxWindow
}

var (
	_ Runtime = (*LinuxRuntime)(nil)
	_ Styler  = (*LinuxRuntime)(nil)
	_ Browser = (*LinuxRuntime)(nil)
)

// NewLinuxRuntime creates a runtime from an X11 connection and a running
// browser host. Events are dropped until SetSink is called.
func NewLinuxRuntime(conn *x11.Connection, host *browser.Host, logger *slog.Logger) *LinuxRuntime {
	if logger == nil {
		logger = slog.Default()
	}
	r := &LinuxRuntime{
		conn:    conn,
		host:    host,
		logger:  logger,
		windows: make(map[string]*linuxWindow),
	}
	host.OnAction(func(label, action string) {
		r.currentSink().PostAction(label, action)
	})
	host.OnClosed(func(label string) {
		r.currentSink().PostEvent(Event{Label: label, Kind: EventCloseRequested})
	})
	return r
}

// SetSink sets where window events and control actions are delivered.
func (r *LinuxRuntime) SetSink(s Sink) {
	r.mu.Lock()
	r.sink = s
	r.mu.Unlock()
}

func (r *LinuxRuntime) currentSink() Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sink == nil {
		return SinkFuncs{}
	}
	return r.sink
}

// HideHostWindow hides the window the browser opened at startup.
func (r *LinuxRuntime) HideHostWindow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, findTimeout)
	defer cancel()
	xid, err := r.conn.WaitForWindow(ctx, browser.MarkerTitle(browser.HostLabel), 0)
	if err != nil {
		return err
	}
	if err := r.conn.SetSkipTaskbar(xid, true); err != nil {
		r.logger.Debug("failed to hide host window from taskbar", "error", err)
	}
	return r.conn.MinimizeWindow(xid)
}

// Open creates a browser window, finds its X11 window and applies opts.
func (r *LinuxRuntime) Open(ctx context.Context, opts WindowOptions) (Window, error) {
	page, err := r.host.Open(ctx, opts.Label, opts.Control, opts.Size.Width, opts.Size.Height)
	if err != nil {
		return nil, err
	}

	findCtx, cancel := context.WithTimeout(ctx, findTimeout)
	xid, err := r.conn.WaitForWindow(findCtx, browser.MarkerTitle(opts.Label), 0)
	cancel()
	if err != nil {
		page.Close()
		return nil, err
	}

	w := &linuxWindow{rt: r, label: opts.Label, page: page, xid: xid}
	if err := r.configure(ctx, w, opts); err != nil {
		page.Close()
		return nil, err
	}

	r.mu.Lock()
	r.windows[opts.Label] = w
	r.mu.Unlock()
	return w, nil
}

func (r *LinuxRuntime) configure(ctx context.Context, w *linuxWindow, opts WindowOptions) error {
	c := r.conn
	if !opts.Decorations {
		if err := c.SetDecorated(w.xid, false); err != nil {
			r.logger.Debug("failed to drop decorations", "label", w.label, "error", err)
		}
	}
	if opts.SkipTaskbar {
		if err := c.SetSkipTaskbar(w.xid, true); err != nil {
			r.logger.Debug("failed to skip taskbar", "label", w.label, "error", err)
		}
	}
	minSize := opts.MinSize
	if !opts.Resizable {
		minSize = opts.Size
	}
	if minSize.Width > 0 && minSize.Height > 0 {
		if err := c.SetSizeLimits(w.xid, minSize.Width, minSize.Height, !opts.Resizable); err != nil {
			r.logger.Debug("failed to set size limits", "label", w.label, "error", err)
		}
	}
	if opts.Size.Width > 0 && opts.Size.Height > 0 {
		if err := c.ResizeWindow(w.xid, opts.Size.Width, opts.Size.Height); err != nil {
			return fmt.Errorf("resize %s: %w", w.label, err)
		}
	}

	pos := opts.Position
	if pos == nil {
		if mon, err := c.PointerMonitor(); err == nil {
			x, y := mon.Centered(opts.Size.Width, opts.Size.Height)
			pos = &Point{X: x, Y: y}
		}
	}
	if pos != nil {
		if err := c.MoveWindow(w.xid, pos.X, pos.Y); err != nil {
			return fmt.Errorf("move %s: %w", w.label, err)
		}
	}

	if err := c.Watch(w.xid, r.handlers(w.label)); err != nil {
		return fmt.Errorf("watch %s: %w", w.label, err)
	}

	if opts.Control {
		if err := w.page.ShowControls(ctx); err != nil {
			c.Unwatch(w.xid)
			return err
		}
	} else if opts.URL != "" {
		if err := w.page.Navigate(ctx, opts.URL); err != nil {
			c.Unwatch(w.xid)
			return err
		}
	}

	if !opts.Visible {
		return c.UnmapWindow(w.xid)
	}
	return nil
}

func (r *LinuxRuntime) handlers(label string) x11.Handlers {
	return x11.Handlers{
		Configured: func(x, y, width, height int) {
			sink := r.currentSink()
			sink.PostEvent(Event{Label: label, Kind: EventMoved, Position: Point{X: x, Y: y}})
			sink.PostEvent(Event{Label: label, Kind: EventResized, Size: Size{Width: width, Height: height}})
		},
		Focus: func(focused bool) {
			r.currentSink().PostEvent(Event{Label: label, Kind: EventFocused, Focused: focused})
		},
		Destroyed: func() {
			r.forget(label)
			r.currentSink().PostEvent(Event{Label: label, Kind: EventDestroyed})
		},
	}
}

func (r *LinuxRuntime) forget(label string) {
	r.mu.Lock()
	delete(r.windows, label)
	r.mu.Unlock()
}

// Alive returns the labels whose browser page and X11 window both still
// exist.
func (r *LinuxRuntime) Alive() ([]string, error) {
	r.mu.Lock()
	windows := make([]*linuxWindow, 0, len(r.windows))
	for _, w := range r.windows {
		windows = append(windows, w)
	}
	r.mu.Unlock()

	labels := make([]string, 0, len(windows))
	for _, w := range windows {
		if w.page.Closed() || !r.conn.Exists(w.xid) {
			continue
		}
		labels = append(labels, w.label)
	}
	return labels, nil
}

func asLinux(w Window) (*linuxWindow, error) {
	lw, ok := w.(*linuxWindow)
	if !ok || lw == nil {
		return nil, fmt.Errorf("window %T was not opened by the linux runtime", w)
	}
	if lw.page.Closed() {
		return nil, ErrClosed
	}
	return lw, nil
}

func (r *LinuxRuntime) SetTransparent(w Window, alpha uint8) error {
	lw, err := asLinux(w)
	if err != nil {
		return err
	}
	return r.conn.SetOpacity(lw.xid, alpha)
}

func (r *LinuxRuntime) SetPin(w Window, on bool) error {
	lw, err := asLinux(w)
	if err != nil {
		return err
	}
	return r.conn.SetAbove(lw.xid, on)
}

func (r *LinuxRuntime) SetPointerIgnore(w Window, on bool) error {
	lw, err := asLinux(w)
	if err != nil {
		return err
	}
	return r.conn.SetInputPassthrough(lw.xid, on)
}

func (r *LinuxRuntime) SetZoom(w Window, scale float64) error {
	lw, err := asLinux(w)
	if err != nil {
		return err
	}
	return lw.page.SetZoom(context.Background(), scale)
}

func (r *LinuxRuntime) SetUserAgent(w Window, ua string) error {
	lw, err := asLinux(w)
	if err != nil {
		return err
	}
	return lw.page.SetUserAgent(context.Background(), ua)
}

// linuxWindow is a browser page shown in an X11 window.
type linuxWindow struct {
	rt    *LinuxRuntime
	label string
	page  *browser.Page
	xid   xproto.Window
}

func (w *linuxWindow) Label() string { return w.label }

func (w *linuxWindow) check() error {
	if w.page.Closed() {
		return ErrClosed
	}
	return nil
}

func (w *linuxWindow) Position() (Point, error) {
	if err := w.check(); err != nil {
		return Point{}, err
	}
	x, y, err := w.rt.conn.FramePosition(w.xid)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

func (w *linuxWindow) SetPosition(p Point) error {
	if err := w.check(); err != nil {
		return err
	}
	return w.rt.conn.MoveWindow(w.xid, p.X, p.Y)
}

func (w *linuxWindow) Size() (Size, error) {
	if err := w.check(); err != nil {
		return Size{}, err
	}
	width, height, err := w.rt.conn.ClientSize(w.xid)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: width, Height: height}, nil
}

func (w *linuxWindow) SetSize(s Size) error {
	if err := w.check(); err != nil {
		return err
	}
	return w.rt.conn.ResizeWindow(w.xid, s.Width, s.Height)
}

func (w *linuxWindow) Show() error {
	if err := w.check(); err != nil {
		return err
	}
	if err := w.rt.conn.MapWindow(w.xid, true); err != nil {
		return err
	}
	return w.rt.conn.FocusWindow(w.xid)
}

func (w *linuxWindow) ShowInactive() error {
	if err := w.check(); err != nil {
		return err
	}
	return w.rt.conn.MapWindow(w.xid, false)
}

func (w *linuxWindow) Hide() error {
	if err := w.check(); err != nil {
		return err
	}
	return w.rt.conn.UnmapWindow(w.xid)
}

// Close closes the browser window. Closing twice is not an error.
func (w *linuxWindow) Close() error {
	w.rt.conn.Unwatch(w.xid)
	w.rt.forget(w.label)
	return w.page.Close()
}

func (w *linuxWindow) Focus() error {
	if err := w.check(); err != nil {
		return err
	}
	return w.rt.conn.FocusWindow(w.xid)
}

func (w *linuxWindow) IsFocused() bool {
	active, err := w.rt.conn.ActiveWindow()
	return err == nil && active == w.xid
}

func (w *linuxWindow) IsVisible() bool {
	return !w.page.Closed() && w.rt.conn.IsViewable(w.xid)
}

func (w *linuxWindow) Minimize() error {
	if err := w.check(); err != nil {
		return err
	}
	return w.rt.conn.MinimizeWindow(w.xid)
}

func (w *linuxWindow) IsMinimized() bool {
	return w.rt.conn.IsMinimized(w.xid)
}

// Unminimize restores an iconified window; activating it makes the WM map
// it again.
func (w *linuxWindow) Unminimize() error {
	if err := w.check(); err != nil {
		return err
	}
	return w.rt.conn.FocusWindow(w.xid)
}
