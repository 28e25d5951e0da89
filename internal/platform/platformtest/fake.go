// Package platformtest provides an in-memory window runtime for tests.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/relais/internal/platform"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected failure")

// Call records one styler or browser invocation.
type Call struct {
	Label string
	Op    string
	Value any
}

// DefaultPosition is where windows opened without a position appear.
var DefaultPosition = platform.Point{X: 100, Y: 100}

// Runtime is a fake platform.Runtime that also implements platform.Styler and
// platform.Browser.
type Runtime struct {
	mu      sync.Mutex
	windows map[string]*Window
	order   []string
	calls   []Call

	// FailOpen makes Open fail for the given labels.
	FailOpen map[string]bool
	// FailStyle makes styler and browser calls fail for the given op names
	// ("transparent", "pin", "pointer_ignore", "zoom", "user_agent").
	FailStyle map[string]bool
}

var (
	_ platform.Runtime = (*Runtime)(nil)
	_ platform.Styler  = (*Runtime)(nil)
	_ platform.Browser = (*Runtime)(nil)
)

// NewRuntime returns an empty fake runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		windows:   make(map[string]*Window),
		FailOpen:  make(map[string]bool),
		FailStyle: make(map[string]bool),
	}
}

func (r *Runtime) Open(_ context.Context, opts platform.WindowOptions) (platform.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailOpen[opts.Label] {
		return nil, fmt.Errorf("open %s: %w", opts.Label, ErrInjected)
	}
	prev, seen := r.windows[opts.Label]
	if seen && !prev.closed {
		return nil, fmt.Errorf("window %s already open", opts.Label)
	}

	w := &Window{
		rt:      r,
		label:   opts.Label,
		Opts:    opts,
		size:    opts.Size,
		visible: opts.Visible,
	}
	if opts.Position != nil {
		w.pos = *opts.Position
	} else {
		w.pos = DefaultPosition
	}
	r.windows[opts.Label] = w
	if !seen {
		r.order = append(r.order, opts.Label)
	}
	return w, nil
}

func (r *Runtime) Alive() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, l := range r.order {
		if w := r.windows[l]; w != nil && !w.closed {
			out = append(out, l)
		}
	}
	return out, nil
}

// Window returns the fake window for label, or nil.
func (r *Runtime) Window(label string) *Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windows[label]
}

// OpenLabels returns labels of windows that are open and not closed.
func (r *Runtime) OpenLabels() []string {
	labels, _ := r.Alive()
	return labels
}

// Vanish drops a window without any event, as if the process behind it died.
func (r *Runtime) Vanish(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w := r.windows[label]; w != nil {
		w.closed = true
	}
}

// Calls returns every recorded styler call for label and op, in order.
func (r *Runtime) Calls(label, op string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, c := range r.calls {
		if c.Label == label && c.Op == op {
			out = append(out, c.Value)
		}
	}
	return out
}

func (r *Runtime) record(w platform.Window, op string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailStyle[op] {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	r.calls = append(r.calls, Call{Label: w.Label(), Op: op, Value: v})
	return nil
}

func (r *Runtime) SetTransparent(w platform.Window, alpha uint8) error {
	return r.record(w, "transparent", alpha)
}

func (r *Runtime) SetPin(w platform.Window, on bool) error {
	return r.record(w, "pin", on)
}

func (r *Runtime) SetPointerIgnore(w platform.Window, on bool) error {
	return r.record(w, "pointer_ignore", on)
}

func (r *Runtime) SetZoom(w platform.Window, scale float64) error {
	return r.record(w, "zoom", scale)
}

func (r *Runtime) SetUserAgent(w platform.Window, ua string) error {
	return r.record(w, "user_agent", ua)
}

// Window is a fake platform.Window. Tests may flip focus with SetFocused.
type Window struct {
	rt    *Runtime
	label string
	Opts  platform.WindowOptions

	pos       platform.Point
	size      platform.Size
	visible   bool
	focused   bool
	minimized bool
	closed    bool

	// SetPositionCalls counts SetPosition invocations.
	SetPositionCalls int
}

var _ platform.Window = (*Window)(nil)

func (w *Window) Label() string { return w.label }

func (w *Window) lock() func() {
	w.rt.mu.Lock()
	return w.rt.mu.Unlock
}

func (w *Window) Position() (platform.Point, error) {
	defer w.lock()()
	if w.closed {
		return platform.Point{}, platform.ErrClosed
	}
	return w.pos, nil
}

func (w *Window) SetPosition(p platform.Point) error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	w.SetPositionCalls++
	w.pos = p
	return nil
}

func (w *Window) Size() (platform.Size, error) {
	defer w.lock()()
	if w.closed {
		return platform.Size{}, platform.ErrClosed
	}
	return w.size, nil
}

func (w *Window) SetSize(s platform.Size) error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	w.size = s
	return nil
}

func (w *Window) Show() error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	w.visible = true
	return nil
}

func (w *Window) ShowInactive() error { return w.Show() }

func (w *Window) Hide() error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	w.visible = false
	return nil
}

func (w *Window) Close() error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	w.closed = true
	w.visible = false
	w.focused = false
	return nil
}

func (w *Window) Focus() error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	for _, other := range w.rt.windows {
		other.focused = false
	}
	w.focused = true
	return nil
}

func (w *Window) IsFocused() bool {
	defer w.lock()()
	return w.focused
}

// SetFocused overrides the focus flag without touching other windows.
func (w *Window) SetFocused(v bool) {
	defer w.lock()()
	w.focused = v
}

func (w *Window) IsVisible() bool {
	defer w.lock()()
	return w.visible
}

func (w *Window) Minimize() error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	w.minimized = true
	return nil
}

func (w *Window) IsMinimized() bool {
	defer w.lock()()
	return w.minimized
}

func (w *Window) Unminimize() error {
	defer w.lock()()
	if w.closed {
		return platform.ErrClosed
	}
	w.minimized = false
	return nil
}

// Closed reports whether Close was called or the window vanished.
func (w *Window) Closed() bool {
	defer w.lock()()
	return w.closed
}

// Sink collects posted events and actions.
type Sink struct {
	mu      sync.Mutex
	Events  []platform.Event
	Actions [][2]string
}

func (s *Sink) PostEvent(ev platform.Event) {
	s.mu.Lock()
	s.Events = append(s.Events, ev)
	s.mu.Unlock()
}

func (s *Sink) PostAction(label, action string) {
	s.mu.Lock()
	s.Actions = append(s.Actions, [2]string{label, action})
	s.mu.Unlock()
}
