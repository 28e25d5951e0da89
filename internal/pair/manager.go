// Package pair owns the lifecycle of content/control window pairs.
//
// All mutating work runs on a single loop goroutine started by Run. Callers
// submit operations and block until the loop has executed them, so window
// creation, teardown, style changes and OS event handling never interleave.
// Flag reads bypass the loop and go straight to the registry.
package pair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/relais/internal/platform"
	"github.com/1broseidon/relais/internal/window"
)

var (
	// ErrOsOperation wraps failures reported by the window runtime, styler or
	// browser.
	ErrOsOperation = errors.New("window operation failed")
	// ErrInvalidURL is returned when a URL cannot be normalized.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidLabel is returned for labels using the reserved control prefix.
	ErrInvalidLabel = errors.New("invalid label")
	// ErrStopped is returned when the loop is not running anymore.
	ErrStopped = errors.New("pair manager stopped")
)

const maxLabelAttempts = 8

// Phase is the lifecycle position of one pair.
type Phase int

const (
	PhaseCreating Phase = iota
	PhaseActive
	PhaseClosing
	PhaseGone
)

func (p Phase) String() string {
	switch p {
	case PhaseCreating:
		return "creating"
	case PhaseActive:
		return "active"
	case PhaseClosing:
		return "closing"
	default:
		return "gone"
	}
}

// Options configures a Manager.
type Options struct {
	Runtime  platform.Runtime
	Styler   platform.Styler
	Browser  platform.Browser
	Registry *window.Registry
	Logger   *slog.Logger

	// UserAgents returns the desktop and mobile user agent strings. It is
	// called on every mobile mode change so config reloads apply immediately.
	UserAgents func() (desktop, mobile string)
	// DefaultAlpha returns the alpha assigned to new records.
	DefaultAlpha func() uint8
}

// CreateRequest describes a pair to open.
type CreateRequest struct {
	URL   string
	Title string
	// Label is optional. An empty label gets a generated one.
	Label string
}

type pairState struct {
	rec     *window.Record
	content platform.Window
	ctrl    platform.Window
	phase   Phase
}

// Manager creates, synchronizes and tears down window pairs.
type Manager struct {
	rt      platform.Runtime
	styler  platform.Styler
	browser platform.Browser
	reg     *window.Registry
	logger  *slog.Logger
	agents  func() (string, string)
	alpha   func() uint8

	ops  chan func()
	done chan struct{}

	qmu   sync.Mutex
	queue []platform.Event
	wake  chan struct{}

	// pairs is only touched on the loop goroutine.
	pairs map[string]*pairState

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int

	startOnce sync.Once
}

// NewManager creates a manager. Run must be started before any operation.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = window.NewRegistry()
	}
	agents := opts.UserAgents
	if agents == nil {
		agents = func() (string, string) { return "", "" }
	}
	alpha := opts.DefaultAlpha
	if alpha == nil {
		alpha = func() uint8 { return window.DefaultAlpha }
	}
	return &Manager{
		rt:      opts.Runtime,
		styler:  opts.Styler,
		browser: opts.Browser,
		reg:     reg,
		logger:  logger,
		agents:  agents,
		alpha:   alpha,
		ops:     make(chan func()),
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		pairs:   make(map[string]*pairState),
		subs:    make(map[int]chan struct{}),
	}
}

// Registry returns the registry the manager writes to.
func (m *Manager) Registry() *window.Registry { return m.reg }

// Run executes submitted operations and queued events until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	started := false
	m.startOnce.Do(func() { started = true })
	if !started {
		return
	}
	defer close(m.done)

	m.logger.Info("pair manager started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("pair manager stopped", "pairs", len(m.pairs))
			return
		case op := <-m.ops:
			op()
		case <-m.wake:
			for _, ev := range m.drain() {
				m.handleEvent(ev)
			}
		}
	}
}

// PostEvent queues an OS event. It never blocks.
func (m *Manager) PostEvent(ev platform.Event) {
	m.qmu.Lock()
	m.queue = append(m.queue, ev)
	m.qmu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) drain() []platform.Event {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	evs := m.queue
	m.queue = nil
	return evs
}

// Subscribe returns a channel that receives a value after every registry
// change. Notifications coalesce; a slow reader sees at least one value after
// the last change. The returned func unsubscribes.
func (m *Manager) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// do runs fn on the loop and waits for it. ctx only bounds the wait.
func (m *Manager) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	op := func() { result <- fn() }

	select {
	case m.ops <- op:
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the loop and returns its value. The value is handed over
// through a channel; after an abandoned wait the zero value is returned.
func call[T any](ctx context.Context, m *Manager, fn func() (T, error)) (T, error) {
	out := make(chan T, 1)
	err := m.do(ctx, func() error {
		v, err := fn()
		out <- v
		return err
	})
	select {
	case v := <-out:
		return v, err
	default:
		var zero T
		return zero, err
	}
}

// Create opens a new pair and returns its label.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (string, error) {
	target, err := NormalizeURL(req.URL)
	if err != nil {
		return "", err
	}

	label, err := call(ctx, m, func() (string, error) {
		return m.create(ctx, req.Title, target, req.Label)
	})
	if err != nil {
		return "", err
	}
	return label, nil
}

func (m *Manager) create(ctx context.Context, title, target, label string) (string, error) {
	if label != "" {
		if window.IsCtrlLabel(label) {
			return "", fmt.Errorf("%w: %q uses the reserved %q prefix", ErrInvalidLabel, label, window.CtrlLabelPrefix)
		}
		if m.taken(label) {
			return "", fmt.Errorf("%w: %q", window.ErrDuplicateLabel, label)
		}
	} else {
		for i := 0; i < maxLabelAttempts; i++ {
			candidate := window.NewLabel()
			if !m.taken(candidate) {
				label = candidate
				break
			}
		}
		if label == "" {
			return "", fmt.Errorf("could not generate a unique label after %d attempts", maxLabelAttempts)
		}
	}

	content, err := m.rt.Open(ctx, platform.WindowOptions{
		Label:     label,
		Title:     title,
		URL:       target,
		Size:      platform.Size{Width: contentDefaultWidth, Height: contentDefaultHeight},
		MinSize:   platform.Size{Width: ContentMinWidth, Height: ContentMinHeight},
		Resizable: true,
		Visible:   true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: open content window: %v", ErrOsOperation, err)
	}

	pos, err := content.Position()
	if err != nil {
		m.closeQuietly(content)
		return "", fmt.Errorf("%w: read content position: %v", ErrOsOperation, err)
	}
	ctrlPos := CtrlPosition(pos)

	ctrl, err := m.rt.Open(ctx, platform.WindowOptions{
		Label:       window.CtrlLabel(label),
		Title:       title,
		Control:     true,
		Size:        platform.Size{Width: CtrlWidth, Height: CtrlHeight},
		MinSize:     platform.Size{Width: CtrlWidth, Height: CtrlHeight},
		Position:    &ctrlPos,
		SkipTaskbar: true,
		Visible:     true,
	})
	if err != nil {
		m.closeQuietly(content)
		return "", fmt.Errorf("%w: open control window: %v", ErrOsOperation, err)
	}

	rec := window.NewRecord(label, title, target)
	rec.SetAlpha(m.alpha())
	p := &pairState{rec: rec, content: content, ctrl: ctrl, phase: PhaseCreating}

	if err := m.reg.Add(rec); err != nil {
		m.closeQuietly(ctrl)
		m.closeQuietly(content)
		return "", err
	}
	m.pairs[label] = p
	p.phase = PhaseActive

	m.syncCtrl(p)
	m.logger.Info("pair created", "label", label, "url", target)
	m.notify()
	return label, nil
}

func (m *Manager) taken(label string) bool {
	if _, ok := m.pairs[label]; ok {
		return true
	}
	return m.reg.Has(label)
}

func (m *Manager) closeQuietly(w platform.Window) {
	if err := w.Close(); err != nil && !errors.Is(err, platform.ErrClosed) {
		m.logger.Warn("failed to close window", "label", w.Label(), "error", err)
	}
}

// Close tears down the pair identified by label.
func (m *Manager) Close(ctx context.Context, label string) error {
	label = window.ContentLabel(label)
	return m.do(ctx, func() error {
		p, ok := m.pairs[label]
		if !ok {
			return fmt.Errorf("%w: %q", window.ErrNotFound, label)
		}
		return m.teardown(p)
	})
}

// teardown attempts every step and reports only the registry removal error.
func (m *Manager) teardown(p *pairState) error {
	label := p.rec.Label
	p.phase = PhaseClosing

	m.closeQuietly(p.ctrl)
	m.closeQuietly(p.content)

	delete(m.pairs, label)
	_, err := m.reg.Remove(label)
	p.phase = PhaseGone

	m.logger.Info("pair closed", "label", label)
	m.notify()
	return err
}

// lookup returns an active pair. Must run on the loop.
func (m *Manager) lookup(label string) (*pairState, error) {
	p, ok := m.pairs[window.ContentLabel(label)]
	if !ok || p.phase != PhaseActive {
		return nil, fmt.Errorf("%w: %q", window.ErrNotFound, label)
	}
	return p, nil
}

// mutate runs fn on the loop against an active pair and emits a change
// notification when fn succeeds.
func (m *Manager) mutate(ctx context.Context, label string, fn func(p *pairState) error) error {
	return m.do(ctx, func() error {
		p, err := m.lookup(label)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		m.notify()
		return nil
	})
}

// mutateValue is mutate for operations that report a result.
func mutateValue[T any](ctx context.Context, m *Manager, label string, fn func(p *pairState) (T, error)) (T, error) {
	return call(ctx, m, func() (T, error) {
		p, err := m.lookup(label)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := fn(p)
		if err == nil {
			m.notify()
		}
		return v, err
	})
}

func osErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrOsOperation, op, err)
}

// Labels returns the labels of active pairs in registry order.
func (m *Manager) Labels() []string {
	return m.reg.Labels()
}

// Phase reports the lifecycle phase of label; unknown labels are PhaseGone.
func (m *Manager) Phase(ctx context.Context, label string) Phase {
	phase, err := call(ctx, m, func() (Phase, error) {
		if p, ok := m.pairs[window.ContentLabel(label)]; ok {
			return p.phase, nil
		}
		return PhaseGone, nil
	})
	if err != nil {
		return PhaseGone
	}
	return phase
}
