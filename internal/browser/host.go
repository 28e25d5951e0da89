// Package browser runs the Chrome/Chromium instance that renders relais
// windows and talks to it over the DevTools protocol.
package browser

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// bindingName is the function the control page calls with an action name.
const bindingName = "relais"

// HostLabel marks the window Chrome opens on startup. It is not a relais
// window and is kept hidden.
const HostLabel = "__host"

const commandTimeout = 10 * time.Second

//go:embed ctrl.html
var controlPage []byte

// ErrPageClosed is returned by Page methods after the page has gone away.
var ErrPageClosed = errors.New("page closed")

// Options configures the browser process.
type Options struct {
	// ExecPath is the browser binary. Empty searches PATH for Chrome and
	// Chromium.
	ExecPath string
	// ProfileDir is the user data directory.
	ProfileDir string
	// Flags are extra command line switches, "name" or "name=value".
	Flags  []string
	Logger *slog.Logger
}

// Host owns one browser process and every page opened in it.
type Host struct {
	logger      *slog.Logger
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu       sync.Mutex
	pages    map[target.ID]*Page
	onAction func(label, action string)
	onClosed func(label string)
}

// MarkerTitle is the window title a page carries until its real content is
// loaded. The X11 side finds native windows by it.
func MarkerTitle(label string) string {
	return "[relais:" + label + "]"
}

func markerURL(label string) string {
	doc := "<!doctype html><title>" + html.EscapeString(MarkerTitle(label)) + "</title>"
	return "data:text/html," + url.PathEscape(doc)
}

func controlURL() string {
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString(controlPage)
}

// allocatorOptions builds the chromedp allocator options for opts.
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out,
		chromedp.Flag("headless", false),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.Flag("mute-audio", false),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-infobars", true),
	)
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.ProfileDir != "" {
		out = append(out, chromedp.UserDataDir(opts.ProfileDir))
	}
	for _, f := range opts.Flags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(strings.TrimSpace(f), "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			out = append(out, chromedp.Flag(name, value))
		} else {
			out = append(out, chromedp.Flag(name, true))
		}
	}
	return out
}

// Start launches the browser. The startup window is navigated to the marker
// page of HostLabel.
func Start(opts Options) (*Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	// The first Run starts the process; it must not carry a timeout.
	if err := chromedp.Run(ctx, chromedp.Navigate(markerURL(HostLabel))); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	h := &Host{
		logger:      logger,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		pages:       make(map[target.ID]*Page),
	}

	if err := target.SetDiscoverTargets(true).Do(h.browserExecutor()); err != nil {
		h.Shutdown()
		return nil, fmt.Errorf("failed to enable target discovery: %w", err)
	}
	chromedp.ListenBrowser(ctx, func(ev any) {
		if ev, ok := ev.(*target.EventTargetDestroyed); ok {
			go h.targetGone(ev.TargetID)
		}
	})
	return h, nil
}

func (h *Host) browserExecutor() context.Context {
	return cdp.WithExecutor(h.ctx, chromedp.FromContext(h.ctx).Browser)
}

// OnAction sets the callback for control page button presses.
func (h *Host) OnAction(fn func(label, action string)) {
	h.mu.Lock()
	h.onAction = fn
	h.mu.Unlock()
}

// OnClosed sets the callback for pages closed outside of Page.Close, for
// example by the user closing the browser window.
func (h *Host) OnClosed(fn func(label string)) {
	h.mu.Lock()
	h.onClosed = fn
	h.mu.Unlock()
}

func (h *Host) targetGone(id target.ID) {
	h.mu.Lock()
	p, ok := h.pages[id]
	delete(h.pages, id)
	fn := h.onClosed
	h.mu.Unlock()
	if !ok {
		return
	}
	if !p.closed.Swap(true) {
		p.cancel()
		h.logger.Debug("browser page closed", "label", p.Label)
		if fn != nil {
			fn(p.Label)
		}
	}
}

func (h *Host) action(label, action string) {
	h.mu.Lock()
	fn := h.onAction
	h.mu.Unlock()
	if fn != nil {
		fn(label, action)
	}
}

// Open creates a new browser window showing the marker page for label. With
// control set, the binding used by the control page is installed. The page
// stays on the marker until Navigate or ShowControls.
func (h *Host) Open(ctx context.Context, label string, control bool, width, height int) (*Page, error) {
	create := target.CreateTarget(markerURL(label)).WithNewWindow(true)
	if width > 0 && height > 0 {
		create = create.WithWidth(int64(width)).WithHeight(int64(height))
	}
	id, err := create.Do(h.browserExecutor())
	if err != nil {
		return nil, fmt.Errorf("failed to create browser window: %w", err)
	}

	pctx, cancel := chromedp.NewContext(h.ctx, chromedp.WithTargetID(id))
	p := &Page{host: h, Label: label, ID: id, ctx: pctx, cancel: cancel}

	// Attach without a timeout, like the first Run of the host.
	if err := chromedp.Run(pctx); err != nil {
		cancel()
		_ = target.CloseTarget(id).Do(h.browserExecutor())
		return nil, fmt.Errorf("failed to attach to browser window: %w", err)
	}

	h.mu.Lock()
	h.pages[id] = p
	h.mu.Unlock()

	if control {
		chromedp.ListenTarget(pctx, func(ev any) {
			if ev, ok := ev.(*runtime.EventBindingCalled); ok && ev.Name == bindingName {
				go h.action(label, ev.Payload)
			}
		})
		if err := p.run(ctx, runtime.AddBinding(bindingName)); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to install control binding: %w", err)
		}
	}
	return p, nil
}

// Shutdown closes every page and stops the browser process.
func (h *Host) Shutdown() {
	h.mu.Lock()
	h.pages = make(map[target.ID]*Page)
	h.mu.Unlock()
	h.cancel()
	h.allocCancel()
}

// Page is one browser window.
type Page struct {
	host   *Host
	Label  string
	ID     target.ID
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.closed.Load() {
		return ErrPageClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, commandTimeout)
		defer cancel()
	}
	// Run the actions against the page's target while honouring ctx.
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Closed reports whether the page has gone away.
func (p *Page) Closed() bool {
	return p.closed.Load()
}

// Navigate loads rawURL in the page.
func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	return p.run(ctx, chromedp.Navigate(rawURL))
}

// ShowControls loads the control page.
func (p *Page) ShowControls(ctx context.Context) error {
	return p.run(ctx, chromedp.Navigate(controlURL()))
}

// SetUserAgent overrides the user agent and reloads the page.
func (p *Page) SetUserAgent(ctx context.Context, ua string) error {
	return p.run(ctx, emulation.SetUserAgentOverride(ua), page.Reload())
}

// SetZoom sets the page scale factor; 1.0 is 100%.
func (p *Page) SetZoom(ctx context.Context, scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("invalid zoom scale %v", scale)
	}
	return p.run(ctx, emulation.SetPageScaleFactor(scale))
}

// Close closes the browser window. Calling it again is a no-op.
func (p *Page) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	h := p.host
	h.mu.Lock()
	delete(h.pages, p.ID)
	h.mu.Unlock()

	err := target.CloseTarget(p.ID).Do(h.browserExecutor())
	p.cancel()
	if err != nil {
		return fmt.Errorf("failed to close browser window: %w", err)
	}
	return nil
}
