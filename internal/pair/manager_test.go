package pair

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/1broseidon/relais/internal/platform"
	"github.com/1broseidon/relais/internal/platform/platformtest"
	"github.com/1broseidon/relais/internal/window"
)

func newTestManager(t *testing.T) (*Manager, *platformtest.Runtime) {
	t.Helper()
	rt := platformtest.NewRuntime()
	m := NewManager(Options{
		Runtime:    rt,
		Styler:     rt,
		Browser:    rt,
		Registry:   window.NewRegistry(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		UserAgents: func() (string, string) { return "desktop-ua", "mobile-ua" },
	})

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return m, rt
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// flush processes every queued event on the loop before returning.
func flush(t *testing.T, m *Manager) {
	t.Helper()
	err := m.do(testCtx(t), func() error {
		for _, ev := range m.drain() {
			m.handleEvent(ev)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func mustCreate(t *testing.T, m *Manager, label string) string {
	t.Helper()
	got, err := m.Create(testCtx(t), CreateRequest{URL: "example.com", Label: label})
	if err != nil {
		t.Fatalf("Create(%q): %v", label, err)
	}
	return got
}

func TestCreate_DefaultsAndGeometry(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "")

	if m.Registry().Len() != 1 {
		t.Fatalf("registry len = %d, want 1", m.Registry().Len())
	}
	st, ok := m.Registry().Get(label)
	if !ok {
		t.Fatalf("label %q not registered", label)
	}
	want := window.Status{Alpha: window.DefaultAlpha, Zoom: window.DefaultZoom}
	if st != want {
		t.Fatalf("status = %+v, want %+v", st, want)
	}

	rec, _ := m.Registry().Lookup(label)
	if rec.URL != "https://example.com" {
		t.Fatalf("url = %q, want https://example.com", rec.URL)
	}

	content := rt.Window(label)
	ctrl := rt.Window(window.CtrlLabel(label))
	if content == nil || ctrl == nil {
		t.Fatalf("expected both windows to be open, got %v", rt.OpenLabels())
	}
	if content.Opts.Decorations || content.Opts.MinSize != (platform.Size{Width: 400, Height: 400}) {
		t.Fatalf("content options = %+v", content.Opts)
	}
	if !ctrl.Opts.Control || ctrl.Opts.Resizable || ctrl.Opts.Size != (platform.Size{Width: CtrlWidth, Height: CtrlHeight}) {
		t.Fatalf("control options = %+v", ctrl.Opts)
	}

	cpos, _ := content.Position()
	kpos, _ := ctrl.Position()
	if kpos != cpos.Sub(platform.Point{X: 40}) {
		t.Fatalf("control at %+v, content at %+v", kpos, cpos)
	}
}

func TestCreate_InvalidURL(t *testing.T) {
	m, rt := newTestManager(t)
	for _, raw := range []string{"", "   ", "http://", "httpnothing"} {
		_, err := m.Create(testCtx(t), CreateRequest{URL: raw})
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
	if len(rt.OpenLabels()) != 0 {
		t.Fatalf("windows opened for invalid urls: %v", rt.OpenLabels())
	}
}

func TestCreate_DuplicateLabel(t *testing.T) {
	m, rt := newTestManager(t)
	mustCreate(t, m, "dup")

	_, err := m.Create(testCtx(t), CreateRequest{URL: "https://other.example", Label: "dup"})
	if !errors.Is(err, window.ErrDuplicateLabel) {
		t.Fatalf("error = %v, want ErrDuplicateLabel", err)
	}
	if m.Registry().Len() != 1 {
		t.Fatalf("registry len = %d, want 1", m.Registry().Len())
	}
	if got := rt.OpenLabels(); !reflect.DeepEqual(got, []string{"dup", "ctrl_dup"}) {
		t.Fatalf("open windows = %v, want [dup ctrl_dup]", got)
	}
}

func TestCreate_ReservedLabel(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create(testCtx(t), CreateRequest{URL: "example.com", Label: "ctrl_x"})
	if !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("error = %v, want ErrInvalidLabel", err)
	}
}

func TestCreate_ControlFailureClosesContent(t *testing.T) {
	m, rt := newTestManager(t)
	rt.FailOpen["ctrl_x"] = true

	_, err := m.Create(testCtx(t), CreateRequest{URL: "example.com", Label: "x"})
	if !errors.Is(err, ErrOsOperation) {
		t.Fatalf("error = %v, want ErrOsOperation", err)
	}
	if m.Registry().Len() != 0 {
		t.Fatal("record inserted despite failure")
	}
	if w := rt.Window("x"); w == nil || !w.Closed() {
		t.Fatal("content window left open after control failure")
	}
}

func TestClose(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "a")

	if err := m.Close(testCtx(t), label); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := m.Registry().Get(label); ok {
		t.Fatal("record still registered")
	}
	if !rt.Window("a").Closed() || !rt.Window("ctrl_a").Closed() {
		t.Fatal("windows not closed")
	}
	if err := m.Close(testCtx(t), label); !errors.Is(err, window.ErrNotFound) {
		t.Fatalf("second Close error = %v, want ErrNotFound", err)
	}
	if m.Phase(testCtx(t), label) != PhaseGone {
		t.Fatal("phase after close is not gone")
	}
}

func TestClose_ByControlLabel(t *testing.T) {
	m, _ := newTestManager(t)
	mustCreate(t, m, "a")
	if err := m.Close(testCtx(t), "ctrl_a"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.Registry().Len() != 0 {
		t.Fatal("record still registered")
	}
}

func TestTogglePin_Twice(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "p")

	for _, want := range []bool{true, false} {
		got, err := m.TogglePin(testCtx(t), label)
		if err != nil {
			t.Fatalf("TogglePin: %v", err)
		}
		if got != want {
			t.Fatalf("TogglePin = %v, want %v", got, want)
		}
	}
	st, _ := m.Registry().Get(label)
	if st.Pin {
		t.Fatal("pin not restored after two toggles")
	}
	if got := rt.Calls(label, "pin"); !reflect.DeepEqual(got, []any{true, false}) {
		t.Fatalf("styler pin calls = %v, want [true false]", got)
	}
}

func TestStylerFailureLeavesRecordUnchanged(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "f")
	rt.FailStyle["pin"] = true
	rt.FailStyle["zoom"] = true

	if err := m.SetPin(testCtx(t), label, true); !errors.Is(err, ErrOsOperation) {
		t.Fatalf("SetPin error = %v, want ErrOsOperation", err)
	}
	if _, err := m.SetZoom(testCtx(t), label, 150); !errors.Is(err, ErrOsOperation) {
		t.Fatalf("SetZoom error = %v, want ErrOsOperation", err)
	}
	st, _ := m.Registry().Get(label)
	if st.Pin || st.Zoom != window.DefaultZoom {
		t.Fatalf("status changed after failure: %+v", st)
	}
}

func TestZoomClamps(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "z")

	tests := []struct {
		name  string
		apply func() (int, error)
		want  int
	}{
		{"set high", func() (int, error) { return m.SetZoom(testCtx(t), label, 1000) }, 500},
		{"adjust past low", func() (int, error) { return m.AdjustZoom(testCtx(t), label, -1000) }, 20},
		{"adjust up", func() (int, error) { return m.AdjustZoom(testCtx(t), label, 10) }, 30},
		{"set low", func() (int, error) { return m.SetZoom(testCtx(t), label, -5) }, 20},
		{"adjust max int", func() (int, error) { return m.AdjustZoom(testCtx(t), label, math.MaxInt) }, 500},
		{"adjust min int", func() (int, error) { return m.AdjustZoom(testCtx(t), label, math.MinInt) }, 20},
	}
	for _, tt := range tests {
		got, err := tt.apply()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: zoom = %d, want %d", tt.name, got, tt.want)
		}
		if st, _ := m.Registry().Get(label); st.Zoom != tt.want {
			t.Fatalf("%s: stored zoom = %d, want %d", tt.name, st.Zoom, tt.want)
		}
	}
	want := []any{5.0, 0.2, 0.3, 0.2, 5.0, 0.2}
	if got := rt.Calls(label, "zoom"); !reflect.DeepEqual(got, want) {
		t.Fatalf("zoom calls = %v, want %v", got, want)
	}
}

func TestAddZoomSaturates(t *testing.T) {
	tests := []struct {
		cur, delta, want int
	}{
		{100, 10, 110},
		{100, -10, 90},
		{490, 20, window.MaxZoom},
		{30, -20, window.MinZoom},
		{window.MaxZoom, math.MaxInt, window.MaxZoom},
		{window.MinZoom, math.MinInt, window.MinZoom},
	}
	for _, tt := range tests {
		if got := addZoom(tt.cur, tt.delta); got != tt.want {
			t.Errorf("addZoom(%d, %d) = %d, want %d", tt.cur, tt.delta, got, tt.want)
		}
	}
}

func TestAbandonedWaitReturnsZeroValue(t *testing.T) {
	m, _ := newTestManager(t)
	label := mustCreate(t, m, "busy")

	// Hold the loop so the toggle below cannot finish before its deadline.
	started := make(chan struct{})
	release := make(chan struct{})
	blocked := make(chan error, 1)
	go func() {
		blocked <- m.do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	on, err := m.TogglePin(ctx, label)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("TogglePin error = %v, want deadline exceeded", err)
	}
	if on {
		t.Fatal("TogglePin reported a value for an abandoned wait")
	}
	zoom, err := m.AdjustZoom(ctx, label, 10)
	if err == nil || zoom != 0 {
		t.Fatalf("AdjustZoom = %d, %v; want 0 and an error", zoom, err)
	}

	close(release)
	if err := <-blocked; err != nil {
		t.Fatalf("blocking op: %v", err)
	}
	if phase := m.Phase(testCtx(t), label); phase != PhaseActive {
		t.Fatalf("phase = %v, want active", phase)
	}
}

func TestTransparencyUsesRememberedAlpha(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "t")

	if err := m.SetAlpha(testCtx(t), label, 80); err != nil {
		t.Fatalf("SetAlpha: %v", err)
	}
	if len(rt.Calls(label, "transparent")) != 0 {
		t.Fatal("alpha applied while transparency is off")
	}
	for i := 0; i < 2; i++ {
		if _, err := m.ToggleTransparent(testCtx(t), label); err != nil {
			t.Fatalf("ToggleTransparent: %v", err)
		}
	}
	want := []any{uint8(80), uint8(255)}
	if got := rt.Calls(label, "transparent"); !reflect.DeepEqual(got, want) {
		t.Fatalf("transparent calls = %v, want %v", got, want)
	}
	st, _ := m.Registry().Get(label)
	if st.Transparent || st.Alpha != 80 {
		t.Fatalf("status = %+v, want transparent off with alpha 80", st)
	}
}

func TestMobileModeSwitchesUserAgent(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "ua")

	on, err := m.ToggleMobileMode(testCtx(t), label)
	if err != nil || !on {
		t.Fatalf("ToggleMobileMode = %v, %v", on, err)
	}
	if err := m.SetMobileMode(testCtx(t), label, false); err != nil {
		t.Fatalf("SetMobileMode: %v", err)
	}
	want := []any{"mobile-ua", "desktop-ua"}
	if got := rt.Calls(label, "user_agent"); !reflect.DeepEqual(got, want) {
		t.Fatalf("user agent calls = %v, want %v", got, want)
	}
}

func TestMutationOnUnknownLabel(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.TogglePin(testCtx(t), "missing"); !errors.Is(err, window.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestMoveHandlerIsIdempotent(t *testing.T) {
	m, rt := newTestManager(t)
	label := mustCreate(t, m, "mv")
	ctrl := rt.Window("ctrl_mv")
	content := rt.Window("mv")

	before := ctrl.SetPositionCalls
	m.PostEvent(platform.Event{Label: label, Kind: platform.EventMoved})
	m.PostEvent(platform.Event{Label: label, Kind: platform.EventResized})
	flush(t, m)
	if ctrl.SetPositionCalls != before {
		t.Fatalf("control moved %d times while already in place", ctrl.SetPositionCalls-before)
	}

	if err := content.SetPosition(platform.Point{X: 300, Y: 200}); err != nil {
		t.Fatal(err)
	}
	m.PostEvent(platform.Event{Label: label, Kind: platform.EventMoved})
	flush(t, m)
	if got, _ := ctrl.Position(); got != (platform.Point{X: 260, Y: 200}) {
		t.Fatalf("control at %+v, want {260 200}", got)
	}
}

func TestDraggingControlMovesContent(t *testing.T) {
	m, rt := newTestManager(t)
	mustCreate(t, m, "drag")
	ctrl := rt.Window("ctrl_drag")
	content := rt.Window("drag")

	if err := ctrl.SetPosition(platform.Point{X: 10, Y: 50}); err != nil {
		t.Fatal(err)
	}
	m.PostEvent(platform.Event{Label: "ctrl_drag", Kind: platform.EventMoved})
	flush(t, m)
	if got, _ := content.Position(); got != (platform.Point{X: 50, Y: 50}) {
		t.Fatalf("content at %+v, want {50 50}", got)
	}
}

func TestFocusLossHidesControlOnlyWhenPairUnfocused(t *testing.T) {
	m, rt := newTestManager(t)
	mustCreate(t, m, "fc")
	ctrl := rt.Window("ctrl_fc")
	content := rt.Window("fc")

	content.SetFocused(true)
	m.PostEvent(platform.Event{Label: "fc", Kind: platform.EventFocused, Focused: true})
	flush(t, m)
	if !ctrl.IsVisible() {
		t.Fatal("control hidden after content focus")
	}

	m.PostEvent(platform.Event{Label: "ctrl_fc", Kind: platform.EventFocused, Focused: false})
	flush(t, m)
	if !ctrl.IsVisible() {
		t.Fatal("control hidden while content still focused")
	}

	content.SetFocused(false)
	m.PostEvent(platform.Event{Label: "fc", Kind: platform.EventFocused, Focused: false})
	flush(t, m)
	if ctrl.IsVisible() {
		t.Fatal("control still visible after the pair lost focus")
	}
}

func TestControlFocusUnminimizesContent(t *testing.T) {
	m, rt := newTestManager(t)
	mustCreate(t, m, "mn")
	if err := m.Minimize(testCtx(t), "mn"); err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	content := rt.Window("mn")
	if !content.IsMinimized() {
		t.Fatal("content not minimized")
	}

	m.PostEvent(platform.Event{Label: "ctrl_mn", Kind: platform.EventFocused, Focused: true})
	flush(t, m)
	if content.IsMinimized() || !content.IsVisible() {
		t.Fatal("content not restored after control focus")
	}
}

func TestCloseRequestedEventTearsDownPair(t *testing.T) {
	m, rt := newTestManager(t)
	mustCreate(t, m, "ev")
	changes, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.PostEvent(platform.Event{Label: "ctrl_ev", Kind: platform.EventCloseRequested})
	flush(t, m)

	if m.Registry().Len() != 0 {
		t.Fatal("record still registered")
	}
	if !rt.Window("ev").Closed() {
		t.Fatal("content window not closed")
	}
	select {
	case <-changes:
	default:
		t.Fatal("no registry change notification")
	}

	// Echo events for the gone pair are ignored.
	m.PostEvent(platform.Event{Label: "ev", Kind: platform.EventDestroyed})
	flush(t, m)
}

func TestReleaseAll(t *testing.T) {
	m, rt := newTestManager(t)
	mustCreate(t, m, "r1")
	mustCreate(t, m, "r2")
	if err := m.SetPointerIgnore(testCtx(t), "r1", true); err != nil {
		t.Fatal(err)
	}

	n, err := m.ReleaseAll(testCtx(t))
	if err != nil {
		t.Fatalf("ReleaseAll: %v", err)
	}
	if n != 1 {
		t.Fatalf("released %d, want 1", n)
	}
	if st, _ := m.Registry().Get("r1"); st.PointerIgnore {
		t.Fatal("pointer ignore still set")
	}
	if got := rt.Calls("r1", "pointer_ignore"); !reflect.DeepEqual(got, []any{true, false}) {
		t.Fatalf("pointer ignore calls = %v", got)
	}
}

func TestRestore_ToleratesBadEntries(t *testing.T) {
	m, _ := newTestManager(t)
	entries := []window.Entry{
		{Label: "one", URL: "https://one.example"},
		{Label: "bad", URL: "http://"},
		{Label: "two", URL: "two.example", Status: window.Status{Pin: true, Transparent: true, Alpha: 90, Zoom: 150}},
	}

	labels, err := m.Restore(testCtx(t), entries, true)
	if err == nil {
		t.Fatal("expected an error for the malformed entry")
	}
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("error = %v, want ErrInvalidURL", err)
	}
	if !reflect.DeepEqual(labels, []string{"one", "two"}) {
		t.Fatalf("restored = %v, want [one two]", labels)
	}
	if got := m.Registry().Labels(); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Fatalf("registry = %v", got)
	}

	st, _ := m.Registry().Get("two")
	want := window.Status{Pin: true, Transparent: true, Alpha: 90, Zoom: 150}
	if st != want {
		t.Fatalf("restored status = %+v, want %+v", st, want)
	}
}

func TestRestore_WithoutState(t *testing.T) {
	m, _ := newTestManager(t)
	entries := []window.Entry{{Label: "s", URL: "https://s.example", Status: window.Status{Pin: true, Zoom: 200}}}
	if _, err := m.Restore(testCtx(t), entries, false); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	st, _ := m.Registry().Get("s")
	if st.Pin || st.Zoom != window.DefaultZoom {
		t.Fatalf("state applied although disabled: %+v", st)
	}
}

func TestStoppedManager(t *testing.T) {
	rt := platformtest.NewRuntime()
	m := NewManager(Options{Runtime: rt, Styler: rt, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(finished)
	}()
	cancel()
	<-finished

	_, err := m.Create(testCtx(t), CreateRequest{URL: "example.com"})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("error = %v, want ErrStopped", err)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"example.com", "https://example.com", false},
		{"  example.com/path?q=1 ", "https://example.com/path?q=1", false},
		{"http://localhost:8080", "http://localhost:8080", false},
		{"HTTPS://Example.com", "https://Example.com", false},
		{"", "", true},
		{"http://", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
