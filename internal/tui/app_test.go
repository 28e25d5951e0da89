package tui

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/relais/internal/window"
)

type fakeClient struct {
	entries []window.Entry
	listErr error
	opErr   error
	calls   []string
}

func (f *fakeClient) List() ([]window.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]window.Entry(nil), f.entries...), nil
}

func (f *fakeClient) find(label string) *window.Entry {
	for i := range f.entries {
		if f.entries[i].Label == label {
			return &f.entries[i]
		}
	}
	return nil
}

func (f *fakeClient) record(op, label string) error {
	f.calls = append(f.calls, op+":"+label)
	return f.opErr
}

func (f *fakeClient) Create(url, title, label string) (string, error) {
	if err := f.record("create", label); err != nil {
		return "", err
	}
	f.entries = append(f.entries, window.Entry{Label: label, Title: title, URL: url})
	return label, nil
}

func (f *fakeClient) Close(label string) error {
	if err := f.record("close", label); err != nil {
		return err
	}
	for i := range f.entries {
		if f.entries[i].Label == label {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeClient) TogglePin(label string) (bool, error) {
	if err := f.record("pin", label); err != nil {
		return false, err
	}
	e := f.find(label)
	e.Pin = !e.Pin
	return e.Pin, nil
}

func (f *fakeClient) ToggleTransparent(label string) (bool, error) {
	if err := f.record("transparent", label); err != nil {
		return false, err
	}
	e := f.find(label)
	e.Transparent = !e.Transparent
	return e.Transparent, nil
}

func (f *fakeClient) TogglePointerIgnore(label string) (bool, error) {
	if err := f.record("passthrough", label); err != nil {
		return false, err
	}
	e := f.find(label)
	e.PointerIgnore = !e.PointerIgnore
	return e.PointerIgnore, nil
}

func (f *fakeClient) ToggleUserAgent(label string) (bool, error) {
	if err := f.record("mobile", label); err != nil {
		return false, err
	}
	e := f.find(label)
	e.MobileMode = !e.MobileMode
	return e.MobileMode, nil
}

func (f *fakeClient) AdjustZoom(label string, delta int) (int, error) {
	if err := f.record("zoom", label); err != nil {
		return 0, err
	}
	e := f.find(label)
	e.Zoom = window.ClampZoom(e.Zoom + delta)
	return e.Zoom, nil
}

func twoWindows() *fakeClient {
	return &fakeClient{entries: []window.Entry{
		{Label: "docs", URL: "https://go.dev", Status: window.Status{Zoom: 100, Alpha: window.DefaultAlpha}},
		{Label: "chat", URL: "https://example.com", Status: window.Status{Zoom: 100, Alpha: window.DefaultAlpha}},
	}}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		var ok bool
		m, ok = next.(model)
		if !ok {
			t.Fatalf("Update returned %T", next)
		}
	}
	return m
}

func TestModel_TogglesActOnSelectedWindow(t *testing.T) {
	fc := twoWindows()
	m := press(t, newModel(fc), "p", "down", "t", "i", "m", "+", "+", "-")

	want := []string{"pin:docs", "transparent:chat", "passthrough:chat", "mobile:chat", "zoom:chat", "zoom:chat", "zoom:chat"}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls = %v, want %v", fc.calls, want)
	}
	chat := fc.find("chat")
	if !chat.Transparent || !chat.PointerIgnore || !chat.MobileMode || chat.Zoom != 110 {
		t.Fatalf("chat = %+v", chat)
	}
	if !strings.Contains(m.statusText, "chat zoom: 110%") {
		t.Fatalf("status = %q", m.statusText)
	}
	if got := m.table.Rows()[0][3]; got != check(true) {
		t.Fatalf("pin cell for docs = %q", got)
	}
}

func TestModel_CloseRemovesRowAndClampsCursor(t *testing.T) {
	fc := twoWindows()
	m := press(t, newModel(fc), "down", "x")

	if !reflect.DeepEqual(fc.calls, []string{"close:chat"}) {
		t.Fatalf("calls = %v", fc.calls)
	}
	if len(m.table.Rows()) != 1 {
		t.Fatalf("rows = %d, want 1", len(m.table.Rows()))
	}
	if got := m.selectedLabel(); got != "docs" {
		t.Fatalf("selected = %q, want docs", got)
	}
}

func TestModel_ErrorsShowInStatus(t *testing.T) {
	fc := twoWindows()
	fc.opErr = errors.New(`window "docs" not found`)
	m := press(t, newModel(fc), "p")

	if !strings.Contains(m.statusText, `window "docs" not found`) {
		t.Fatalf("status = %q", m.statusText)
	}
}

func TestModel_NoDaemon(t *testing.T) {
	fc := &fakeClient{listErr: errors.New("failed to connect to daemon")}
	m := newModel(fc)
	if m.connected {
		t.Fatal("connected without a daemon")
	}

	m = press(t, m, "p", "x", "o")
	if len(fc.calls) != 0 {
		t.Fatalf("calls = %v, want none", fc.calls)
	}
	if m.open != nil {
		t.Fatal("open form shown without a daemon")
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	if view := next.View(); !strings.Contains(view, "daemon not running") {
		t.Fatalf("view does not report the missing daemon:\n%s", view)
	}
}

func TestModel_RefreshPicksUpNewWindows(t *testing.T) {
	fc := twoWindows()
	m := newModel(fc)
	fc.entries = append(fc.entries, window.Entry{Label: "new", Status: window.Status{Zoom: 100}})

	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatal("tick did not schedule the next refresh")
	}
	if got := len(next.(model).table.Rows()); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
}

func TestModel_OpenFormEscCancels(t *testing.T) {
	fc := twoWindows()
	m := press(t, newModel(fc), "o")
	if m.open == nil {
		t.Fatal("open form not shown")
	}
	m = press(t, m, "esc")
	if m.open != nil {
		t.Fatal("esc did not close the form")
	}
	if len(fc.calls) != 0 {
		t.Fatalf("calls = %v, want none", fc.calls)
	}
}

func TestColumns_URLTakesRemainingWidth(t *testing.T) {
	narrow := columns(0)
	wide := columns(200)
	if wide[2].Width <= narrow[2].Width {
		t.Fatalf("url width %d did not grow past %d", wide[2].Width, narrow[2].Width)
	}
	total := 0
	for _, c := range wide {
		total += c.Width + 2
	}
	if total != 200 {
		t.Fatalf("total width = %d, want 200", total)
	}
}
