package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if !cfg.GetRestoreState() || !cfg.GetAutosave() {
		t.Fatalf("expected restore_state and autosave to default to true")
	}
}

func TestGetters_NilDefaults(t *testing.T) {
	var cfg *Config
	if !cfg.GetRestoreState() || !cfg.GetAutosave() {
		t.Fatal("nil config getters should default to true")
	}
	off := false
	cfg = &Config{RestoreState: &off, Autosave: &off}
	if cfg.GetRestoreState() || cfg.GetAutosave() {
		t.Fatal("explicit false should win")
	}
}

func TestLoadFromPath_MissingAndEmptyFileUseDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromPath(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.ShortcutKey != DefaultShortcutKey {
		t.Fatalf("expected shortcut %q, got %q", DefaultShortcutKey, cfg.ShortcutKey)
	}

	path := filepath.Join(dir, "relais.yaml")
	if err := os.WriteFile(path, []byte("# empty\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = LoadFromPath(path)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if cfg.AutosaveDelayMS != DefaultAutosaveDelayMS || cfg.DefaultAlpha != DefaultAlpha {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relais.yaml")
	if err := os.WriteFile(path, []byte("shortcut_key: ctrl+alt+r\nnot_a_key: 1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadFromPath(path)
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestLoadFromPath_WindowDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relais.yaml")
	data := strings.Join([]string{
		"default_alpha: 90",
		"windows:",
		"  - label: window_a",
		"    url: https://example.com",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Windows) != 1 {
		t.Fatalf("expected one window, got %d", len(cfg.Windows))
	}
	w := cfg.Windows[0]
	if w.Zoom != 100 || w.Alpha == nil || *w.Alpha != 90 {
		t.Fatalf("expected zoom 100 and alpha 90, got zoom %d alpha %v", w.Zoom, w.Alpha)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad shortcut", func(c *Config) { c.ShortcutKey = "ctrl+" }, "shortcut_key"},
		{"no modifier", func(c *Config) { c.ShortcutKey = "r" }, "shortcut_key"},
		{"empty desktop agent", func(c *Config) { c.AgentDesktop = " " }, "agent_desktop"},
		{"empty mobile agent", func(c *Config) { c.AgentMobile = "" }, "agent_mobile"},
		{"alpha too high", func(c *Config) { c.DefaultAlpha = 256 }, "default_alpha"},
		{"negative delay", func(c *Config) { c.AutosaveDelayMS = -1 }, "autosave_delay_ms"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"window zoom low", func(c *Config) {
			c.Windows = []WindowEntry{{Label: "a", URL: "https://a", Zoom: 10}}
		}, "windows[0].zoom"},
		{"window zoom high", func(c *Config) {
			c.Windows = []WindowEntry{{Label: "a", URL: "https://a", Zoom: 501}}
		}, "windows[0].zoom"},
		{"window alpha", func(c *Config) {
			c.Windows = []WindowEntry{{Label: "a", URL: "https://a", Alpha: intPtr(-1)}}
		}, "windows[0].alpha"},
		{"duplicate label", func(c *Config) {
			c.Windows = []WindowEntry{{Label: "a"}, {Label: "a"}}
		}, "windows[1].label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestParseShortcut(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ctrl+alt+r", "Control-Mod1-r", false},
		{"Ctrl+Shift+F5", "Control-Shift-F5", false},
		{"super+space", "Mod4-space", false},
		{" alt + 1 ", "Mod1-1", false},
		{"ctrl+alt", "", true},
		{"ctrl+ctrl+r", "", true},
		{"hyper+r", "", true},
		{"ctrl+f25", "", true},
		{"ctrl++r", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		sc, err := ParseShortcut(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseShortcut(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && sc.Keybind() != tt.want {
			t.Errorf("ParseShortcut(%q).Keybind() = %q, want %q", tt.in, sc.Keybind(), tt.want)
		}
	}
}

func TestOpen_CreatesAndPopulatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relais.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "shortcut_key: ctrl+alt+r") {
		t.Fatalf("expected defaults to be written, got:\n%s", data)
	}
	if store.Path() != path {
		t.Fatalf("path = %q, want %q", store.Path(), path)
	}
}

func TestStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relais.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	want := []WindowEntry{
		{Label: "window_a", Title: "A", URL: "https://a.example", Pin: true, Alpha: intPtr(60), Transparent: true, Zoom: 150},
		{Label: "window_b", URL: "https://b.example", Alpha: intPtr(0), PointerIgnore: true, MobileMode: true, Zoom: 100},
	}
	store.SetWindows(want)
	store.Update(func(c *Config) { c.ShortcutKey = "ctrl+shift+q" })
	if err := store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Read()
	if !reflect.DeepEqual(got.Windows, want) {
		t.Fatalf("windows = %+v, want %+v", got.Windows, want)
	}
	if got.ShortcutKey != "ctrl+shift+q" {
		t.Fatalf("shortcut = %q", got.ShortcutKey)
	}
}

func TestStore_ReadIsDeepCopy(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "relais.yaml"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store.SetWindows([]WindowEntry{{Label: "a", URL: "https://a"}})

	cfg := store.Read()
	cfg.Windows[0].URL = "changed"
	*cfg.RestoreState = false

	again := store.Read()
	if again.Windows[0].URL != "https://a" || !again.GetRestoreState() {
		t.Fatal("mutating a read copy changed the store")
	}
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relais.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _ := os.ReadFile(path)

	store.Update(func(c *Config) { c.AgentMobile = "" })
	if err := store.Save(); err == nil {
		t.Fatal("expected validation error")
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatal("invalid config was written")
	}
}

func TestStore_ReloadKeepsWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relais.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store.SetWindows([]WindowEntry{{Label: "live", URL: "https://live"}})

	data := "shortcut_key: super+r\nwindows: []\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	cfg := store.Read()
	if cfg.ShortcutKey != "super+r" {
		t.Fatalf("shortcut = %q, want super+r", cfg.ShortcutKey)
	}
	if len(cfg.Windows) != 1 || cfg.Windows[0].Label != "live" {
		t.Fatalf("reload replaced in-memory windows: %+v", cfg.Windows)
	}
}

func TestStore_WatchReloadsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relais.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, nil, func(c Config) { changes <- c })
	}()

	// Give the watcher time to register before editing.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte("agent_mobile: custom-mobile\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.AgentMobile != "custom-mobile" {
			t.Fatalf("agent_mobile = %q", cfg.AgentMobile)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after external edit")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
}

func TestOpen_RepairsBadSavedWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relais.yaml")
	data := strings.Join([]string{
		"windows:",
		"  - label: window_a",
		"    url: https://a.example",
		"    zoom: 900",
		"    alpha: 300",
		"  - label: window_a",
		"    url: https://dup.example",
		"  - label: \"\"",
		"    url: https://nolabel.example",
		"  - label: window_b",
		"    url: https://b.example",
		"    alpha: 0",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("LoadFromPath accepted an invalid saved window")
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := len(store.Repairs()); got != 4 {
		t.Fatalf("expected 4 repairs (zoom, alpha, duplicate, empty label), got %d: %v", got, store.Repairs())
	}
	want := []WindowEntry{
		{Label: "window_a", URL: "https://a.example", Zoom: 500, Alpha: intPtr(255)},
		{Label: "window_b", URL: "https://b.example", Zoom: 100, Alpha: intPtr(0)},
	}
	if got := store.Read().Windows; !reflect.DeepEqual(got, want) {
		t.Fatalf("windows = %+v, want %+v", got, want)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("save after repair: %v", err)
	}
}

func TestOpen_InvalidGlobalSettingStillFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relais.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var verr *ValidationError
	if _, err := Open(path); !errors.As(err, &verr) || verr.Path != "log_level" {
		t.Fatalf("expected log_level ValidationError, got %v", err)
	}
}
