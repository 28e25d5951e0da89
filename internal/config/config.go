package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSerialization is returned when the config cannot be encoded or decoded.
	ErrSerialization = errors.New("config serialization failed")
	// ErrIO is returned when the config file cannot be read or written.
	ErrIO = errors.New("config i/o failed")
)

const (
	DefaultShortcutKey     = "ctrl+alt+r"
	DefaultAlpha           = 127
	DefaultAutosaveDelayMS = 500
	DefaultLogLevel        = "info"

	DefaultAgentDesktop = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultAgentMobile  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"

	minZoom = 20
	maxZoom = 500
)

// BrowserConfig selects and configures the Chromium instance hosting windows.
type BrowserConfig struct {
	// ExecPath is the browser binary. Empty means auto-detect.
	ExecPath string `yaml:"exec_path"`
	// ProfileDir is the user data dir. Empty means <runtime dir>/relais-profile.
	ProfileDir string `yaml:"profile_dir"`
	// Flags are extra command line switches, with or without leading dashes.
	Flags []string `yaml:"flags,omitempty"`
}

// WindowEntry is the saved form of one window pair.
type WindowEntry struct {
	Label         string `yaml:"label"`
	Title         string `yaml:"title"`
	URL           string `yaml:"url"`
	Pin           bool   `yaml:"pin"`
	Transparent   bool   `yaml:"transparent"`
	// Alpha is the remembered overlay alpha. Default: default_alpha
	Alpha         *int   `yaml:"alpha"`
	PointerIgnore bool   `yaml:"pointer_ignore"`
	MobileMode    bool   `yaml:"mobile_mode"`
	Zoom          int    `yaml:"zoom"`
}

// Config is the full contents of relais.yaml.
type Config struct {
	ShortcutKey  string `yaml:"shortcut_key"`
	AgentDesktop string `yaml:"agent_desktop"`
	AgentMobile  string `yaml:"agent_mobile"`
	DefaultAlpha int    `yaml:"default_alpha"`

	// RestoreState reapplies saved toggles on startup. Default: true
	RestoreState *bool `yaml:"restore_state"`
	// Autosave writes the window list after every change. Default: true
	Autosave        *bool  `yaml:"autosave"`
	AutosaveDelayMS int    `yaml:"autosave_delay_ms"`
	LogLevel        string `yaml:"log_level"`

	Browser BrowserConfig `yaml:"browser"`
	Windows []WindowEntry `yaml:"windows"`
}

// DefaultConfig returns a config with every global setting populated and no
// saved windows.
func DefaultConfig() *Config {
	restore := true
	autosave := true
	return &Config{
		ShortcutKey:     DefaultShortcutKey,
		AgentDesktop:    DefaultAgentDesktop,
		AgentMobile:     DefaultAgentMobile,
		DefaultAlpha:    DefaultAlpha,
		RestoreState:    &restore,
		Autosave:        &autosave,
		AutosaveDelayMS: DefaultAutosaveDelayMS,
		LogLevel:        DefaultLogLevel,
		Windows:         []WindowEntry{},
	}
}

// GetRestoreState returns the effective value, defaulting to true.
func (c *Config) GetRestoreState() bool {
	if c == nil || c.RestoreState == nil {
		return true
	}
	return *c.RestoreState
}

// GetAutosave returns the effective value, defaulting to true.
func (c *Config) GetAutosave() bool {
	if c == nil || c.Autosave == nil {
		return true
	}
	return *c.Autosave
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.RestoreState != nil {
		v := *c.RestoreState
		out.RestoreState = &v
	}
	if c.Autosave != nil {
		v := *c.Autosave
		out.Autosave = &v
	}
	out.Browser.Flags = append([]string(nil), c.Browser.Flags...)
	out.Windows = make([]WindowEntry, len(c.Windows))
	for i, w := range c.Windows {
		if w.Alpha != nil {
			v := *w.Alpha
			w.Alpha = &v
		}
		out.Windows[i] = w
	}
	return &out
}

// applyDefaults fills zero global settings. Windows are left alone.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if strings.TrimSpace(c.ShortcutKey) == "" {
		c.ShortcutKey = def.ShortcutKey
	}
	if c.AgentDesktop == "" {
		c.AgentDesktop = def.AgentDesktop
	}
	if c.AgentMobile == "" {
		c.AgentMobile = def.AgentMobile
	}
	if c.DefaultAlpha == 0 {
		c.DefaultAlpha = def.DefaultAlpha
	}
	if c.RestoreState == nil {
		c.RestoreState = def.RestoreState
	}
	if c.Autosave == nil {
		c.Autosave = def.Autosave
	}
	if c.AutosaveDelayMS == 0 {
		c.AutosaveDelayMS = def.AutosaveDelayMS
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Windows == nil {
		c.Windows = []WindowEntry{}
	}
	for i := range c.Windows {
		if c.Windows[i].Zoom == 0 {
			c.Windows[i].Zoom = 100
		}
		if c.Windows[i].Alpha == nil {
			alpha := c.DefaultAlpha
			c.Windows[i].Alpha = &alpha
		}
	}
}

type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate performs strict validation of the configuration.
func (c *Config) Validate() error {
	if _, err := ParseShortcut(c.ShortcutKey); err != nil {
		return &ValidationError{Path: "shortcut_key", Err: err}
	}
	if strings.TrimSpace(c.AgentDesktop) == "" {
		return &ValidationError{Path: "agent_desktop", Err: fmt.Errorf("agent_desktop must not be empty")}
	}
	if strings.TrimSpace(c.AgentMobile) == "" {
		return &ValidationError{Path: "agent_mobile", Err: fmt.Errorf("agent_mobile must not be empty")}
	}
	if c.DefaultAlpha < 0 || c.DefaultAlpha > 255 {
		return &ValidationError{Path: "default_alpha", Err: fmt.Errorf("default_alpha must be between 0 and 255")}
	}
	if c.AutosaveDelayMS < 0 {
		return &ValidationError{Path: "autosave_delay_ms", Err: fmt.Errorf("autosave_delay_ms must be >= 0")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}

	seen := make(map[string]struct{}, len(c.Windows))
	for i, w := range c.Windows {
		if err := validateWindow(i, w, seen); err != nil {
			return err
		}
		seen[w.Label] = struct{}{}
	}
	return nil
}

func validateWindow(i int, w WindowEntry, seen map[string]struct{}) error {
	path := fmt.Sprintf("windows[%d]", i)
	if strings.TrimSpace(w.Label) == "" {
		return &ValidationError{Path: path + ".label", Err: fmt.Errorf("label is required")}
	}
	if _, dup := seen[w.Label]; dup {
		return &ValidationError{Path: path + ".label", Err: fmt.Errorf("duplicate label %q", w.Label)}
	}
	if w.Alpha != nil && (*w.Alpha < 0 || *w.Alpha > 255) {
		return &ValidationError{Path: path + ".alpha", Err: fmt.Errorf("alpha must be between 0 and 255")}
	}
	if w.Zoom != 0 && (w.Zoom < minZoom || w.Zoom > maxZoom) {
		return &ValidationError{Path: path + ".zoom", Err: fmt.Errorf("zoom must be between %d and %d", minZoom, maxZoom)}
	}
	return nil
}

// repairWindows clamps out of range alpha and zoom values and drops saved
// windows without a usable label. It returns one error per change.
func (c *Config) repairWindows() []error {
	var changes []error
	seen := make(map[string]struct{}, len(c.Windows))
	kept := make([]WindowEntry, 0, len(c.Windows))
	for i, w := range c.Windows {
		path := fmt.Sprintf("windows[%d]", i)
		if w.Alpha != nil && (*w.Alpha < 0 || *w.Alpha > 255) {
			alpha := min(max(*w.Alpha, 0), 255)
			changes = append(changes, &ValidationError{Path: path + ".alpha", Err: fmt.Errorf("alpha %d clamped to %d", *w.Alpha, alpha)})
			w.Alpha = &alpha
		}
		if w.Zoom != 0 && (w.Zoom < minZoom || w.Zoom > maxZoom) {
			zoom := min(max(w.Zoom, minZoom), maxZoom)
			changes = append(changes, &ValidationError{Path: path + ".zoom", Err: fmt.Errorf("zoom %d clamped to %d", w.Zoom, zoom)})
			w.Zoom = zoom
		}
		if err := validateWindow(i, w, seen); err != nil {
			changes = append(changes, fmt.Errorf("dropped saved window: %w", err))
			continue
		}
		seen[w.Label] = struct{}{}
		kept = append(kept, w)
	}
	c.Windows = kept
	return changes
}
