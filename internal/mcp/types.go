package mcp

import "github.com/1broseidon/relais/internal/window"

// OpenWindowInput is the input for the open_window tool.
type OpenWindowInput struct {
	URL   string `json:"url" jsonschema:"Page to load. A missing scheme defaults to https://"`
	Title string `json:"title,omitempty" jsonschema:"Window title (default: the url)"`
	Label string `json:"label,omitempty" jsonschema:"Stable window label (default: a generated window_<uuid> label)"`
}

// OpenWindowOutput is the output for the open_window tool.
type OpenWindowOutput struct {
	Label string `json:"label"`
}

// LabelInput addresses one window by its label.
type LabelInput struct {
	Label string `json:"label" jsonschema:"Window label as returned by open_window or list_windows"`
}

// FlagInput turns a window option on or off.
type FlagInput struct {
	Label   string `json:"label" jsonschema:"Window label"`
	Enabled *bool  `json:"enabled,omitempty" jsonschema:"New value. When omitted the current value is toggled."`
}

// FlagOutput reports the value of a window option after a change.
type FlagOutput struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// SetAlphaInput is the input for the set_alpha tool.
type SetAlphaInput struct {
	Label string `json:"label" jsonschema:"Window label"`
	Alpha int    `json:"alpha" jsonschema:"Overlay alpha from 0 (invisible) to 255 (opaque), used while the window is transparent"`
}

// SetZoomInput is the input for the set_zoom tool.
type SetZoomInput struct {
	Label   string `json:"label" jsonschema:"Window label"`
	Percent *int   `json:"percent,omitempty" jsonschema:"Absolute zoom percentage, clamped to 20-500"`
	Delta   int    `json:"delta,omitempty" jsonschema:"Zoom change in percentage points, used when percent is omitted"`
}

// SetZoomOutput is the output for the set_zoom tool.
type SetZoomOutput struct {
	Label string `json:"label"`
	Zoom  int    `json:"zoom"`
}

// WindowInfo describes one open window.
type WindowInfo struct {
	Label         string `json:"label"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Pin           bool   `json:"pin"`
	Transparent   bool   `json:"transparent"`
	Alpha         int    `json:"alpha"`
	PointerIgnore bool   `json:"pointer_ignore"`
	MobileMode    bool   `json:"mobile_mode"`
	Zoom          int    `json:"zoom"`
}

func windowInfo(e window.Entry) WindowInfo {
	return WindowInfo{
		Label:         e.Label,
		Title:         e.Title,
		URL:           e.URL,
		Pin:           e.Pin,
		Transparent:   e.Transparent,
		Alpha:         int(e.Alpha),
		PointerIgnore: e.PointerIgnore,
		MobileMode:    e.MobileMode,
		Zoom:          e.Zoom,
	}
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// ReleaseAllInput is the input for the release_all tool.
type ReleaseAllInput struct{}

// ReleaseAllOutput is the output for the release_all tool.
type ReleaseAllOutput struct {
	Released int `json:"released"`
}

// SaveInput is the input for the save_windows tool.
type SaveInput struct{}
