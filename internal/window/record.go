package window

import (
	"sync/atomic"
)

const (
	// DefaultAlpha is the overlay alpha a new window remembers until the user
	// picks another one.
	DefaultAlpha uint8 = 127
	// OpaqueAlpha disables layered transparency.
	OpaqueAlpha uint8 = 255

	DefaultZoom = 100
	MinZoom     = 20
	MaxZoom     = 500
)

// Record is the runtime state of one window pair. Every flag is an
// independent atomic, so readers on any goroutine see either the old or the
// new value of a field but never a mix. Fields are not updated together.
type Record struct {
	Label string
	Title string
	URL   string

	pin           atomic.Bool
	transparent   atomic.Bool
	alpha         atomic.Uint32
	pointerIgnore atomic.Bool
	mobileMode    atomic.Bool
	zoom          atomic.Int32
}

// Status is a value snapshot of a record's flags.
type Status struct {
	Pin           bool  `json:"pin"`
	Transparent   bool  `json:"transparent"`
	Alpha         uint8 `json:"alpha"`
	PointerIgnore bool  `json:"pointer_ignore"`
	MobileMode    bool  `json:"mobile_mode"`
	Zoom          int   `json:"zoom"`
}

// Entry is the serializable projection of a record.
type Entry struct {
	Label string `json:"label"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Status
}

// NewRecord returns a record with default flags.
func NewRecord(label, title, url string) *Record {
	r := &Record{Label: label, Title: title, URL: url}
	r.alpha.Store(uint32(DefaultAlpha))
	r.zoom.Store(DefaultZoom)
	return r
}

func (r *Record) Pin() bool { return r.pin.Load() }
func (r *Record) SetPin(v bool) { r.pin.Store(v) }
func (r *Record) Transparent() bool { return r.transparent.Load() }

// SetTransparent flips the overlay flag without touching the remembered alpha.
func (r *Record) SetTransparent(v bool) { r.transparent.Store(v) }

// Alpha returns the remembered overlay alpha, even while transparency is off.
func (r *Record) Alpha() uint8 { return uint8(r.alpha.Load()) }

func (r *Record) SetAlpha(a uint8) { r.alpha.Store(uint32(a)) }
func (r *Record) PointerIgnore() bool { return r.pointerIgnore.Load() }
func (r *Record) SetPointerIgnore(v bool) { r.pointerIgnore.Store(v) }
func (r *Record) MobileMode() bool { return r.mobileMode.Load() }
func (r *Record) SetMobileMode(v bool) { r.mobileMode.Store(v) }
func (r *Record) Zoom() int { return int(r.zoom.Load()) }

// SetZoom stores a zoom percentage, clamped to [MinZoom, MaxZoom].
func (r *Record) SetZoom(percent int) { r.zoom.Store(int32(ClampZoom(percent))) }

// EffectiveAlpha is the alpha the content window should currently render with.
func (r *Record) EffectiveAlpha() uint8 {
	if r.Transparent() {
		return r.Alpha()
	}
	return OpaqueAlpha
}

// Status reads every flag once.
func (r *Record) Status() Status {
	return Status{
		Pin:           r.Pin(),
		Transparent:   r.Transparent(),
		Alpha:         r.Alpha(),
		PointerIgnore: r.PointerIgnore(),
		MobileMode:    r.MobileMode(),
		Zoom:          r.Zoom(),
	}
}

// Entry returns the serializable form of the record.
func (r *Record) Entry() Entry {
	return Entry{
		Label:  r.Label,
		Title:  r.Title,
		URL:    r.URL,
		Status: r.Status(),
	}
}

// ClampZoom limits a zoom percentage to the supported range.
func ClampZoom(percent int) int {
	if percent < MinZoom {
		return MinZoom
	}
	if percent > MaxZoom {
		return MaxZoom
	}
	return percent
}

// ZoomScale converts a zoom percentage into a scale factor.
func ZoomScale(percent int) float64 {
	return float64(ClampZoom(percent)) / 100
}
