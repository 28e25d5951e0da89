package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestIgnoreFocus(t *testing.T) {
	tests := []struct {
		name   string
		mode   byte
		detail byte
		want   bool
	}{
		{"normal nonlinear", xproto.NotifyModeNormal, xproto.NotifyDetailNonlinear, false},
		{"normal inferior", xproto.NotifyModeNormal, xproto.NotifyDetailInferior, false},
		{"grab", xproto.NotifyModeGrab, xproto.NotifyDetailNonlinear, true},
		{"ungrab", xproto.NotifyModeUngrab, xproto.NotifyDetailNonlinear, true},
		{"pointer", xproto.NotifyModeNormal, xproto.NotifyDetailPointer, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ignoreFocus(tt.mode, tt.detail); got != tt.want {
				t.Fatalf("ignoreFocus(%d, %d) = %v, want %v", tt.mode, tt.detail, got, tt.want)
			}
		})
	}
}

func TestMonitorAt(t *testing.T) {
	monitors := []Monitor{
		{Name: "left", X: 0, Y: 0, Width: 1920, Height: 1080},
		{Name: "right", X: 1920, Y: 0, Width: 2560, Height: 1440},
	}
	tests := []struct {
		x, y int
		want string
	}{
		{10, 10, "left"},
		{1919, 1079, "left"},
		{1920, 0, "right"},
		{4000, 1400, "right"},
		{-5, -5, "left"},
	}
	for _, tt := range tests {
		if got := monitorAt(monitors, tt.x, tt.y); got.Name != tt.want {
			t.Errorf("monitorAt(%d, %d) = %q, want %q", tt.x, tt.y, got.Name, tt.want)
		}
	}
}

func TestMonitorCentered(t *testing.T) {
	m := Monitor{X: 1920, Y: 0, Width: 2560, Height: 1440}
	if x, y := m.Centered(800, 600); x != 1920+880 || y != 420 {
		t.Fatalf("Centered(800, 600) = %d, %d", x, y)
	}
	if x, y := m.Centered(3000, 2000); x != 1920 || y != 0 {
		t.Fatalf("oversized window should clamp to the monitor origin, got %d, %d", x, y)
	}
}
