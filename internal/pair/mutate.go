package pair

import (
	"context"
	"errors"

	"github.com/1broseidon/relais/internal/window"
)

// SetPin sets always-on-top for both windows of the pair.
func (m *Manager) SetPin(ctx context.Context, label string, on bool) error {
	return m.mutate(ctx, label, func(p *pairState) error {
		return m.applyPin(p, on)
	})
}

// TogglePin flips always-on-top and returns the new value.
func (m *Manager) TogglePin(ctx context.Context, label string) (bool, error) {
	return mutateValue(ctx, m, label, func(p *pairState) (bool, error) {
		on := !p.rec.Pin()
		return on, m.applyPin(p, on)
	})
}

func (m *Manager) applyPin(p *pairState, on bool) error {
	if err := m.styler.SetPin(p.content, on); err != nil {
		return osErr("set pin", err)
	}
	if err := m.styler.SetPin(p.ctrl, on); err != nil {
		m.logger.Warn("failed to pin control window", "label", p.rec.Label, "error", err)
	}
	p.rec.SetPin(on)
	return nil
}

// SetTransparent turns the overlay on with the remembered alpha, or off.
func (m *Manager) SetTransparent(ctx context.Context, label string, on bool) error {
	return m.mutate(ctx, label, func(p *pairState) error {
		return m.applyTransparent(p, on)
	})
}

// ToggleTransparent flips the overlay and returns the new value.
func (m *Manager) ToggleTransparent(ctx context.Context, label string) (bool, error) {
	return mutateValue(ctx, m, label, func(p *pairState) (bool, error) {
		on := !p.rec.Transparent()
		return on, m.applyTransparent(p, on)
	})
}

func (m *Manager) applyTransparent(p *pairState, on bool) error {
	alpha := window.OpaqueAlpha
	if on {
		alpha = p.rec.Alpha()
	}
	if err := m.styler.SetTransparent(p.content, alpha); err != nil {
		return osErr("set transparent", err)
	}
	p.rec.SetTransparent(on)
	return nil
}

// SetAlpha changes the remembered overlay alpha. While transparency is on the
// new alpha is applied immediately.
func (m *Manager) SetAlpha(ctx context.Context, label string, alpha uint8) error {
	return m.mutate(ctx, label, func(p *pairState) error {
		if p.rec.Transparent() {
			if err := m.styler.SetTransparent(p.content, alpha); err != nil {
				return osErr("set alpha", err)
			}
		}
		p.rec.SetAlpha(alpha)
		return nil
	})
}

// SetPointerIgnore makes the content window click-through.
func (m *Manager) SetPointerIgnore(ctx context.Context, label string, on bool) error {
	return m.mutate(ctx, label, func(p *pairState) error {
		return m.applyPointerIgnore(p, on)
	})
}

// TogglePointerIgnore flips click-through and returns the new value.
func (m *Manager) TogglePointerIgnore(ctx context.Context, label string) (bool, error) {
	return mutateValue(ctx, m, label, func(p *pairState) (bool, error) {
		on := !p.rec.PointerIgnore()
		return on, m.applyPointerIgnore(p, on)
	})
}

func (m *Manager) applyPointerIgnore(p *pairState, on bool) error {
	if err := m.styler.SetPointerIgnore(p.content, on); err != nil {
		return osErr("set pointer ignore", err)
	}
	p.rec.SetPointerIgnore(on)
	return nil
}

// SetMobileMode switches the content page between the desktop and mobile
// user agents. The page reloads.
func (m *Manager) SetMobileMode(ctx context.Context, label string, on bool) error {
	return m.mutate(ctx, label, func(p *pairState) error {
		return m.applyMobileMode(p, on)
	})
}

// ToggleMobileMode flips the user agent and returns the new mobile flag.
func (m *Manager) ToggleMobileMode(ctx context.Context, label string) (bool, error) {
	return mutateValue(ctx, m, label, func(p *pairState) (bool, error) {
		on := !p.rec.MobileMode()
		return on, m.applyMobileMode(p, on)
	})
}

func (m *Manager) applyMobileMode(p *pairState, on bool) error {
	if m.browser == nil {
		return osErr("set user agent", errors.New("no browser surface"))
	}
	desktop, mobile := m.agents()
	ua := desktop
	if on {
		ua = mobile
	}
	if err := m.browser.SetUserAgent(p.content, ua); err != nil {
		return osErr("set user agent", err)
	}
	p.rec.SetMobileMode(on)
	return nil
}

// SetZoom sets the zoom percentage, clamped to the supported range, and
// returns the applied value.
func (m *Manager) SetZoom(ctx context.Context, label string, percent int) (int, error) {
	return mutateValue(ctx, m, label, func(p *pairState) (int, error) {
		return m.applyZoom(p, percent)
	})
}

// AdjustZoom adds delta to the current zoom percentage.
func (m *Manager) AdjustZoom(ctx context.Context, label string, delta int) (int, error) {
	return mutateValue(ctx, m, label, func(p *pairState) (int, error) {
		return m.applyZoom(p, addZoom(p.rec.Zoom(), delta))
	})
}

// addZoom returns cur+delta, saturating at the zoom limits instead of
// overflowing.
func addZoom(cur, delta int) int {
	switch {
	case delta > 0 && delta > window.MaxZoom-cur:
		return window.MaxZoom
	case delta < 0 && delta < window.MinZoom-cur:
		return window.MinZoom
	}
	return cur + delta
}

func (m *Manager) applyZoom(p *pairState, percent int) (int, error) {
	percent = window.ClampZoom(percent)
	if err := m.styler.SetZoom(p.content, window.ZoomScale(percent)); err != nil {
		return p.rec.Zoom(), osErr("set zoom", err)
	}
	p.rec.SetZoom(percent)
	return percent, nil
}

// Minimize minimizes the content window and hides the control strip.
func (m *Manager) Minimize(ctx context.Context, label string) error {
	return m.do(ctx, func() error {
		p, err := m.lookup(label)
		if err != nil {
			return err
		}
		if err := p.content.Minimize(); err != nil {
			return osErr("minimize", err)
		}
		if err := p.ctrl.Hide(); err != nil {
			m.logger.Warn("failed to hide control window", "label", p.rec.Label, "error", err)
		}
		return nil
	})
}

// Focus restores and focuses the content window.
func (m *Manager) Focus(ctx context.Context, label string) error {
	return m.do(ctx, func() error {
		p, err := m.lookup(label)
		if err != nil {
			return err
		}
		if p.content.IsMinimized() {
			if err := p.content.Unminimize(); err != nil {
				return osErr("unminimize", err)
			}
		}
		if err := p.content.Show(); err != nil {
			return osErr("show", err)
		}
		if err := p.content.Focus(); err != nil {
			return osErr("focus", err)
		}
		return nil
	})
}

// ReleaseAll clears pointer passthrough on every pair and shows every control
// window. It returns how many pairs were released.
func (m *Manager) ReleaseAll(ctx context.Context) (int, error) {
	return call(ctx, m, func() (int, error) {
		released := 0
		var errs []error
		for _, label := range m.reg.Labels() {
			p, ok := m.pairs[label]
			if !ok || p.phase != PhaseActive {
				continue
			}
			if p.rec.PointerIgnore() {
				if err := m.applyPointerIgnore(p, false); err != nil {
					errs = append(errs, err)
					continue
				}
				released++
			}
			m.syncCtrl(p)
			if err := p.ctrl.ShowInactive(); err != nil {
				m.logger.Warn("failed to show control window", "label", label, "error", err)
			}
		}
		if released > 0 {
			m.notify()
		}
		return released, errors.Join(errs...)
	})
}
