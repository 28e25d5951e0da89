package pair

import (
	"github.com/1broseidon/relais/internal/platform"
	"github.com/1broseidon/relais/internal/window"
)

// handleEvent runs on the loop. Events for unknown or closing pairs are
// dropped; they are usually echoes of our own teardown.
func (m *Manager) handleEvent(ev platform.Event) {
	p, ok := m.pairs[window.ContentLabel(ev.Label)]
	if !ok || p.phase != PhaseActive {
		m.logger.Debug("dropping event", "label", ev.Label, "kind", ev.Kind)
		return
	}
	fromCtrl := window.IsCtrlLabel(ev.Label)

	switch ev.Kind {
	case platform.EventMoved, platform.EventResized:
		if fromCtrl {
			if ev.Kind == platform.EventMoved {
				m.syncContent(p)
			}
			return
		}
		m.syncCtrl(p)

	case platform.EventFocused:
		switch {
		case !ev.Focused:
			m.maybeHideCtrl(p)
		case fromCtrl:
			m.onCtrlFocused(p)
		default:
			m.onContentFocused(p)
		}

	case platform.EventCloseRequested, platform.EventDestroyed:
		if err := m.teardown(p); err != nil {
			m.logger.Warn("teardown after window event failed",
				"label", p.rec.Label,
				"event", ev.Kind,
				"error", err)
		}
	}
}

// syncCtrl moves the control window next to the content window unless it is
// already there.
func (m *Manager) syncCtrl(p *pairState) {
	pos, err := p.content.Position()
	if err != nil {
		m.logger.Debug("read content position", "label", p.rec.Label, "error", err)
		return
	}
	want := CtrlPosition(pos)
	if cur, err := p.ctrl.Position(); err == nil && cur == want {
		return
	}
	if err := p.ctrl.SetPosition(want); err != nil {
		m.logger.Warn("failed to move control window", "label", p.rec.Label, "error", err)
	}
}

// syncContent drags the content window after the control window.
func (m *Manager) syncContent(p *pairState) {
	pos, err := p.ctrl.Position()
	if err != nil {
		m.logger.Debug("read control position", "label", p.rec.Label, "error", err)
		return
	}
	want := ContentPosition(pos)
	if cur, err := p.content.Position(); err == nil && cur == want {
		return
	}
	if err := p.content.SetPosition(want); err != nil {
		m.logger.Warn("failed to move content window", "label", p.rec.Label, "error", err)
	}
}

func (m *Manager) onContentFocused(p *pairState) {
	if err := p.ctrl.ShowInactive(); err != nil {
		m.logger.Warn("failed to show control window", "label", p.rec.Label, "error", err)
	}
	m.syncCtrl(p)
	if !p.content.IsFocused() {
		if err := p.content.Focus(); err != nil {
			m.logger.Debug("refocus content", "label", p.rec.Label, "error", err)
		}
	}
}

func (m *Manager) onCtrlFocused(p *pairState) {
	if p.content.IsMinimized() {
		if err := p.content.Unminimize(); err != nil {
			m.logger.Warn("failed to unminimize content window", "label", p.rec.Label, "error", err)
		}
	}
	if err := p.content.ShowInactive(); err != nil {
		m.logger.Warn("failed to show content window", "label", p.rec.Label, "error", err)
	}
}

// maybeHideCtrl hides the control window when, right now, neither window of
// the pair has focus. Focus often moves from one window of the pair to the
// other, which produces a focus-out just before the focus-in.
func (m *Manager) maybeHideCtrl(p *pairState) {
	if p.content.IsFocused() || p.ctrl.IsFocused() {
		return
	}
	if err := p.ctrl.Hide(); err != nil {
		m.logger.Debug("hide control window", "label", p.rec.Label, "error", err)
	}
}
