package pair

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/relais/internal/window"
)

// Restore recreates saved pairs in order. A failing entry is logged and
// collected but never stops the rest. When applyState is set the saved
// toggles are reapplied through the normal mutation path.
func (m *Manager) Restore(ctx context.Context, entries []window.Entry, applyState bool) ([]string, error) {
	var (
		labels []string
		errs   []error
	)
	for _, e := range entries {
		label, err := m.Create(ctx, CreateRequest{URL: e.URL, Title: e.Title, Label: e.Label})
		if err != nil {
			m.logger.Warn("failed to restore window", "label", e.Label, "url", e.URL, "error", err)
			errs = append(errs, fmt.Errorf("restore %q: %w", e.Label, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		labels = append(labels, label)

		if applyState {
			if err := m.applyStatus(ctx, label, e.Status); err != nil {
				m.logger.Warn("failed to restore window state", "label", label, "error", err)
				errs = append(errs, fmt.Errorf("restore state %q: %w", label, err))
			}
		}
	}
	return labels, errors.Join(errs...)
}

func (m *Manager) applyStatus(ctx context.Context, label string, st window.Status) error {
	var errs []error
	if err := m.SetAlpha(ctx, label, st.Alpha); err != nil {
		errs = append(errs, err)
	}
	if st.Transparent {
		if err := m.SetTransparent(ctx, label, true); err != nil {
			errs = append(errs, err)
		}
	}
	if st.Pin {
		if err := m.SetPin(ctx, label, true); err != nil {
			errs = append(errs, err)
		}
	}
	if st.PointerIgnore {
		if err := m.SetPointerIgnore(ctx, label, true); err != nil {
			errs = append(errs, err)
		}
	}
	if st.MobileMode {
		if err := m.SetMobileMode(ctx, label, true); err != nil {
			errs = append(errs, err)
		}
	}
	if st.Zoom != 0 && st.Zoom != window.DefaultZoom {
		if _, err := m.SetZoom(ctx, label, st.Zoom); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
