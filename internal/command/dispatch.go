package command

import (
	"context"
	"fmt"

	"github.com/1broseidon/relais/internal/window"
)

// Control page actions.
const (
	ActionClose       = "close"
	ActionMinimize    = "mini"
	ActionPin         = "pin"
	ActionTransparent = "transparent"
	ActionPassthrough = "passthrough"
	ActionAgent       = "agent"
	ActionZoomIn      = "zoomin"
	ActionZoomOut     = "zoomout"
)

// Dispatch runs a control page action. label may be either label of the pair.
func (s *Service) Dispatch(ctx context.Context, label, action string) error {
	label = window.ContentLabel(label)
	var err error
	switch action {
	case ActionClose:
		err = s.Close(ctx, label)
	case ActionMinimize:
		err = s.Minimize(ctx, label)
	case ActionPin:
		_, err = s.TogglePin(ctx, label)
	case ActionTransparent:
		_, err = s.ToggleTransparent(ctx, label)
	case ActionPassthrough:
		_, err = s.TogglePointerIgnore(ctx, label)
	case ActionAgent:
		_, err = s.ToggleUserAgent(ctx, label)
	case ActionZoomIn:
		_, err = s.SetZoom(ctx, label, ZoomStep)
	case ActionZoomOut:
		_, err = s.SetZoom(ctx, label, -ZoomStep)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return err
}

// PostAction runs Dispatch on its own goroutine. It is safe to call from
// runtime event goroutines.
func (s *Service) PostAction(label, action string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := s.Dispatch(ctx, label, action); err != nil {
			s.logger.Warn("control action failed", "label", label, "action", action, "error", err)
		}
	}()
}
