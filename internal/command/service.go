// Package command is the user-facing command surface shared by the control
// pages, the IPC socket, the MCP server and the global shortcut.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/relais/internal/config"
	"github.com/1broseidon/relais/internal/pair"
	"github.com/1broseidon/relais/internal/window"
)

// ZoomStep is the zoom change applied by the control page buttons.
const ZoomStep = 10

// actionTimeout bounds control page actions, which have no caller to wait.
const actionTimeout = 10 * time.Second

// Saver persists the registry.
type Saver interface {
	Save() error
}

// Service exposes every user command. Errors returned from its methods are
// plain messages; internal details are logged instead.
type Service struct {
	mgr    *pair.Manager
	reg    *window.Registry
	saver  Saver
	store  *config.Store
	logger *slog.Logger
}

// NewService creates the command surface. saver and store may be nil, in
// which case Save and Reload fail.
func NewService(mgr *pair.Manager, saver Saver, store *config.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		mgr:    mgr,
		reg:    mgr.Registry(),
		saver:  saver,
		store:  store,
		logger: logger,
	}
}

func (s *Service) fail(op, label string, err error) error {
	if err == nil {
		return nil
	}
	s.logger.Warn("command failed", "op", op, "label", label, "error", err)
	return userError(label, err)
}

// Create opens a window pair and returns its label.
func (s *Service) Create(ctx context.Context, url, title, label string) (string, error) {
	got, err := s.mgr.Create(ctx, pair.CreateRequest{URL: url, Title: title, Label: label})
	if err != nil {
		return "", s.fail("create", label, err)
	}
	return got, nil
}

// Close tears down a window pair.
func (s *Service) Close(ctx context.Context, label string) error {
	return s.fail("close", label, s.mgr.Close(ctx, label))
}

func (s *Service) status(label string) (window.Status, error) {
	st, ok := s.reg.Get(window.ContentLabel(label))
	if !ok {
		return window.Status{}, fmt.Errorf("window %q not found", label)
	}
	return st, nil
}

// GetStatus returns every flag of a window.
func (s *Service) GetStatus(label string) (window.Status, error) {
	return s.status(label)
}

// Entry returns the label, title, URL and flags of a window.
func (s *Service) Entry(label string) (window.Entry, error) {
	rec, err := s.reg.Lookup(window.ContentLabel(label))
	if err != nil {
		return window.Entry{}, fmt.Errorf("window %q not found", label)
	}
	return rec.Entry(), nil
}

// List returns every window in creation order.
func (s *Service) List() []window.Entry {
	return s.reg.Snapshot()
}

func (s *Service) SetPin(ctx context.Context, label string, on bool) error {
	return s.fail("set_pin", label, s.mgr.SetPin(ctx, label, on))
}

func (s *Service) GetPin(label string) (bool, error) {
	st, err := s.status(label)
	return st.Pin, err
}

func (s *Service) TogglePin(ctx context.Context, label string) (bool, error) {
	on, err := s.mgr.TogglePin(ctx, label)
	return on, s.fail("toggle_pin", label, err)
}

func (s *Service) SetTransparent(ctx context.Context, label string, on bool) error {
	return s.fail("set_transparent", label, s.mgr.SetTransparent(ctx, label, on))
}

// GetTransparent returns the overlay flag and the remembered alpha.
func (s *Service) GetTransparent(label string) (bool, uint8, error) {
	st, err := s.status(label)
	return st.Transparent, st.Alpha, err
}

func (s *Service) ToggleTransparent(ctx context.Context, label string) (bool, error) {
	on, err := s.mgr.ToggleTransparent(ctx, label)
	return on, s.fail("toggle_transparent", label, err)
}

// SetAlpha changes the remembered overlay alpha.
func (s *Service) SetAlpha(ctx context.Context, label string, alpha uint8) error {
	return s.fail("set_alpha", label, s.mgr.SetAlpha(ctx, label, alpha))
}

func (s *Service) SetPointerIgnore(ctx context.Context, label string, on bool) error {
	return s.fail("set_pointer_ignore", label, s.mgr.SetPointerIgnore(ctx, label, on))
}

func (s *Service) GetPointerIgnore(label string) (bool, error) {
	st, err := s.status(label)
	return st.PointerIgnore, err
}

func (s *Service) TogglePointerIgnore(ctx context.Context, label string) (bool, error) {
	on, err := s.mgr.TogglePointerIgnore(ctx, label)
	return on, s.fail("toggle_pointer_ignore", label, err)
}

// SetUserAgent selects the mobile (true) or desktop (false) user agent.
func (s *Service) SetUserAgent(ctx context.Context, label string, mobile bool) error {
	return s.fail("set_user_agent", label, s.mgr.SetMobileMode(ctx, label, mobile))
}

// GetUserAgent reports whether the mobile user agent is active.
func (s *Service) GetUserAgent(label string) (bool, error) {
	st, err := s.status(label)
	return st.MobileMode, err
}

func (s *Service) ToggleUserAgent(ctx context.Context, label string) (bool, error) {
	on, err := s.mgr.ToggleMobileMode(ctx, label)
	return on, s.fail("toggle_user_agent", label, err)
}

// SetZoom adds delta percentage points to the zoom and returns the result.
func (s *Service) SetZoom(ctx context.Context, label string, delta int) (int, error) {
	z, err := s.mgr.AdjustZoom(ctx, label, delta)
	return z, s.fail("set_zoom", label, err)
}

// SetZoomPercent sets an absolute zoom percentage.
func (s *Service) SetZoomPercent(ctx context.Context, label string, percent int) (int, error) {
	z, err := s.mgr.SetZoom(ctx, label, percent)
	return z, s.fail("set_zoom", label, err)
}

func (s *Service) Minimize(ctx context.Context, label string) error {
	return s.fail("minimize", label, s.mgr.Minimize(ctx, label))
}

func (s *Service) Focus(ctx context.Context, label string) error {
	return s.fail("focus", label, s.mgr.Focus(ctx, label))
}

// ReleaseAll turns pointer passthrough off everywhere.
func (s *Service) ReleaseAll(ctx context.Context) (int, error) {
	n, err := s.mgr.ReleaseAll(ctx)
	return n, s.fail("release_all", "", err)
}

// Save writes the registry to the config file.
func (s *Service) Save() error {
	if s.saver == nil {
		return s.fail("save", "", fmt.Errorf("%w: no saver configured", config.ErrIO))
	}
	return s.fail("save", "", s.saver.Save())
}

// Reload rereads global settings from the config file.
func (s *Service) Reload() error {
	if s.store == nil {
		return s.fail("reload", "", fmt.Errorf("%w: no config store", config.ErrIO))
	}
	if err := s.store.Reload(); err != nil {
		s.logger.Warn("command failed", "op", "reload", "error", err)
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid config: %s", verr.Error())
		}
		return errors.New("failed to read config")
	}
	return nil
}
