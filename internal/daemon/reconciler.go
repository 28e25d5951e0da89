package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/relais/internal/platform"
	"github.com/1broseidon/relais/internal/window"
)

// DefaultInterval is how often the reconciler looks for vanished windows.
const DefaultInterval = 10 * time.Second

// Pairs is the view of the pair manager the reconciler needs.
type Pairs interface {
	Labels() []string
	PostEvent(platform.Event)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for windows that disappeared without an
// event and closes their pairs.
type Reconciler struct {
	interval time.Duration
	runtime  platform.Runtime
	pairs    Pairs
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, runtime platform.Runtime, pairs Pairs) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		runtime:  runtime,
		pairs:    pairs,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single pass and returns the labels it closed.
func (r *Reconciler) reconcile() (closed []string) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	expected := r.pairs.Labels()
	if len(expected) == 0 {
		return nil
	}

	alive, err := r.runtime.Alive()
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return nil
	}
	aliveSet := make(map[string]bool, len(alive))
	for _, label := range alive {
		aliveSet[label] = true
	}

	for _, label := range expected {
		if aliveSet[label] {
			continue
		}
		r.logger.Info("reconciler: content window vanished",
			"label", label,
			"ctrl_alive", aliveSet[window.CtrlLabel(label)])
		r.pairs.PostEvent(platform.Event{Label: label, Kind: platform.EventCloseRequested})
		closed = append(closed, label)
	}
	return closed
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() []string {
	return r.reconcile()
}
