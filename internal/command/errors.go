package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/relais/internal/config"
	"github.com/1broseidon/relais/internal/pair"
	"github.com/1broseidon/relais/internal/window"
)

// userError turns an internal error into a short message safe to show to a
// user. The label is used when the error is about a specific window.
func userError(label string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, window.ErrNotFound):
		return fmt.Errorf("window %q not found", label)
	case errors.Is(err, window.ErrDuplicateLabel):
		return fmt.Errorf("label %q already exists", label)
	case errors.Is(err, pair.ErrInvalidLabel):
		return fmt.Errorf("label %q is reserved", label)
	case errors.Is(err, pair.ErrInvalidURL):
		return errors.New("invalid url")
	case errors.Is(err, pair.ErrOsOperation):
		return errors.New("window operation failed")
	case errors.Is(err, pair.ErrStopped):
		return errors.New("daemon is shutting down")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errors.New("request timed out")
	case errors.Is(err, config.ErrIO), errors.Is(err, config.ErrSerialization):
		return errors.New("failed to save config")
	default:
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid config: %s", verr.Error())
		}
		return errors.New("internal error")
	}
}
