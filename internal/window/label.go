package window

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// LabelPrefix marks generated content window labels.
	LabelPrefix = "window_"
	// CtrlLabelPrefix is reserved for control windows; the rest of the label is
	// the content window label.
	CtrlLabelPrefix = "ctrl_"
)

// NewLabel generates a random content window label.
func NewLabel() string {
	return LabelPrefix + uuid.NewString()
}

// CtrlLabel returns the control window label paired with a content label.
func CtrlLabel(label string) string {
	return CtrlLabelPrefix + label
}

// IsCtrlLabel reports whether label names a control window.
func IsCtrlLabel(label string) bool {
	return strings.HasPrefix(label, CtrlLabelPrefix)
}

// ContentLabel maps either label of a pair to the content window label.
func ContentLabel(label string) string {
	return strings.TrimPrefix(label, CtrlLabelPrefix)
}
