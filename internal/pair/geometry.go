package pair

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/1broseidon/relais/internal/platform"
)

const (
	CtrlWidth  = 40
	CtrlHeight = 320

	ContentMinWidth  = 400
	ContentMinHeight = 400

	contentDefaultWidth  = 800
	contentDefaultHeight = 600
)

// ctrlOffset is the control window position relative to its content window.
var ctrlOffset = platform.Point{X: CtrlWidth, Y: 0}

// CtrlPosition returns where the control window belongs for a content window
// at contentPos.
func CtrlPosition(contentPos platform.Point) platform.Point {
	return contentPos.Sub(ctrlOffset)
}

// ContentPosition is the inverse of CtrlPosition.
func ContentPosition(ctrlPos platform.Point) platform.Point {
	return ctrlPos.Add(ctrlOffset)
}

// NormalizeURL prefixes https:// when raw does not start with "http" and
// requires the result to be an absolute URL with a host.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	if !strings.HasPrefix(strings.ToLower(s), "http") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute url", ErrInvalidURL, raw)
	}
	return u.String(), nil
}
