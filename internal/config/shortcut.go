package config

import (
	"fmt"
	"strings"
)

// Shortcut is a parsed global shortcut such as "ctrl+alt+r".
type Shortcut struct {
	Modifiers []string
	Key       string
}

var modifierNames = map[string]string{
	"ctrl":    "Control",
	"control": "Control",
	"alt":     "Mod1",
	"shift":   "Shift",
	"super":   "Mod4",
	"meta":    "Mod4",
	"win":     "Mod4",
}

var keyNames = map[string]string{
	"space":  "space",
	"enter":  "Return",
	"return": "Return",
	"tab":    "Tab",
	"esc":    "Escape",
	"escape": "Escape",
}

// ParseShortcut parses a "+"-separated shortcut. At least one modifier and
// exactly one key are required.
func ParseShortcut(s string) (Shortcut, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Shortcut{}, fmt.Errorf("shortcut is required")
	}

	parts := strings.Split(strings.ToLower(s), "+")
	var sc Shortcut
	seen := make(map[string]bool)
	for i, raw := range parts {
		part := strings.TrimSpace(raw)
		if part == "" {
			return Shortcut{}, fmt.Errorf("invalid shortcut %q: empty segment", s)
		}
		if mod, ok := modifierNames[part]; ok && i < len(parts)-1 {
			if seen[mod] {
				return Shortcut{}, fmt.Errorf("invalid shortcut %q: repeated modifier %q", s, part)
			}
			seen[mod] = true
			sc.Modifiers = append(sc.Modifiers, mod)
			continue
		}
		if i != len(parts)-1 {
			return Shortcut{}, fmt.Errorf("invalid shortcut %q: unknown modifier %q", s, part)
		}
		key, err := normalizeKey(part)
		if err != nil {
			return Shortcut{}, fmt.Errorf("invalid shortcut %q: %w", s, err)
		}
		sc.Key = key
	}
	if len(sc.Modifiers) == 0 {
		return Shortcut{}, fmt.Errorf("invalid shortcut %q: at least one modifier is required", s)
	}
	return sc, nil
}

func normalizeKey(k string) (string, error) {
	if name, ok := keyNames[k]; ok {
		return name, nil
	}
	if len(k) == 1 {
		c := k[0]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return k, nil
		}
	}
	if len(k) >= 2 && k[0] == 'f' {
		n := 0
		for _, c := range k[1:] {
			if c < '0' || c > '9' {
				return "", fmt.Errorf("unknown key %q", k)
			}
			n = n*10 + int(c-'0')
		}
		if n >= 1 && n <= 24 {
			return fmt.Sprintf("F%d", n), nil
		}
	}
	return "", fmt.Errorf("unknown key %q", k)
}

// Keybind returns the shortcut in xgbutil keybind syntax, e.g. "Control-Mod1-r".
func (s Shortcut) Keybind() string {
	parts := append(append([]string(nil), s.Modifiers...), s.Key)
	return strings.Join(parts, "-")
}
