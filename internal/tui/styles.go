package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2).
			MarginBottom(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

// tableStyles returns the window table styles.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Bold(false)
	return s
}

// renderStatusBar renders the daemon connection status bar.
func renderStatusBar(connected bool, windows int, status string, width int) string {
	var parts []string
	if connected {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts = append(parts, dot+" daemon connected", fmt.Sprintf("windows:%d", windows))
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		parts = append(parts, dot+" daemon not running")
	}
	if status != "" {
		parts = append(parts, status)
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(strings.Join(parts, "  "))
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(width int) string {
	help := "o: open  p: pin  t: transparent  i: passthrough  m: mobile  +/-: zoom  x: close  r: refresh  q: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}

// check renders a boolean flag as a table cell.
func check(on bool) string {
	if on {
		return "✓"
	}
	return "·"
}
