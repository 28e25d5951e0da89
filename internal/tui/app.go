package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/relais/internal/command"
	"github.com/1broseidon/relais/internal/ipc"
	"github.com/1broseidon/relais/internal/window"
)

const (
	refreshInterval = 2 * time.Second
	statusTimeout   = 3 * time.Second
)

// Client is the daemon API the dashboard drives.
type Client interface {
	List() ([]window.Entry, error)
	Create(url, title, label string) (string, error)
	Close(label string) error
	TogglePin(label string) (bool, error)
	ToggleTransparent(label string) (bool, error)
	TogglePointerIgnore(label string) (bool, error)
	ToggleUserAgent(label string) (bool, error)
	AdjustZoom(label string, delta int) (int, error)
}

var _ Client = (*ipc.Client)(nil)

// tickMsg triggers the periodic refresh from the daemon.
type tickMsg struct{}

// clearStatusMsg clears the status message after a delay.
type clearStatusMsg struct{}

// openForm collects the fields of a new window. It lives on the heap so the
// form's value pointers survive model copies.
type openForm struct {
	form  *huh.Form
	url   string
	title string
	label string
}

// model is the root bubbletea model for the dashboard.
type model struct {
	client Client
	table  table.Model

	entries    []window.Entry
	connected  bool
	statusText string
	open       *openForm

	width  int
	height int
}

func newModel(client Client) model {
	t := table.New(
		table.WithColumns(columns(0)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	m := model{client: client, table: t}
	m.refresh()
	return m
}

// columns sizes the table for the terminal width; the URL column takes the
// remaining space.
func columns(width int) []table.Column {
	cols := []table.Column{
		{Title: "Label", Width: 16},
		{Title: "Title", Width: 18},
		{Title: "URL", Width: 30},
		{Title: "Pin", Width: 3},
		{Title: "Alpha", Width: 5},
		{Title: "Pass", Width: 4},
		{Title: "Mob", Width: 3},
		{Title: "Zoom", Width: 5},
	}
	if width > 0 {
		used := 0
		for i, c := range cols {
			if i != 2 {
				used += c.Width
			}
		}
		// Two cells of padding per column.
		if rest := width - used - 2*len(cols); rest > 10 {
			cols[2].Width = rest
		}
	}
	return cols
}

func rowFor(e window.Entry) table.Row {
	alpha := check(false)
	if e.Transparent {
		alpha = fmt.Sprintf("%d", e.Alpha)
	}
	title := e.Title
	if title == "" {
		title = emptyStyle.Render("-")
	}
	return table.Row{
		e.Label,
		title,
		e.URL,
		check(e.Pin),
		alpha,
		check(e.PointerIgnore),
		check(e.MobileMode),
		fmt.Sprintf("%d%%", e.Zoom),
	}
}

// refresh reloads the window list from the daemon.
func (m *model) refresh() {
	entries, err := m.client.List()
	if err != nil {
		m.connected = false
		m.entries = nil
		m.table.SetRows(nil)
		return
	}
	m.connected = true
	m.entries = entries

	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, rowFor(e))
	}
	m.table.SetRows(rows)
	if n := len(rows); n > 0 && m.table.Cursor() >= n {
		m.table.SetCursor(n - 1)
	}
}

func (m model) selectedLabel() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func clearStatusLater() tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.open != nil {
		return m.updateOpen(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case clearStatusMsg:
		m.statusText = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.refresh()
			return m.status("refreshed")
		case "o":
			return m.startOpen()
		case "p":
			return m.toggle("pin", m.client.TogglePin)
		case "t":
			return m.toggle("transparent", m.client.ToggleTransparent)
		case "i":
			return m.toggle("passthrough", m.client.TogglePointerIgnore)
		case "m":
			return m.toggle("mobile", m.client.ToggleUserAgent)
		case "+", "=":
			return m.zoom(command.ZoomStep)
		case "-":
			return m.zoom(-command.ZoomStep)
		case "x":
			return m.closeSelected()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetWidth(width)
	// Status bar, title with margin, help bar.
	h := height - 4
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
}

func (m model) status(text string) (tea.Model, tea.Cmd) {
	m.statusText = text
	return m, clearStatusLater()
}

func (m model) failed(err error) (tea.Model, tea.Cmd) {
	return m.status(errorStyle.Render("error: " + err.Error()))
}

func (m model) toggle(name string, fn func(string) (bool, error)) (tea.Model, tea.Cmd) {
	label := m.selectedLabel()
	if label == "" {
		return m, nil
	}
	on, err := fn(label)
	if err != nil {
		return m.failed(err)
	}
	m.refresh()
	state := "off"
	if on {
		state = "on"
	}
	return m.status(fmt.Sprintf("%s %s: %s", label, name, state))
}

func (m model) zoom(delta int) (tea.Model, tea.Cmd) {
	label := m.selectedLabel()
	if label == "" {
		return m, nil
	}
	percent, err := m.client.AdjustZoom(label, delta)
	if err != nil {
		return m.failed(err)
	}
	m.refresh()
	return m.status(fmt.Sprintf("%s zoom: %d%%", label, percent))
}

func (m model) closeSelected() (tea.Model, tea.Cmd) {
	label := m.selectedLabel()
	if label == "" {
		return m, nil
	}
	if err := m.client.Close(label); err != nil {
		return m.failed(err)
	}
	m.refresh()
	return m.status("closed: " + label)
}

func (m model) startOpen() (tea.Model, tea.Cmd) {
	if !m.connected {
		return m.status("daemon not connected")
	}
	w := m.width - 4
	if w < 40 {
		w = 40
	}

	f := &openForm{}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("url").
				Title("URL").
				Description("Page to open; the scheme defaults to https").
				Value(&f.url).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("url is required")
					}
					return nil
				}),
			huh.NewInput().
				Key("title").
				Title("Title").
				Description("Window title (optional)").
				Value(&f.title),
			huh.NewInput().
				Key("label").
				Title("Label").
				Description("Unique label (optional, generated when empty)").
				Value(&f.label),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	m.open = f
	return m, f.form.Init()
}

func (m model) updateOpen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.open = nil
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tickMsg:
		// Keep the refresh loop alive while the form is shown.
		return m, tick()
	}

	f := m.open
	form, cmd := f.form.Update(msg)
	if ff, ok := form.(*huh.Form); ok {
		f.form = ff
	}

	switch f.form.State {
	case huh.StateCompleted:
		m.open = nil
		label, err := m.client.Create(strings.TrimSpace(f.url), strings.TrimSpace(f.title), strings.TrimSpace(f.label))
		if err != nil {
			return m.failed(err)
		}
		m.refresh()
		return m.status("opened: " + label)
	case huh.StateAborted:
		m.open = nil
		return m, nil
	}
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, len(m.entries), m.statusText, m.width)
	helpBar := renderHelpBar(m.width)

	var content string
	switch {
	case m.open != nil:
		content = titleStyle.Render("Open window") + "\n" + m.open.form.View()
	case !m.connected:
		content = emptyStyle.Render("The daemon is not running. Start it with: relais daemon")
	case len(m.entries) == 0:
		content = titleStyle.Render("Windows") + "\n" + emptyStyle.Render("No windows. Press o to open one.")
	default:
		content = titleStyle.Render("Windows") + "\n" + m.table.View()
	}

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(helpBar)
	contentHeight := m.height - usedHeight
	if contentHeight < 1 {
		contentHeight = 1
	}
	content = lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(content)

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		content,
		helpBar,
	)
}
