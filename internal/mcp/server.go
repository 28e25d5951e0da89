// Package mcp exposes the relais daemon to MCP clients over stdio. Every tool
// forwards to the running daemon through its IPC socket.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/relais/internal/ipc"
	"github.com/1broseidon/relais/internal/window"
)

const (
	ServerName    = "relais"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	Create(url, title, label string) (string, error)
	Close(label string) error
	GetStatus(label string) (*window.Entry, error)
	List() ([]window.Entry, error)
	SetPin(label string, on bool) error
	TogglePin(label string) (bool, error)
	SetTransparent(label string, on bool) error
	ToggleTransparent(label string) (bool, error)
	SetAlpha(label string, alpha uint8) error
	SetPointerIgnore(label string, on bool) error
	TogglePointerIgnore(label string) (bool, error)
	SetUserAgent(label string, mobile bool) error
	ToggleUserAgent(label string) (bool, error)
	AdjustZoom(label string, delta int) (int, error)
	SetZoom(label string, percent int) (int, error)
	Minimize(label string) error
	Focus(label string) error
	ReleaseAll() (int, error)
	Save() error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for relais window control.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates a new MCP server that talks to the daemon on the default
// socket.
func NewServer() *Server {
	return NewServerWith(ipc.NewClient())
}

// NewServerWith creates a new MCP server backed by d.
func NewServerWith(d Daemon) *Server {
	s := &Server{daemon: d}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_window",
		Description: "Open a web page in a new relais window. The window gets a small control bar that follows it around. Returns the window label used by every other tool.",
	}, s.handleOpenWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close a relais window and its control bar.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List open relais windows in creation order with their url and flags (pin, transparent, alpha, pointer_ignore, mobile_mode, zoom).",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window",
		Description: "Get the url and flags of one relais window.",
	}, s.handleGetWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_pin",
		Description: "Keep a window above all other windows. Omit enabled to toggle.",
	}, s.handleSetPin)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_transparent",
		Description: "Make a window translucent using its overlay alpha. Omit enabled to toggle.",
	}, s.handleSetTransparent)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_alpha",
		Description: "Set the overlay alpha (0-255) a window uses while transparent.",
	}, s.handleSetAlpha)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_passthrough",
		Description: "Let mouse input pass through a window to whatever is below it. The global shortcut or release_all turns this off again. Omit enabled to toggle.",
	}, s.handleSetPassthrough)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_mobile_mode",
		Description: "Switch a window between the desktop and mobile user agent and reload the page. Omit enabled to toggle.",
	}, s.handleSetMobileMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_zoom",
		Description: "Set the page zoom of a window as an absolute percentage or a relative delta. Returns the applied zoom.",
	}, s.handleSetZoom)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Raise and focus a relais window.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "minimize_window",
		Description: "Minimize a relais window and hide its control bar.",
	}, s.handleMinimizeWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "release_all",
		Description: "Turn mouse passthrough off on every window and show all control bars.",
	}, s.handleReleaseAll)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "save_windows",
		Description: "Write the open windows and their flags to the relais config file so they are restored on next start.",
	}, s.handleSave)
}
