package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/relais/internal/window"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandCreate              CommandType = "CREATE"
	CommandClose               CommandType = "CLOSE"
	CommandSetPin              CommandType = "SET_PIN"
	CommandTogglePin           CommandType = "TOGGLE_PIN"
	CommandSetTransparent      CommandType = "SET_TRANSPARENT"
	CommandToggleTransparent   CommandType = "TOGGLE_TRANSPARENT"
	CommandSetAlpha            CommandType = "SET_ALPHA"
	CommandSetPointerIgnore    CommandType = "SET_POINTER_IGNORE"
	CommandTogglePointerIgnore CommandType = "TOGGLE_POINTER_IGNORE"
	CommandSetUserAgent        CommandType = "SET_USER_AGENT"
	CommandToggleUserAgent     CommandType = "TOGGLE_USER_AGENT"
	CommandSetZoom             CommandType = "SET_ZOOM"
	CommandGetStatus           CommandType = "GET_STATUS"
	CommandList                CommandType = "LIST"
	CommandSave                CommandType = "SAVE"
	CommandReload              CommandType = "RELOAD"
	CommandReleaseAll          CommandType = "RELEASE_ALL"
	CommandMinimize            CommandType = "MINIMIZE"
	CommandFocus               CommandType = "FOCUS"
	CommandDaemonStatus        CommandType = "DAEMON_STATUS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// CreatePayload is the payload for CREATE.
type CreatePayload struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Label string `json:"label,omitempty"`
}

// LabelPayload addresses a single window.
type LabelPayload struct {
	Label string `json:"label"`
}

// FlagPayload sets a boolean toggle on a window.
type FlagPayload struct {
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// AlphaPayload is the payload for SET_ALPHA.
type AlphaPayload struct {
	Label string `json:"label"`
	Alpha uint8  `json:"alpha"`
}

// ZoomPayload is the payload for SET_ZOOM. Percent, when set, wins over Delta.
type ZoomPayload struct {
	Label   string `json:"label"`
	Delta   int    `json:"delta,omitempty"`
	Percent *int   `json:"percent,omitempty"`
}

// CreateData is returned by CREATE.
type CreateData struct {
	Label string `json:"label"`
}

// FlagData is returned by TOGGLE_* commands.
type FlagData struct {
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// ZoomData is returned by SET_ZOOM.
type ZoomData struct {
	Label string `json:"label"`
	Zoom  int    `json:"zoom"`
}

// ListData is returned by LIST.
type ListData struct {
	Windows []window.Entry `json:"windows"`
}

// ReleaseData is returned by RELEASE_ALL.
type ReleaseData struct {
	Released int `json:"released"`
}

// DaemonStatusData is returned by DAEMON_STATUS.
type DaemonStatusData struct {
	WindowCount   int    `json:"window_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ConfigPath    string `json:"config_path"`
	DaemonRunning bool   `json:"daemon_running"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
