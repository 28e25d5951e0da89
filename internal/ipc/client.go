package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/relais/internal/runtimepath"
	"github.com/1broseidon/relais/internal/window"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the daemon listening on socketPath.
// Creating a window waits for a browser page, so the timeout is generous.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    25 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends cmd with payload and decodes the response data into out when
// out is non-nil.
func (c *Client) call(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Create opens a new window pair and returns its label. title and label may
// be empty.
func (c *Client) Create(url, title, label string) (string, error) {
	var data CreateData
	if err := c.call(CommandCreate, CreatePayload{URL: url, Title: title, Label: label}, &data); err != nil {
		return "", err
	}
	return data.Label, nil
}

// Close tears down a window pair.
func (c *Client) Close(label string) error {
	return c.call(CommandClose, LabelPayload{Label: label}, nil)
}

func (c *Client) SetPin(label string, on bool) error {
	return c.call(CommandSetPin, FlagPayload{Label: label, Value: on}, nil)
}

func (c *Client) TogglePin(label string) (bool, error) {
	return c.toggle(CommandTogglePin, label)
}

func (c *Client) SetTransparent(label string, on bool) error {
	return c.call(CommandSetTransparent, FlagPayload{Label: label, Value: on}, nil)
}

func (c *Client) ToggleTransparent(label string) (bool, error) {
	return c.toggle(CommandToggleTransparent, label)
}

// SetAlpha changes the overlay alpha used while the window is transparent.
func (c *Client) SetAlpha(label string, alpha uint8) error {
	return c.call(CommandSetAlpha, AlphaPayload{Label: label, Alpha: alpha}, nil)
}

func (c *Client) SetPointerIgnore(label string, on bool) error {
	return c.call(CommandSetPointerIgnore, FlagPayload{Label: label, Value: on}, nil)
}

func (c *Client) TogglePointerIgnore(label string) (bool, error) {
	return c.toggle(CommandTogglePointerIgnore, label)
}

// SetUserAgent selects the mobile (true) or desktop user agent.
func (c *Client) SetUserAgent(label string, mobile bool) error {
	return c.call(CommandSetUserAgent, FlagPayload{Label: label, Value: mobile}, nil)
}

func (c *Client) ToggleUserAgent(label string) (bool, error) {
	return c.toggle(CommandToggleUserAgent, label)
}

func (c *Client) toggle(cmd CommandType, label string) (bool, error) {
	var data FlagData
	if err := c.call(cmd, LabelPayload{Label: label}, &data); err != nil {
		return false, err
	}
	return data.Value, nil
}

// AdjustZoom adds delta percentage points and returns the applied zoom.
func (c *Client) AdjustZoom(label string, delta int) (int, error) {
	var data ZoomData
	if err := c.call(CommandSetZoom, ZoomPayload{Label: label, Delta: delta}, &data); err != nil {
		return 0, err
	}
	return data.Zoom, nil
}

// SetZoom sets an absolute zoom percentage and returns the applied zoom.
func (c *Client) SetZoom(label string, percent int) (int, error) {
	var data ZoomData
	if err := c.call(CommandSetZoom, ZoomPayload{Label: label, Percent: &percent}, &data); err != nil {
		return 0, err
	}
	return data.Zoom, nil
}

// GetStatus returns the entry of one window.
func (c *Client) GetStatus(label string) (*window.Entry, error) {
	var entry window.Entry
	if err := c.call(CommandGetStatus, LabelPayload{Label: label}, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every open window in creation order.
func (c *Client) List() ([]window.Entry, error) {
	var data ListData
	if err := c.call(CommandList, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// Save asks the daemon to write its windows to the config file.
func (c *Client) Save() error {
	return c.call(CommandSave, nil, nil)
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// ReleaseAll turns pointer passthrough off on every window.
func (c *Client) ReleaseAll() (int, error) {
	var data ReleaseData
	if err := c.call(CommandReleaseAll, nil, &data); err != nil {
		return 0, err
	}
	return data.Released, nil
}

func (c *Client) Minimize(label string) error {
	return c.call(CommandMinimize, LabelPayload{Label: label}, nil)
}

func (c *Client) Focus(label string) error {
	return c.call(CommandFocus, LabelPayload{Label: label}, nil)
}

// DaemonStatus retrieves daemon status
func (c *Client) DaemonStatus() (*DaemonStatusData, error) {
	var status DaemonStatusData
	if err := c.call(CommandDaemonStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Ping checks if the daemon is running
func (c *Client) Ping() bool {
	_, err := c.DaemonStatus()
	return err == nil
}
