package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func textResult(format string, args ...any) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func requireLabel(tool, label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%s: label is required", tool)
	}
	return nil
}

func (s *Server) handleOpenWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenWindowInput) (*mcpsdk.CallToolResult, OpenWindowOutput, error) {
	if strings.TrimSpace(args.URL) == "" {
		return nil, OpenWindowOutput{}, fmt.Errorf("open_window: url is required")
	}
	label, err := s.daemon.Create(args.URL, args.Title, args.Label)
	if err != nil {
		return nil, OpenWindowOutput{}, err
	}
	return nil, OpenWindowOutput{Label: label}, nil
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args LabelInput) (*mcpsdk.CallToolResult, any, error) {
	if err := requireLabel("close_window", args.Label); err != nil {
		return nil, nil, err
	}
	if err := s.daemon.Close(args.Label); err != nil {
		return nil, nil, err
	}
	return textResult("Closed %s", args.Label), nil, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	entries, err := s.daemon.List()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(entries))}
	for _, e := range entries {
		out.Windows = append(out.Windows, windowInfo(e))
	}
	return nil, out, nil
}

func (s *Server) handleGetWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args LabelInput) (*mcpsdk.CallToolResult, WindowInfo, error) {
	if err := requireLabel("get_window", args.Label); err != nil {
		return nil, WindowInfo{}, err
	}
	entry, err := s.daemon.GetStatus(args.Label)
	if err != nil {
		return nil, WindowInfo{}, err
	}
	return nil, windowInfo(*entry), nil
}

// applyFlag sets the flag when enabled is given and toggles it otherwise.
func applyFlag(tool string, args FlagInput, set func(string, bool) error, toggle func(string) (bool, error)) (FlagOutput, error) {
	if err := requireLabel(tool, args.Label); err != nil {
		return FlagOutput{}, err
	}
	if args.Enabled == nil {
		on, err := toggle(args.Label)
		if err != nil {
			return FlagOutput{}, err
		}
		return FlagOutput{Label: args.Label, Enabled: on}, nil
	}
	if err := set(args.Label, *args.Enabled); err != nil {
		return FlagOutput{}, err
	}
	return FlagOutput{Label: args.Label, Enabled: *args.Enabled}, nil
}

func (s *Server) handleSetPin(_ context.Context, _ *mcpsdk.CallToolRequest, args FlagInput) (*mcpsdk.CallToolResult, FlagOutput, error) {
	out, err := applyFlag("set_pin", args, s.daemon.SetPin, s.daemon.TogglePin)
	return nil, out, err
}

func (s *Server) handleSetTransparent(_ context.Context, _ *mcpsdk.CallToolRequest, args FlagInput) (*mcpsdk.CallToolResult, FlagOutput, error) {
	out, err := applyFlag("set_transparent", args, s.daemon.SetTransparent, s.daemon.ToggleTransparent)
	return nil, out, err
}

func (s *Server) handleSetPassthrough(_ context.Context, _ *mcpsdk.CallToolRequest, args FlagInput) (*mcpsdk.CallToolResult, FlagOutput, error) {
	out, err := applyFlag("set_passthrough", args, s.daemon.SetPointerIgnore, s.daemon.TogglePointerIgnore)
	return nil, out, err
}

func (s *Server) handleSetMobileMode(_ context.Context, _ *mcpsdk.CallToolRequest, args FlagInput) (*mcpsdk.CallToolResult, FlagOutput, error) {
	out, err := applyFlag("set_mobile_mode", args, s.daemon.SetUserAgent, s.daemon.ToggleUserAgent)
	return nil, out, err
}

func (s *Server) handleSetAlpha(_ context.Context, _ *mcpsdk.CallToolRequest, args SetAlphaInput) (*mcpsdk.CallToolResult, any, error) {
	if err := requireLabel("set_alpha", args.Label); err != nil {
		return nil, nil, err
	}
	if args.Alpha < 0 || args.Alpha > 255 {
		return nil, nil, fmt.Errorf("set_alpha: alpha must be between 0 and 255, got %d", args.Alpha)
	}
	if err := s.daemon.SetAlpha(args.Label, uint8(args.Alpha)); err != nil {
		return nil, nil, err
	}
	return textResult("Alpha of %s set to %d", args.Label, args.Alpha), nil, nil
}

func (s *Server) handleSetZoom(_ context.Context, _ *mcpsdk.CallToolRequest, args SetZoomInput) (*mcpsdk.CallToolResult, SetZoomOutput, error) {
	if err := requireLabel("set_zoom", args.Label); err != nil {
		return nil, SetZoomOutput{}, err
	}
	var (
		zoom int
		err  error
	)
	switch {
	case args.Percent != nil:
		zoom, err = s.daemon.SetZoom(args.Label, *args.Percent)
	case args.Delta != 0:
		zoom, err = s.daemon.AdjustZoom(args.Label, args.Delta)
	default:
		return nil, SetZoomOutput{}, fmt.Errorf("set_zoom: one of percent or delta is required")
	}
	if err != nil {
		return nil, SetZoomOutput{}, err
	}
	return nil, SetZoomOutput{Label: args.Label, Zoom: zoom}, nil
}

func (s *Server) handleFocusWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args LabelInput) (*mcpsdk.CallToolResult, any, error) {
	if err := requireLabel("focus_window", args.Label); err != nil {
		return nil, nil, err
	}
	if err := s.daemon.Focus(args.Label); err != nil {
		return nil, nil, err
	}
	return textResult("Focused %s", args.Label), nil, nil
}

func (s *Server) handleMinimizeWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args LabelInput) (*mcpsdk.CallToolResult, any, error) {
	if err := requireLabel("minimize_window", args.Label); err != nil {
		return nil, nil, err
	}
	if err := s.daemon.Minimize(args.Label); err != nil {
		return nil, nil, err
	}
	return textResult("Minimized %s", args.Label), nil, nil
}

func (s *Server) handleReleaseAll(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReleaseAllInput) (*mcpsdk.CallToolResult, ReleaseAllOutput, error) {
	n, err := s.daemon.ReleaseAll()
	if err != nil {
		return nil, ReleaseAllOutput{}, err
	}
	return nil, ReleaseAllOutput{Released: n}, nil
}

func (s *Server) handleSave(_ context.Context, _ *mcpsdk.CallToolRequest, _ SaveInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Save(); err != nil {
		return nil, nil, err
	}
	return textResult("Saved windows to config"), nil, nil
}
