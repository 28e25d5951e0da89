package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/1broseidon/relais/internal/command"
	"github.com/1broseidon/relais/internal/runtimepath"
)

// requestTimeout bounds how long one request may wait for the pair manager.
const requestTimeout = 20 * time.Second

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	svc          *command.Service
	configPath   string
	startTime    time.Time
	reloadChan   chan<- struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server on the default socket path.
func NewServer(svc *command.Service, configPath string, reloadChan chan<- struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, svc, configPath, reloadChan), nil
}

// NewServerAt creates a new IPC server listening on socketPath.
func NewServerAt(socketPath string, svc *command.Service, configPath string, reloadChan chan<- struct{}) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		svc:        svc,
		configPath: configPath,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandCreate:
		return s.handleCreate(ctx, req.Payload)
	case CommandClose:
		return s.withLabel(req.Payload, func(label string) (any, error) {
			return nil, s.svc.Close(ctx, label)
		})
	case CommandSetPin:
		return s.withFlag(req.Payload, func(label string, on bool) error {
			return s.svc.SetPin(ctx, label, on)
		})
	case CommandTogglePin:
		return s.toggle(req.Payload, func(label string) (bool, error) {
			return s.svc.TogglePin(ctx, label)
		})
	case CommandSetTransparent:
		return s.withFlag(req.Payload, func(label string, on bool) error {
			return s.svc.SetTransparent(ctx, label, on)
		})
	case CommandToggleTransparent:
		return s.toggle(req.Payload, func(label string) (bool, error) {
			return s.svc.ToggleTransparent(ctx, label)
		})
	case CommandSetAlpha:
		return s.handleSetAlpha(ctx, req.Payload)
	case CommandSetPointerIgnore:
		return s.withFlag(req.Payload, func(label string, on bool) error {
			return s.svc.SetPointerIgnore(ctx, label, on)
		})
	case CommandTogglePointerIgnore:
		return s.toggle(req.Payload, func(label string) (bool, error) {
			return s.svc.TogglePointerIgnore(ctx, label)
		})
	case CommandSetUserAgent:
		return s.withFlag(req.Payload, func(label string, mobile bool) error {
			return s.svc.SetUserAgent(ctx, label, mobile)
		})
	case CommandToggleUserAgent:
		return s.toggle(req.Payload, func(label string) (bool, error) {
			return s.svc.ToggleUserAgent(ctx, label)
		})
	case CommandSetZoom:
		return s.handleSetZoom(ctx, req.Payload)
	case CommandGetStatus:
		return s.withLabel(req.Payload, func(label string) (any, error) {
			return s.svc.Entry(label)
		})
	case CommandList:
		return ok(ListData{Windows: s.svc.List()})
	case CommandSave:
		if err := s.svc.Save(); err != nil {
			return NewErrorResponse(err.Error())
		}
		return ok(nil)
	case CommandReload:
		return s.handleReload()
	case CommandReleaseAll:
		n, err := s.svc.ReleaseAll(ctx)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		return ok(ReleaseData{Released: n})
	case CommandMinimize:
		return s.withLabel(req.Payload, func(label string) (any, error) {
			return nil, s.svc.Minimize(ctx, label)
		})
	case CommandFocus:
		return s.withLabel(req.Payload, func(label string) (any, error) {
			return nil, s.svc.Focus(ctx, label)
		})
	case CommandDaemonStatus:
		return ok(DaemonStatusData{
			WindowCount:   len(s.svc.List()),
			UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
			ConfigPath:    s.configPath,
			DaemonRunning: true,
		})
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func ok(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func decodeLabel(payload json.RawMessage) (string, error) {
	var p LabelPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("Invalid payload: %v", err)
	}
	if strings.TrimSpace(p.Label) == "" {
		return "", fmt.Errorf("label is required")
	}
	return p.Label, nil
}

func (s *Server) withLabel(payload json.RawMessage, fn func(label string) (any, error)) *Response {
	label, err := decodeLabel(payload)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	data, err := fn(label)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return ok(data)
}

func (s *Server) withFlag(payload json.RawMessage, fn func(label string, on bool) error) *Response {
	var p FlagPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if strings.TrimSpace(p.Label) == "" {
		return NewErrorResponse("label is required")
	}
	if err := fn(p.Label, p.Value); err != nil {
		return NewErrorResponse(err.Error())
	}
	return ok(FlagData{Label: p.Label, Value: p.Value})
}

func (s *Server) toggle(payload json.RawMessage, fn func(label string) (bool, error)) *Response {
	return s.withLabel(payload, func(label string) (any, error) {
		v, err := fn(label)
		if err != nil {
			return nil, err
		}
		return FlagData{Label: label, Value: v}, nil
	})
}

func (s *Server) handleCreate(ctx context.Context, payload json.RawMessage) *Response {
	var p CreatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid create payload: %v", err))
	}
	label, err := s.svc.Create(ctx, p.URL, p.Title, p.Label)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return ok(CreateData{Label: label})
}

func (s *Server) handleSetAlpha(ctx context.Context, payload json.RawMessage) *Response {
	var p AlphaPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid alpha payload: %v", err))
	}
	if err := s.svc.SetAlpha(ctx, p.Label, p.Alpha); err != nil {
		return NewErrorResponse(err.Error())
	}
	return ok(nil)
}

func (s *Server) handleSetZoom(ctx context.Context, payload json.RawMessage) *Response {
	var p ZoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid zoom payload: %v", err))
	}
	var (
		zoom int
		err  error
	)
	if p.Percent != nil {
		zoom, err = s.svc.SetZoomPercent(ctx, p.Label, *p.Percent)
	} else {
		zoom, err = s.svc.SetZoom(ctx, p.Label, p.Delta)
	}
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return ok(ZoomData{Label: p.Label, Zoom: zoom})
}

func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	if err := s.svc.Reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	log.Println("IPC: Config reloaded successfully")
	return ok(nil)
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
