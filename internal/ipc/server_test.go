package ipc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/relais/internal/command"
	"github.com/1broseidon/relais/internal/pair"
	"github.com/1broseidon/relais/internal/platform/platformtest"
	"github.com/1broseidon/relais/internal/window"
)

type nopSaver struct{ calls int }

func (s *nopSaver) Save() error {
	s.calls++
	return nil
}

func startTestServer(t *testing.T) (*Client, *platformtest.Runtime, *nopSaver) {
	t.Helper()

	// Unix socket paths are length limited; keep the directory short.
	dir, err := os.MkdirTemp("", "relais-ipc")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	socketPath := filepath.Join(dir, "s.sock")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := platformtest.NewRuntime()
	mgr := pair.NewManager(pair.Options{
		Runtime:    rt,
		Styler:     rt,
		Browser:    rt,
		Registry:   window.NewRegistry(),
		Logger:     logger,
		UserAgents: func() (string, string) { return "d", "m" },
	})
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(finished)
	}()

	saver := &nopSaver{}
	srv := NewServerAt(socketPath, command.NewService(mgr, saver, nil, logger), "/tmp/relais.yaml", nil)
	if err := srv.Start(); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		cancel()
		<-finished
	})
	return NewClientAt(socketPath), rt, saver
}

func TestClientServer_WindowLifecycle(t *testing.T) {
	client, rt, _ := startTestServer(t)

	label, err := client.Create("example.com", "Example", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(label, window.LabelPrefix) {
		t.Fatalf("label = %q", label)
	}

	on, err := client.TogglePin(label)
	if err != nil || !on {
		t.Fatalf("TogglePin = %v, %v", on, err)
	}
	if err := client.SetTransparent(label, true); err != nil {
		t.Fatalf("SetTransparent: %v", err)
	}
	if err := client.SetAlpha(label, 80); err != nil {
		t.Fatalf("SetAlpha: %v", err)
	}
	zoom, err := client.AdjustZoom(label, 20)
	if err != nil || zoom != 120 {
		t.Fatalf("AdjustZoom = %d, %v", zoom, err)
	}
	zoom, err = client.SetZoom(label, 900)
	if err != nil || zoom != window.MaxZoom {
		t.Fatalf("SetZoom = %d, %v", zoom, err)
	}

	entry, err := client.GetStatus(window.CtrlLabel(label))
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if entry.Label != label || entry.Title != "Example" || entry.URL != "https://example.com" {
		t.Fatalf("entry = %+v", entry)
	}
	if !entry.Pin || !entry.Transparent || entry.Alpha != 80 || entry.Zoom != window.MaxZoom {
		t.Fatalf("status = %+v", entry.Status)
	}

	list, err := client.List()
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}

	if err := client.Close(label); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w := rt.Window(label); w == nil || !w.Closed() {
		t.Fatal("content window was not closed")
	}
	list, err = client.List()
	if err != nil || len(list) != 0 {
		t.Fatalf("List after close = %+v, %v", list, err)
	}
}

func TestClientServer_Errors(t *testing.T) {
	client, _, _ := startTestServer(t)

	if _, err := client.TogglePin("window_missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("TogglePin unknown = %v", err)
	}
	if _, err := client.Create("   ", "", ""); err == nil || !strings.Contains(err.Error(), "invalid url") {
		t.Fatalf("Create blank = %v", err)
	}
	if err := client.Close(""); err == nil || !strings.Contains(err.Error(), "label is required") {
		t.Fatalf("Close empty = %v", err)
	}
	if err := client.call("BOGUS", nil, nil); err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("unknown command = %v", err)
	}
}

func TestClientServer_SaveReleaseAndStatus(t *testing.T) {
	client, _, saver := startTestServer(t)

	label, err := client.Create("https://example.org", "", "window_fixed")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if label != "window_fixed" {
		t.Fatalf("label = %q", label)
	}
	if err := client.SetPointerIgnore(label, true); err != nil {
		t.Fatalf("SetPointerIgnore: %v", err)
	}
	n, err := client.ReleaseAll()
	if err != nil || n != 1 {
		t.Fatalf("ReleaseAll = %d, %v", n, err)
	}
	if err := client.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saver.calls != 1 {
		t.Fatalf("saver calls = %d", saver.calls)
	}

	status, err := client.DaemonStatus()
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if !status.DaemonRunning || status.WindowCount != 1 || status.ConfigPath != "/tmp/relais.yaml" {
		t.Fatalf("status = %+v", status)
	}
	if !client.Ping() {
		t.Fatal("Ping = false")
	}
}

func TestServer_InvalidRequestLine(t *testing.T) {
	client, _, _ := startTestServer(t)

	conn, err := net.Dial("unix", client.socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ERROR" || !strings.Contains(resp.Error, "Invalid request") {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if client.Ping() {
		t.Fatal("Ping succeeded without a daemon")
	}
	if _, err := client.List(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("List = %v", err)
	}
}
