package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/1broseidon/relais/internal/browser"
	"github.com/1broseidon/relais/internal/command"
	"github.com/1broseidon/relais/internal/config"
	"github.com/1broseidon/relais/internal/daemon"
	"github.com/1broseidon/relais/internal/hotkeys"
	"github.com/1broseidon/relais/internal/ipc"
	"github.com/1broseidon/relais/internal/pair"
	"github.com/1broseidon/relais/internal/persist"
	"github.com/1broseidon/relais/internal/platform"
	"github.com/1broseidon/relais/internal/runtimepath"
	"github.com/1broseidon/relais/internal/window"
	"github.com/1broseidon/relais/internal/x11"
)

// restoreTimeout bounds reopening the saved windows on startup.
const restoreTimeout = 2 * time.Minute

// logLevel resolves the service log level. RELAIS_LOG_LEVEL wins over the
// config file.
func logLevel(configured string) slog.Level {
	raw := strings.TrimSpace(os.Getenv("RELAIS_LOG_LEVEL"))
	if raw == "" {
		raw = configured
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func runDaemon() {
	// Refuse to start a second daemon on the same socket.
	if ipc.NewClient().Ping() {
		log.Fatalf("relais daemon is already running")
	}

	configPath, err := runtimepath.ConfigPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %v", err)
	}
	store, err := config.Open(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	for _, err := range store.Repairs() {
		log.Printf("Warning: config: %v", err)
	}
	cfg := store.Read()
	log.Printf("Configuration loaded from %s (shortcut: %s, %d saved windows)", configPath, cfg.ShortcutKey, len(cfg.Windows))

	var level slog.LevelVar
	level.Set(logLevel(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &level,
	}))

	// Connect to display server
	conn, err := x11.NewConnection()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer conn.Close()
	if !conn.HasShape() {
		log.Println("Warning: X server has no SHAPE extension; pointer passthrough is unavailable")
	}

	profileDir := cfg.Browser.ProfileDir
	if profileDir == "" {
		if profileDir, err = runtimepath.ProfileDir(); err != nil {
			log.Fatalf("Failed to resolve browser profile dir: %v", err)
		}
	}
	host, err := browser.Start(browser.Options{
		ExecPath:   cfg.Browser.ExecPath,
		ProfileDir: profileDir,
		Flags:      cfg.Browser.Flags,
		Logger:     logger.With("component", "browser"),
	})
	if err != nil {
		log.Fatalf("Failed to start browser: %v", err)
	}
	defer host.Shutdown()
	log.Printf("Browser started (profile: %s)", profileDir)

	rt := platform.NewLinuxRuntime(conn, host, logger.With("component", "x11"))

	reg := window.NewRegistry()
	mgr := pair.NewManager(pair.Options{
		Runtime:  rt,
		Styler:   rt,
		Browser:  rt,
		Registry: reg,
		Logger:   logger.With("component", "pair"),
		UserAgents: func() (string, string) {
			c := store.Read()
			return c.AgentDesktop, c.AgentMobile
		},
		DefaultAlpha: func() uint8 {
			return uint8(store.Read().DefaultAlpha)
		},
	})
	bridge := persist.NewBridge(store, reg, mgr, logger.With("component", "persist"))
	svc := command.NewService(mgr, bridge, store, logger.With("component", "command"))
	rt.SetSink(platform.SinkFuncs{Event: mgr.PostEvent, Action: svc.PostAction})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go mgr.Run(ctx)

	hideCtx, hideCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := rt.HideHostWindow(hideCtx); err != nil {
		log.Printf("Warning: failed to hide browser startup window: %v", err)
	}
	hideCancel()

	// Start event loop before restoring: opening windows waits for X events.
	loopDone := make(chan struct{})
	go func() {
		conn.EventLoop()
		close(loopDone)
	}()

	restoreCtx, restoreCancel := context.WithTimeout(ctx, restoreTimeout)
	if err := bridge.LoadAndRestore(restoreCtx); err != nil {
		log.Printf("Warning: some saved windows were not restored: %v", err)
	}
	restoreCancel()
	log.Printf("Restored %d window(s)", reg.Len())

	// Setup hotkey handler
	hotkeyHandler := hotkeys.NewHandler(conn, svc)
	if err := hotkeyHandler.Register(cfg.ShortcutKey); err != nil {
		log.Printf("Warning: Failed to register release shortcut: %v", err)
	}

	applyConfig := func(c config.Config) {
		level.Set(logLevel(c.LogLevel))
		if err := hotkeyHandler.Register(c.ShortcutKey); err != nil {
			log.Printf("Warning: Failed to register release shortcut: %v", err)
		}
	}

	// Create config reload channel
	reloadChan := make(chan struct{}, 1)

	// Start IPC server
	ipcServer, err := ipc.NewServer(svc, configPath, reloadChan)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	go func() {
		if err := store.Watch(ctx, logger.With("component", "config"), applyConfig); err != nil {
			log.Printf("Warning: config file watching disabled: %v", err)
		}
	}()

	go bridge.Run(ctx)

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: daemon.DefaultInterval,
		Logger:   logger.With("component", "reconciler"),
	}, rt, mgr)
	go reconciler.Run(ctx)

	log.Println("relais daemon started successfully")

	// Setup signal handlers
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					log.Println("Received SIGHUP, reloading config...")
					if err := store.Reload(); err != nil {
						log.Printf("Config reload failed: %v", err)
						continue
					}
					applyConfig(store.Read())
					log.Println("Config reloaded successfully")

				case os.Interrupt, syscall.SIGTERM:
					log.Println("Shutting down relais daemon...")
					if final := store.Read(); final.GetAutosave() {
						if err := bridge.Save(); err != nil {
							log.Printf("Final save failed: %v", err)
						}
					}
					conn.Quit()
					return
				}

			case <-reloadChan:
				// Config was reloaded via IPC, update components
				applyConfig(store.Read())
			}
		}
	}()

	<-loopDone
	cancel()
}
