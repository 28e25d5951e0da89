package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/relais/internal/config"
	"github.com/1broseidon/relais/internal/ipc"
	"github.com/1broseidon/relais/internal/runtimepath"
	"github.com/1broseidon/relais/internal/tui"
	"github.com/1broseidon/relais/internal/window"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: relais daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: relais daemon")
			os.Exit(2)
		}
		runDaemon()
	case "open":
		os.Exit(runOpen(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "pin", "transparent", "passthrough", "agent":
		os.Exit(runFlag(os.Args[1], os.Args[2:]))
	case "zoom":
		os.Exit(runZoom(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "save":
		os.Exit(runSave(os.Args[2:]))
	case "release":
		os.Exit(runRelease(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: relais <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the relais daemon (foreground)")
	fmt.Fprintln(w, "  status [label]      Show daemon or window status")
	fmt.Fprintln(w, "  list                List open windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  open <url>          Open a window")
	fmt.Fprintln(w, "  close <label>       Close a window")
	fmt.Fprintln(w, "  pin <label>         Keep a window above others")
	fmt.Fprintln(w, "  transparent <label> Make a window see-through")
	fmt.Fprintln(w, "  passthrough <label> Let clicks fall through a window")
	fmt.Fprintln(w, "  agent <label>       Switch between desktop and mobile user agent")
	fmt.Fprintln(w, "  zoom <label> <n>    Set or adjust page zoom")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  save                Save open windows to the config file")
	fmt.Fprintln(w, "  release             Turn passthrough off on every window")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config path         Print the config file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive dashboard")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'relais <command> --help' for command-specific options.")
}

// parseFlags parses args and reports the exit code to use when the command
// should stop.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: relais status [label]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status, or the flags of one window, via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "status takes at most one label")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if fs.NArg() == 1 {
		entry, err := client.GetStatus(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		printEntry(*entry)
		return 0
	}

	status, err := client.DaemonStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("window_count:   %d\n", status.WindowCount)
	fmt.Printf("uptime:         %s\n", time.Duration(status.UptimeSeconds)*time.Second)
	fmt.Printf("config_path:    %s\n", status.ConfigPath)
	return 0
}

func printEntry(e window.Entry) {
	fmt.Printf("label:          %s\n", e.Label)
	fmt.Printf("title:          %s\n", e.Title)
	fmt.Printf("url:            %s\n", e.URL)
	fmt.Printf("pin:            %v\n", e.Pin)
	fmt.Printf("transparent:    %v (alpha %d)\n", e.Transparent, e.Alpha)
	fmt.Printf("pointer_ignore: %v\n", e.PointerIgnore)
	fmt.Printf("mobile_mode:    %v\n", e.MobileMode)
	fmt.Printf("zoom:           %d%%\n", e.Zoom)
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: relais list [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List open windows.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output full window details as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "list takes no arguments")
		fs.Usage()
		return 2
	}

	entries, err := ipc.NewClient().List()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	for _, e := range entries {
		flags := ""
		if e.Pin {
			flags += " pin"
		}
		if e.Transparent {
			flags += fmt.Sprintf(" transparent(%d)", e.Alpha)
		}
		if e.PointerIgnore {
			flags += " passthrough"
		}
		if e.MobileMode {
			flags += " mobile"
		}
		fmt.Printf("- %s  %s  zoom:%d%%%s\n", e.Label, e.URL, e.Zoom, flags)
	}
	return 0
}

func runSave(args []string) int {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: relais save")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Write open windows and settings to the config file now.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "save takes no arguments")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().Save(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runRelease(args []string) int {
	fs := flag.NewFlagSet("release", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: relais release")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Turn pointer passthrough off on every window and show their controls.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "release takes no arguments")
		fs.Usage()
		return 2
	}

	n, err := ipc.NewClient().ReleaseAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("released: %d\n", n)
	return 0
}

func configPathFlag(fs *flag.FlagSet) *string {
	return fs.String("path", "", "Config file path (default: $RELAIS_CONFIG or relais.yaml next to the binary)")
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return runtimepath.ConfigPath()
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  relais config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  relais config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  relais config path")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := configPathFlag(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		resolved, err := resolveConfigPath(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if _, err := config.LoadFromPath(resolved); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := configPathFlag(fs)
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			resolved, err := resolveConfigPath(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			if cfg, err = config.LoadFromPath(resolved); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "path":
		resolved, err := runtimepath.ConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(resolved)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runTUI(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: relais tui")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive dashboard for the daemon's windows.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓  Select window")
		fmt.Fprintln(os.Stderr, "  o         Open a window")
		fmt.Fprintln(os.Stderr, "  p         Toggle pin")
		fmt.Fprintln(os.Stderr, "  t         Toggle transparency")
		fmt.Fprintln(os.Stderr, "  i         Toggle pointer passthrough")
		fmt.Fprintln(os.Stderr, "  m         Toggle mobile user agent")
		fmt.Fprintln(os.Stderr, "  +/-       Zoom in/out")
		fmt.Fprintln(os.Stderr, "  x         Close window")
		fmt.Fprintln(os.Stderr, "  r         Refresh")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C Quit")
		return 0
	}
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "tui takes no arguments")
		return 2
	}

	if err := tui.Run(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
