package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/1broseidon/relais/internal/ipc"
)

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: relais open [--title TITLE] [--label LABEL] <url>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a window with its control strip. Prints the window label.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	title := fs.String("title", "", "Window title")
	label := fs.String("label", "", "Unique label (generated when empty)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "open requires exactly one <url>")
		fs.Usage()
		return 2
	}

	got, err := ipc.NewClient().Create(fs.Arg(0), *title, *label)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(got)
	return 0
}

func runClose(args []string) int {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: relais close <label>...")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "close requires <label>")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	code := 0
	for _, label := range fs.Args() {
		if err := client.Close(label); err != nil {
			fmt.Fprintln(os.Stderr, err)
			code = 1
		}
	}
	return code
}

// flagCommand is a per-window boolean that can be set or toggled.
type flagCommand struct {
	description string
	set         func(c *ipc.Client, label string, on bool) error
	toggle      func(c *ipc.Client, label string) (bool, error)
}

var flagCommands = map[string]flagCommand{
	"pin": {
		description: "Keep the window above all others.",
		set:         (*ipc.Client).SetPin,
		toggle:      (*ipc.Client).TogglePin,
	},
	"transparent": {
		description: "Make the window see-through at its alpha (0-255).",
		set:         (*ipc.Client).SetTransparent,
		toggle:      (*ipc.Client).ToggleTransparent,
	},
	"passthrough": {
		description: "Let mouse clicks fall through the window. Use 'relais release'\nor the release shortcut to get the pointer back.",
		set:         (*ipc.Client).SetPointerIgnore,
		toggle:      (*ipc.Client).TogglePointerIgnore,
	},
	"agent": {
		description: "Switch the page between the desktop (off) and mobile (on) user agent.",
		set:         (*ipc.Client).SetUserAgent,
		toggle:      (*ipc.Client).ToggleUserAgent,
	},
}

// parseSwitch reads on/off/toggle. toggle reports that no explicit value was
// given.
func parseSwitch(s string) (on bool, toggle bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "toggle":
		return false, true, nil
	case "on", "true", "yes", "1":
		return true, false, nil
	case "off", "false", "no", "0":
		return false, false, nil
	default:
		return false, false, fmt.Errorf("invalid value %q (want on, off or toggle)", s)
	}
}

func runFlag(name string, args []string) int {
	cmd, ok := flagCommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		return 2
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var alpha *int
	if name == "transparent" {
		alpha = fs.Int("alpha", -1, "Alpha to apply before enabling (0-255)")
	}
	fs.Usage = func() {
		if alpha != nil {
			fmt.Fprintf(os.Stderr, "Usage: relais %s [--alpha N] <label> [on|off|toggle]\n", name)
		} else {
			fmt.Fprintf(os.Stderr, "Usage: relais %s <label> [on|off|toggle]\n", name)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, cmd.description)
		fmt.Fprintln(os.Stderr, "Without a value the flag is toggled and the new state printed.")
		if alpha != nil {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintf(os.Stderr, "%s requires <label> and an optional value\n", name)
		fs.Usage()
		return 2
	}
	label := fs.Arg(0)
	on, toggle, err := parseSwitch(fs.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ipc.NewClient()
	if alpha != nil && *alpha >= 0 {
		if *alpha > 255 {
			fmt.Fprintln(os.Stderr, "alpha must be between 0 and 255")
			return 2
		}
		if err := client.SetAlpha(label, uint8(*alpha)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if toggle {
		on, err = cmd.toggle(client, label)
	} else {
		err = cmd.set(client, label, on)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if on {
		fmt.Printf("%s %s: on\n", label, name)
	} else {
		fmt.Printf("%s %s: off\n", label, name)
	}
	return 0
}

// parseZoom reads "+10"/"-10" as a relative change and "150" as an absolute
// percentage.
func parseZoom(s string) (value int, relative bool, err error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0, false, fmt.Errorf("zoom value is required")
	}
	relative = s[0] == '+' || s[0] == '-'
	value, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid zoom %q", s)
	}
	return value, relative, nil
}

func runZoom(args []string) int {
	fs := flag.NewFlagSet("zoom", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: relais zoom <label> <+N|-N|N>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Adjust page zoom by N percent, or set it to N percent.")
		fmt.Fprintln(os.Stderr, "Zoom is clamped to 20-500%.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "zoom requires <label> and a value")
		fs.Usage()
		return 2
	}
	value, relative, err := parseZoom(fs.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ipc.NewClient()
	var percent int
	if relative {
		percent, err = client.AdjustZoom(fs.Arg(0), value)
	} else {
		percent, err = client.SetZoom(fs.Arg(0), value)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("%s zoom: %d%%\n", fs.Arg(0), percent)
	return 0
}
