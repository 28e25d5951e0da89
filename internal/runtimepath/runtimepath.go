package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	socketName     = "relais.sock"
	configFileName = "relais.yaml"
	profileDirName = "relais-profile"
)

// Dir returns the runtime directory used for the IPC socket and the browser
// profile. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/relais-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/relais-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// ProfileDir returns the default browser user data directory.
func ProfileDir() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, profileDirName), nil
}

// Debug reports whether RELAIS_DEBUG is set to a truthy value.
func Debug() bool {
	v := strings.TrimSpace(os.Getenv("RELAIS_DEBUG"))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

// ConfigPath returns the config file location. Priority:
// 1) RELAIS_CONFIG (if set)
// 2) ./temp/relais.yaml when RELAIS_DEBUG is truthy
// 3) relais.yaml next to the executable
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("RELAIS_CONFIG")); p != "" {
		return filepath.Abs(p)
	}
	if Debug() {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return filepath.Join(wd, "temp", configFileName), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), configFileName), nil
}
