package batch

import (
	"os"
	"path/filepath"
	"runtime"
)

// StateDir resolves the platform-appropriate app-data root for appName,
// honoring override if non-empty (set from LLMBATCH_STATE_DIR).
//
//   - Windows: %APPDATA%/<appname>/
//   - Linux:   $XDG_CONFIG_HOME/<appname>/ or ~/.config/<appname>/
//   - macOS:   ~/Library/Application Support/<appname>/
func StateDir(appName, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "AppData", "Roaming", appName), nil

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil

	default: // linux and other unix-likes
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
}

// EnsureStateDir resolves and creates the state directory if absent.
func EnsureStateDir(appName, override string) (string, error) {
	dir, err := StateDir(appName, override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
