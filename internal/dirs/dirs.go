// Package dirs resolves per-user directories for ytvox's config and state.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "ytvox"

type location struct {
	xdgEnv    string   // linux override, e.g. XDG_CONFIG_HOME
	linuxHome []string // linux default below $HOME
	darwin    []string // below $HOME, app name appended
	fallback  func() (string, error)
}

var (
	configLoc = location{
		xdgEnv:    "XDG_CONFIG_HOME",
		linuxHome: []string{".config"},
		darwin:    []string{"Library", "Application Support"},
		fallback:  os.UserConfigDir,
	}
	stateLoc = location{
		xdgEnv:    "XDG_STATE_HOME",
		linuxHome: []string{".local", "state"},
		darwin:    []string{"Library", "Application Support"},
		fallback:  os.UserCacheDir,
	}
)

func (l location) resolve(goos string) (string, error) {
	if goos == "linux" {
		if xdg := os.Getenv(l.xdgEnv); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}
	if goos == "linux" || goos == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		parts := l.linuxHome
		if goos == "darwin" {
			parts = l.darwin
		}
		return filepath.Join(append(append([]string{home}, parts...), appName)...), nil
	}
	base, err := l.fallback()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// ConfigDir returns the app's configuration directory.
// - Linux: $XDG_CONFIG_HOME/ytvox or ~/.config/ytvox
// - macOS: ~/Library/Application Support/ytvox
// - Windows: %AppData%/ytvox
func ConfigDir() (string, error) {
	return configLoc.resolve(runtime.GOOS)
}

// StateDir holds the log file and download history.
// - Linux: $XDG_STATE_HOME/ytvox or ~/.local/state/ytvox
// - macOS: ~/Library/Application Support/ytvox
// - Windows: %LocalAppData%/ytvox
func StateDir() (string, error) {
	return stateLoc.resolve(runtime.GOOS)
}

// LogFile is where the TUI writes its log since it owns the terminal.
func LogFile() (string, error) {
	d, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, appName+".log"), nil
}

// HistoryDB is the download history database path.
func HistoryDB() (string, error) {
	d, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "history.db"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures the config and state dirs exist.
func EnsureAll() error {
	for _, fn := range []func() (string, error){ConfigDir, StateDir} {
		p, err := fn()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
