// Package env resolves where webwatch keeps its files.
//
// Resolution order:
//  1. explicit overrides (settings file or flags)
//  2. WEBWATCH_HOME → $WEBWATCH_HOME/{config,cache}
//  3. XDG env vars → $XDG_CONFIG_HOME/web-watcher-alert, $XDG_CACHE_HOME/web-watcher-alert
//  4. ~/.config/web-watcher-alert, ~/.cache/web-watcher-alert
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	AppDir       = "web-watcher-alert"
	RegistryFile = "config.json"
	SettingsFile = "webwatch.toml"
	HomeVar      = "WEBWATCH_HOME"
	cacheDirPerm = 0o750
)

var ErrNoHome = errors.New("cannot determine home directory")

type Var map[string]string

// Locator computes config and cache locations. The zero value reads the
// process environment.
type Locator struct {
	Var Var // overrides consulted before the OS environment

	RegistryPath string // overrides ConfigPath when set
	CachePath    string // overrides CacheDir when set

	home func() (string, error)
}

func New() *Locator {
	return &Locator{Var: make(Var)}
}

// Set overrides an environment variable for this locator only.
func (l *Locator) Set(k, v string) {
	if l.Var == nil {
		l.Var = make(Var)
	}
	l.Var[k] = v
}

func (l *Locator) getenv(k string) string {
	if v, ok := l.Var[k]; ok {
		return v
	}
	return os.Getenv(k)
}

func (l *Locator) homeDir() (string, error) {
	if l.home != nil {
		return l.home()
	}
	if h := l.getenv("HOME"); h != "" {
		return h, nil
	}
	return os.UserHomeDir()
}

func (l *Locator) base(kind, xdgVar, fallback string) (string, error) {
	if root := l.getenv(HomeVar); root != "" {
		return filepath.Join(root, kind), nil
	}
	if x := l.getenv(xdgVar); x != "" {
		return filepath.Join(x, AppDir), nil
	}
	h, err := l.homeDir()
	if err != nil || h == "" {
		return "", ErrNoHome
	}
	return filepath.Join(h, fallback, AppDir), nil
}

// ConfigDir is the directory holding the registry and the settings file.
func (l *Locator) ConfigDir() (string, error) {
	if l.RegistryPath != "" {
		return filepath.Dir(l.Expand(l.RegistryPath)), nil
	}
	return l.base("config", "XDG_CONFIG_HOME", ".config")
}

// ConfigPath is the registry JSON file.
func (l *Locator) ConfigPath() (string, error) {
	if l.RegistryPath != "" {
		return l.Expand(l.RegistryPath), nil
	}
	dir, err := l.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RegistryFile), nil
}

// SettingsPath is the optional TOML settings file next to the registry.
func (l *Locator) SettingsPath() (string, error) {
	dir, err := l.base("config", "XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFile), nil
}

// CacheDir returns the snapshot directory, creating it if needed.
func (l *Locator) CacheDir() (string, error) {
	dir := l.Expand(l.CachePath)
	if dir == "" {
		var err error
		if dir, err = l.base("cache", "XDG_CACHE_HOME", ".cache"); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, cacheDirPerm); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	return dir, nil
}

// Expand resolves a leading "~" and ${VAR}/$VAR references.
func (l *Locator) Expand(p string) string {
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if h, err := l.homeDir(); err == nil {
			p = filepath.Join(h, strings.TrimPrefix(p, "~"))
		}
	}
	return os.Expand(p, l.getenv)
}
