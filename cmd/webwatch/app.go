package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/loykin/webwatch"
	"github.com/loykin/webwatch/internal/cache"
	"github.com/loykin/webwatch/internal/config"
	"github.com/loykin/webwatch/internal/env"
)

const pidFileName = "webwatch.pid"

// app is the resolved runtime context of one CLI invocation.
type app struct {
	settings     *webwatch.Settings
	logger       *slog.Logger
	closer       io.Closer
	locator      *env.Locator
	registryPath string
}

// openApp loads settings and the logger and resolves file locations.
// An explicit --config must exist; the default settings file is optional.
func openApp(g GlobalFlags) (*app, error) {
	loc := env.New()

	var (
		s   *webwatch.Settings
		err error
	)
	if g.ConfigPath != "" {
		s, err = config.Load(loc.Expand(g.ConfigPath))
	} else {
		p, perr := loc.SettingsPath()
		if perr != nil && !errors.Is(perr, env.ErrNoHome) {
			return nil, perr
		}
		s, err = webwatch.LoadSettings(p)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	l, closer, err := webwatch.NewLogger(s)
	if err != nil {
		return nil, err
	}

	loc.RegistryPath = firstNonEmpty(g.RegistryPath, s.Registry)
	loc.CachePath = s.CacheDir
	rp, err := loc.ConfigPath()
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return &app{settings: s, logger: l, closer: closer, locator: loc, registryPath: rp}, nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *app) loadRegistry() (*webwatch.Registry, error) {
	return webwatch.LoadRegistry(a.registryPath)
}

func (a *app) cache() (*cache.FileStore, error) {
	dir, err := a.locator.CacheDir()
	if err != nil {
		return nil, err
	}
	return webwatch.NewFileCache(dir), nil
}

// pidFile is [server].pidfile, or webwatch.pid next to the registry.
func (a *app) pidFile() string {
	if p := a.settings.Server.PIDFile; p != "" {
		return a.locator.Expand(p)
	}
	return filepath.Join(filepath.Dir(a.registryPath), pidFileName)
}

func (a *app) apiURL() string {
	return apiBaseURL(a.settings.Server.Listen, a.settings.Server.BasePath)
}

// newEngine wires fetcher, notifier, cache and history sinks from settings.
// The returned sinks must be closed by the caller.
func (a *app) newEngine() (*webwatch.Engine, []webwatch.HistorySink, error) {
	f, err := webwatch.NewFetcher(a.settings)
	if err != nil {
		return nil, nil, err
	}
	c, err := a.cache()
	if err != nil {
		return nil, nil, err
	}
	sinks, err := webwatch.NewHistorySinks(a.settings)
	if err != nil {
		return nil, nil, err
	}
	n := webwatch.NewNotifier(a.settings, a.logger)
	e := webwatch.NewEngine(f, n, c, webwatch.WithLogger(a.logger), webwatch.WithHistory(sinks...))
	return e, sinks, nil
}
