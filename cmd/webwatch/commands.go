package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/loykin/webwatch"
	"github.com/loykin/webwatch/internal/server"
	"github.com/loykin/webwatch/internal/tui"
)

type command struct {
	globals *GlobalFlags
	out     io.Writer
}

func (c *command) open() (*app, error) {
	return openApp(*c.globals)
}

// withRegistry runs fn against the loaded registry and saves it afterwards
// when fn reports a change.
func (c *command) withRegistry(fn func(a *app, reg *webwatch.Registry) (bool, error)) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}
	changed, err := fn(a, reg)
	if err != nil {
		return err
	}
	if changed {
		return reg.Save()
	}
	return nil
}

func (c *command) Add(f AddFlags) error {
	interval, err := webwatch.ParseInterval(f.Interval)
	if err != nil {
		return err
	}
	w, err := webwatch.NewWatcher(f.URL, webwatch.ParseKeywords(f.Keywords), interval)
	if err != nil {
		return err
	}
	return c.withRegistry(func(a *app, reg *webwatch.Registry) (bool, error) {
		if err := reg.Add(w); err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(c.out, "Added watcher %s for %s (every %s)\n", tui.ShortID(w.ID), w.URL, w.CheckInterval)
		return true, nil
	})
}

func (c *command) List(f ListFlags) error {
	return c.withRegistry(func(a *app, reg *webwatch.Registry) (bool, error) {
		ws := reg.List()
		if f.JSON {
			printJSON(c.out, ws)
			return false, nil
		}
		if len(ws) == 0 {
			_, _ = fmt.Fprintln(c.out, "No watchers configured. Add one with `webwatch add --url URL`.")
			return false, nil
		}
		_, _ = fmt.Fprintln(c.out, tui.Table(ws))
		return false, nil
	})
}

func (c *command) Edit(ref string, f EditFlags) error {
	if !f.SetURL && !f.SetKeywords && !f.SetInterval {
		return errors.New("nothing to edit: pass --url, --keywords or --interval")
	}
	var interval time.Duration
	if f.SetInterval {
		d, err := webwatch.ParseInterval(f.Interval)
		if err != nil {
			return err
		}
		interval = d
	}
	if f.SetURL && strings.TrimSpace(f.URL) == "" {
		return errors.New("url must not be empty")
	}
	return c.withRegistry(func(a *app, reg *webwatch.Registry) (bool, error) {
		w, err := reg.Resolve(ref)
		if err != nil {
			return false, err
		}
		err = reg.Edit(w.ID, func(w *webwatch.Watcher) error {
			if f.SetURL {
				w.URL = strings.TrimSpace(f.URL)
			}
			if f.SetKeywords {
				w.Keywords = webwatch.ParseKeywords(f.Keywords)
			}
			if f.SetInterval {
				w.CheckInterval = interval
			}
			return nil
		})
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(c.out, "Updated watcher %s\n", tui.ShortID(w.ID))
		return true, nil
	})
}

// Remove deletes the watcher and its cache snapshot.
func (c *command) Remove(ref string) error {
	return c.withRegistry(func(a *app, reg *webwatch.Registry) (bool, error) {
		w, err := reg.Resolve(ref)
		if err != nil {
			return false, err
		}
		if _, err := reg.Remove(w.ID); err != nil {
			return false, err
		}
		// the snapshot goes only after the removal is saved
		if err := reg.Save(); err != nil {
			return false, err
		}
		if store, err := a.cache(); err == nil {
			if err := store.Remove(w.CacheKey()); err != nil {
				a.logger.Warn("failed to remove cache entry", "watcher", w.ID, "error", err)
			}
		}
		_, _ = fmt.Fprintf(c.out, "Removed watcher %s (%s)\n", tui.ShortID(w.ID), w.URL)
		return false, nil
	})
}

func (c *command) Toggle(ref string) error {
	return c.withRegistry(func(a *app, reg *webwatch.Registry) (bool, error) {
		w, err := reg.Resolve(ref)
		if err != nil {
			return false, err
		}
		on, err := reg.Toggle(w.ID)
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(c.out, "Watcher %s %s\n", tui.ShortID(w.ID), enabledWord(on))
		return true, nil
	})
}

// SetEnabled is idempotent; the registry is only saved when the flag flips.
func (c *command) SetEnabled(ref string, on bool) error {
	return c.withRegistry(func(a *app, reg *webwatch.Registry) (bool, error) {
		w, err := reg.Resolve(ref)
		if err != nil {
			return false, err
		}
		changed := w.Enabled != on
		if changed {
			if _, err := reg.Toggle(w.ID); err != nil {
				return false, err
			}
		}
		_, _ = fmt.Fprintf(c.out, "Watcher %s %s\n", tui.ShortID(w.ID), enabledWord(on))
		return changed, nil
	})
}

func enabledWord(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// Check runs one cycle now. last_checked is only written on success.
func (c *command) Check(ctx context.Context, ref string, f CheckFlags) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}
	w, err := reg.Resolve(ref)
	if err != nil {
		return err
	}
	eng, sinks, err := a.newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = webwatch.CloseHistorySinks(sinks) }()

	res, err := eng.Check(ctx, w)
	if err != nil {
		return fmt.Errorf("check %s: %w", tui.ShortID(w.ID), err)
	}
	if err := reg.Touch(w.ID, time.Now()); err != nil {
		return err
	}

	if f.JSON {
		printJSON(c.out, res)
		return nil
	}
	_, _ = fmt.Fprintf(c.out, "%s %s: changed=%t first=%t matches=%d notified=%t\n",
		tui.ShortID(w.ID), w.URL, res.Changed, res.FirstCheck, len(res.Matches), res.Notified)
	if res.Summary != "" {
		_, _ = fmt.Fprintf(c.out, "  %s\n", res.Summary)
	}
	for _, m := range res.Matches {
		_, _ = fmt.Fprintf(c.out, "  [%s] %s\n", m.Keyword, m.Context)
	}
	return nil
}

// Start runs the engine in the foreground until ctx is cancelled.
// The status API is only exposed when [server].enabled is set.
func (c *command) Start(ctx context.Context) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return c.run(ctx, a, a.settings.Server.Enabled, "")
}

// Serve runs the engine with the status API, writing a pidfile; with
// Daemonize it re-executes itself in the background first.
func (c *command) Serve(ctx context.Context, f ServeFlags) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	pidFile := firstNonEmpty(f.PidFile, a.pidFile())
	if f.Daemonize {
		return daemonize(pidFile, firstNonEmpty(f.LogFile, a.settings.Server.LogFile))
	}

	if pid, err := runningPid(pidFile); err == nil && pid != os.Getpid() {
		return fmt.Errorf("webwatch already running with pid %d (%s)", pid, pidFile)
	}
	if err := writePidFile(pidFile, os.Getpid()); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() { _ = removePidFile(pidFile) }()

	return c.run(ctx, a, true, f.Listen)
}

func (c *command) run(ctx context.Context, a *app, withAPI bool, listen string) error {
	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}
	eng, sinks, err := a.newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = webwatch.CloseHistorySinks(sinks) }()

	if a.settings.Metrics.Enabled {
		if err := webwatch.RegisterMetricsDefault(); err != nil {
			a.logger.Warn("failed to register metrics", "error", err)
		}
		if a.settings.Metrics.Listen != "" {
			msrv, err := webwatch.NewMetricsServer(a.settings.Metrics.Listen)
			if err != nil {
				return fmt.Errorf("failed to start metrics server: %w", err)
			}
			defer func() { _ = webwatch.ShutdownServer(msrv, 5*time.Second) }()
			a.logger.Info("metrics listening", "addr", msrv.Addr)
		}
	}

	if withAPI {
		addr := firstNonEmpty(listen, a.settings.Server.Listen)
		srv, err := webwatch.NewStatusServer(addr, a.settings.Server.BasePath, reg, eng)
		if err != nil {
			return fmt.Errorf("failed to start status API: %w", err)
		}
		defer func() { _ = webwatch.ShutdownServer(srv, 5*time.Second) }()
		a.logger.Info("status API listening", "addr", srv.Addr, "base_path", a.settings.Server.BasePath)
	}

	res, err := eng.Start(ctx, reg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, res.String())
	return nil
}

func (c *command) Stop(f StopFlags) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	pidFile := firstNonEmpty(f.PidFile, a.pidFile())
	pid, err := stopDaemon(pidFile, f.Wait)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Stopped webwatch (pid %d)\n", pid)
	return nil
}

// Status asks the daemon's API; when it is unreachable, the pidfile decides.
func (c *command) Status(ref string, f StatusFlags) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	apiURL := firstNonEmpty(f.APIUrl, a.apiURL())
	client := NewAPIClient(apiURL, f.APITimeout)
	if client.IsReachable() {
		if ref != "" {
			v, err := client.GetWatcher(ref)
			if err != nil {
				return err
			}
			printJSON(c.out, v)
			return nil
		}
		st, err := client.GetStatus()
		if err != nil {
			return err
		}
		ws, err := client.ListWatchers()
		if err != nil {
			return err
		}
		printJSON(c.out, struct {
			Daemon   server.StatusResp    `json:"daemon"`
			Watchers []server.WatcherView `json:"watchers"`
		}{st, ws})
		return nil
	}

	pidFile := firstNonEmpty(f.PidFile, a.pidFile())
	pid, err := runningPid(pidFile)
	switch {
	case errors.Is(err, ErrNotRunning):
		_, _ = fmt.Fprintln(c.out, "webwatch is not running")
		return nil
	case err != nil:
		return err
	}
	_, _ = fmt.Fprintf(c.out, "webwatch is running (pid %d) but the API at %s is unreachable\n", pid, apiURL)
	return nil
}

// TUI opens the interactive list. Saved deletions also drop cache entries.
func (c *command) TUI() error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}
	store, err := a.cache()
	if err != nil {
		return err
	}
	m := tui.New(reg, tui.WithRemoveHook(func(w webwatch.Watcher) error {
		return store.Remove(w.CacheKey())
	}))
	final, err := tui.Run(m)
	if err != nil {
		return err
	}
	if final.Dirty() {
		_, _ = fmt.Fprintln(c.out, "Unsaved changes discarded")
	}
	return final.Err()
}
