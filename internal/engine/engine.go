// Package engine runs one check loop per enabled watcher.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/webwatch/internal/cache"
	"github.com/loykin/webwatch/internal/fetcher"
	"github.com/loykin/webwatch/internal/history"
	"github.com/loykin/webwatch/internal/metrics"
	"github.com/loykin/webwatch/internal/notifier"
	"github.com/loykin/webwatch/internal/registry"
	"github.com/loykin/webwatch/internal/watcher"
)

// Reason tells why Start returned.
type Reason int

const (
	NoWatchers Reason = iota + 1
	NoneEnabled
	Stopped
)

// Result is returned by Start.
type Result struct {
	Reason   Reason
	Watchers int // loops that were running
}

func (r Result) String() string {
	switch r.Reason {
	case NoWatchers:
		return "no watchers configured; add one first"
	case NoneEnabled:
		return "no enabled watchers; enable one first"
	case Stopped:
		return fmt.Sprintf("stopped after running %d watcher(s)", r.Watchers)
	default:
		return "not started"
	}
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHistory adds sinks that receive one event per finished cycle.
func WithHistory(sinks ...history.Sink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine owns the collaborators shared by every watcher loop.
type Engine struct {
	fetcher  fetcher.Fetcher
	notifier notifier.Notifier
	cache    cache.Store
	sinks    []history.Sink
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	startedAt time.Time
	order     []string
	status    map[string]*WatchStatus
}

func New(f fetcher.Fetcher, n notifier.Notifier, c cache.Store, opts ...Option) *Engine {
	e := &Engine{
		fetcher:  f,
		notifier: n,
		cache:    c,
		logger:   slog.Default(),
		now:      time.Now,
		status:   make(map[string]*WatchStatus),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start snapshots the enabled watchers of reg and runs one loop per watcher
// until ctx is cancelled. Watchers added to reg afterwards are not picked up.
func (e *Engine) Start(ctx context.Context, reg *registry.Registry) (Result, error) {
	if reg == nil {
		return Result{}, fmt.Errorf("engine: nil registry")
	}
	if reg.Len() == 0 {
		return Result{Reason: NoWatchers}, nil
	}
	ws := reg.Enabled()
	if len(ws) == 0 {
		return Result{Reason: NoneEnabled}, nil
	}

	e.mu.Lock()
	e.startedAt = e.now()
	e.order = e.order[:0]
	for _, w := range ws {
		e.order = append(e.order, w.ID)
		e.status[w.ID] = &WatchStatus{ID: w.ID, URL: w.URL, State: StateWaiting}
	}
	e.mu.Unlock()

	metrics.SetActiveWatchers(len(ws))
	e.logger.Info("engine started", "watchers", len(ws), "registry", reg.Path())

	var wg sync.WaitGroup
	for _, w := range ws {
		wg.Add(1)
		go func(w watcher.Watcher) {
			defer wg.Done()
			e.loop(ctx, reg, w)
		}(w)
	}
	wg.Wait()

	metrics.SetActiveWatchers(0)
	e.logger.Info("engine stopped", "watchers", len(ws))
	return Result{Reason: Stopped, Watchers: len(ws)}, nil
}

// loop waits a full interval before every check, including the first.
func (e *Engine) loop(ctx context.Context, reg *registry.Registry, w watcher.Watcher) {
	log := e.logger.With("watcher", w.ID, "url", w.URL)
	if w.CheckInterval <= 0 {
		log.Error("watcher not scheduled", "error", watcher.ErrInvalidInterval, "interval", w.CheckInterval)
		e.setState(w.ID, StateStopped)
		return
	}
	timer := time.NewTimer(w.CheckInterval)
	defer timer.Stop()

	for {
		e.setWaiting(w.ID, e.now().Add(w.CheckInterval))
		select {
		case <-ctx.Done():
			e.setState(w.ID, StateStopped)
			return
		case <-timer.C:
		}

		e.setState(w.ID, StateChecking)
		_, err := e.Check(ctx, w)
		if err == nil {
			if terr := reg.Touch(w.ID, e.now()); terr != nil {
				log.Error("failed to persist last_checked", "error", terr)
			}
		}
		if ctx.Err() != nil {
			e.setState(w.ID, StateStopped)
			return
		}
		timer.Reset(w.CheckInterval)
	}
}
