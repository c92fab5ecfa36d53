package webwatch

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/loykin/webwatch/internal/cache"
	cfg "github.com/loykin/webwatch/internal/config"
	"github.com/loykin/webwatch/internal/diff"
	"github.com/loykin/webwatch/internal/engine"
	"github.com/loykin/webwatch/internal/fetcher"
	"github.com/loykin/webwatch/internal/history"
	"github.com/loykin/webwatch/internal/history/factory"
	"github.com/loykin/webwatch/internal/logger"
	"github.com/loykin/webwatch/internal/matcher"
	"github.com/loykin/webwatch/internal/metrics"
	"github.com/loykin/webwatch/internal/notifier"
	"github.com/loykin/webwatch/internal/registry"
	iapi "github.com/loykin/webwatch/internal/server"
	"github.com/loykin/webwatch/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Watcher = watcher.Watcher

type KeywordMatch = matcher.KeywordMatch

type Registry = registry.Registry

type Engine = engine.Engine

type EngineOption = engine.Option

type CycleResult = engine.CycleResult

type WatchStatus = engine.WatchStatus

type Fetcher = fetcher.Fetcher

type Notifier = notifier.Notifier

type CacheStore = cache.Store

type HistorySink = history.Sink

type Settings = cfg.Settings

var (
	ErrNotFound    = registry.ErrNotFound
	ErrAmbiguousID = registry.ErrAmbiguousID
	ErrDuplicateID = registry.ErrDuplicateID
)

var (
	WithLogger  = engine.WithLogger
	WithHistory = engine.WithHistory
)

const DefaultCheckInterval = watcher.DefaultCheckInterval

func NewWatcher(url string, keywords []string, interval time.Duration) (Watcher, error) {
	return watcher.New(url, keywords, interval)
}

func ParseInterval(s string) (time.Duration, error) { return watcher.ParseInterval(s) }
func ParseKeywords(s string) []string               { return watcher.ParseKeywords(s) }

func FindKeywords(content string, keywords []string) []KeywordMatch {
	return matcher.FindKeywords(content, keywords)
}

func HasChanged(old, new string) bool { return diff.HasChanged(old, new) }

func NewRegistry(path string) *Registry            { return registry.New(path) }
func LoadRegistry(path string) (*Registry, error) { return registry.Load(path) }

func NewFileCache(dir string) *cache.FileStore { return cache.NewFileStore(dir) }

func NewEngine(f Fetcher, n Notifier, c CacheStore, opts ...EngineOption) *Engine {
	return engine.New(f, n, c, opts...)
}

// LoadSettings reads a TOML settings file; a missing file yields defaults.
func LoadSettings(path string) (*Settings, error) { return cfg.LoadIfExists(path) }

// NewLogger builds the application logger described by the [log] section.
func NewLogger(s *Settings) (*slog.Logger, io.Closer, error) {
	return logger.New(s.LoggerConfig())
}

// NewFetcher builds the HTTP fetcher described by the [fetch] section,
// wrapped in the HTML-to-text reducer when mode is "text".
func NewFetcher(s *Settings) (Fetcher, error) {
	mode, err := fetcher.ParseMode(s.Fetch.Mode)
	if err != nil {
		return nil, err
	}
	var f Fetcher = fetcher.NewHTTP(s.FetcherConfig())
	if mode == fetcher.ModeText {
		f = fetcher.NewText(f)
	}
	return f, nil
}

// NewNotifier builds the channels enabled in the [notify] section. A desktop
// channel without a helper binary is skipped with a warning; when nothing
// remains, alerts go to the log.
func NewNotifier(s *Settings, l *slog.Logger) Notifier {
	if l == nil {
		l = slog.Default()
	}
	var out notifier.Multi
	if s.Notify.Desktop {
		d := notifier.NewDesktop()
		if d.Available() {
			out = append(out, d)
		} else {
			l.Warn("desktop notifications unavailable on this host; skipping")
		}
	}
	if s.Notify.WebhookURL != "" {
		out = append(out, notifier.NewWebhook(s.Notify.WebhookURL,
			notifier.WithWebhookRetries(s.Notify.WebhookRetries),
			notifier.WithWebhookLogger(l),
		))
	}
	if s.Notify.Log || len(out) == 0 {
		out = append(out, notifier.NewLog(l))
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// NewHistorySinks opens every DSN of the [history] section.
func NewHistorySinks(s *Settings) ([]HistorySink, error) {
	return factory.NewSinks(s.History.DSNs)
}

func CloseHistorySinks(sinks []HistorySink) error { return history.CloseAll(sinks...) }

// NewStatusServer starts the read-only status API for reg and eng.
func NewStatusServer(addr, basePath string, reg *Registry, eng *Engine) (*http.Server, error) {
	return iapi.NewServer(addr, newRouter(reg, eng, basePath))
}

// StatusHandler returns the status API as an embeddable handler.
func StatusHandler(basePath string, reg *Registry, eng *Engine) http.Handler {
	return newRouter(reg, eng, basePath).Handler()
}

func newRouter(reg *Registry, eng *Engine, basePath string) *iapi.Router {
	if eng == nil {
		return iapi.NewRouter(reg, nil, basePath)
	}
	return iapi.NewRouter(reg, eng, basePath)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	return metricsServer(addr).ListenAndServe()
}

// NewMetricsServer binds addr and serves /metrics in the background.
// Stop it with ShutdownServer.
func NewMetricsServer(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := metricsServer(ln.Addr().String())
	go func() { _ = srv.Serve(ln) }()
	return srv, nil
}

// ShutdownServer stops a server started by NewStatusServer or NewMetricsServer.
func ShutdownServer(srv *http.Server, timeout time.Duration) error {
	return iapi.Shutdown(srv, timeout)
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
