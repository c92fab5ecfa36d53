package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/webwatch/internal/engine"
	"github.com/loykin/webwatch/internal/metrics"
	"github.com/loykin/webwatch/internal/registry"
	"github.com/loykin/webwatch/internal/watcher"
)

// Router provides embeddable read-only HTTP handlers for a running daemon.
// Endpoints:
//   GET {basePath}/status         daemon status and watcher counts
//   GET {basePath}/watchers       every watcher with its loop state
//   GET {basePath}/watchers/:id   one watcher; id may be a unique prefix
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	reg      *registry.Registry
	eng      Runtime
	basePath string
	pid      int
}

// Runtime is the engine view the router reports on.
type Runtime interface {
	StartedAt() time.Time
	Status() []engine.WatchStatus
	Active() int
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/status, /api/watchers.
func NewRouter(reg *registry.Registry, eng Runtime, basePath string) *Router {
	return &Router{reg: reg, eng: eng, basePath: sanitizeBase(basePath), pid: os.Getpid()}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/watchers", r.handleList)
	group.GET("/watchers/:id", r.handleGet)
	return g
}

// NewServer binds addr and serves the router in the background. Bind errors
// are returned; call Shutdown on the result to stop it.
func NewServer(addr string, r *Router) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.Serve(ln) }()
	return server, nil
}

// Shutdown stops srv, waiting at most timeout for open requests.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

// StatusResp is served by GET {basePath}/status.
type StatusResp struct {
	PID       int                   `json:"pid"`
	StartedAt *time.Time            `json:"started_at,omitempty"`
	Uptime    string                `json:"uptime,omitempty"`
	Registry  string                `json:"registry"`
	Watchers  int                   `json:"watchers"`
	Enabled   int                   `json:"enabled"`
	Active    int                   `json:"active"`
	Process   *metrics.ProcessStats `json:"process,omitempty"`
}

// WatcherView pairs the stored record with its loop state, if scheduled.
type WatcherView struct {
	Watcher watcher.Watcher     `json:"watcher"`
	Runtime *engine.WatchStatus `json:"runtime,omitempty"`
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := StatusResp{
		PID:      r.pid,
		Registry: r.reg.Path(),
		Watchers: r.reg.Len(),
		Enabled:  len(r.reg.Enabled()),
	}
	if r.eng != nil {
		if st := r.eng.StartedAt(); !st.IsZero() {
			u := st.UTC()
			resp.StartedAt = &u
			resp.Uptime = time.Since(st).Truncate(time.Second).String()
		}
		resp.Active = r.eng.Active()
	}
	if ps, err := metrics.SelfStats(); err == nil {
		resp.Process = &ps
	}
	writeJSON(c, http.StatusOK, resp)
}

func (r *Router) runtimeByID() map[string]engine.WatchStatus {
	m := make(map[string]engine.WatchStatus)
	if r.eng == nil {
		return m
	}
	for _, st := range r.eng.Status() {
		m[st.ID] = st
	}
	return m
}

func (r *Router) view(w watcher.Watcher, rt map[string]engine.WatchStatus) WatcherView {
	v := WatcherView{Watcher: w}
	if st, ok := rt[w.ID]; ok {
		v.Runtime = &st
	}
	return v
}

func (r *Router) handleList(c *gin.Context) {
	rt := r.runtimeByID()
	list := r.reg.List()
	out := make([]WatcherView, 0, len(list))
	for _, w := range list {
		out = append(out, r.view(w, rt))
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleGet(c *gin.Context) {
	id := c.Param("id")
	if !isSafeID(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid watcher id"})
		return
	}
	w, err := r.reg.Resolve(id)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
		return
	case err != nil:
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, r.view(w, r.runtimeByID()))
}
