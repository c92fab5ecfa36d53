package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/webwatch/internal/engine"
	"github.com/loykin/webwatch/internal/registry"
	"github.com/loykin/webwatch/internal/watcher"
)

type fakeRuntime struct {
	started time.Time
	status  []engine.WatchStatus
}

func (f *fakeRuntime) StartedAt() time.Time         { return f.started }
func (f *fakeRuntime) Status() []engine.WatchStatus { return f.status }
func (f *fakeRuntime) Active() int                  { return len(f.status) }

func setupRouter(t *testing.T, base string) (http.Handler, *registry.Registry, *fakeRuntime) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := registry.New(filepath.Join(t.TempDir(), "config.json"))
	rt := &fakeRuntime{started: time.Now().Add(-time.Minute)}
	r := NewRouter(reg, rt, base)
	return r.Handler(), reg, rt
}

func addWatcher(t *testing.T, reg *registry.Registry, url string, enabled bool) watcher.Watcher {
	t.Helper()
	w, err := watcher.New(url, []string{"sale"}, time.Minute)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.Enabled = enabled
	if err := reg.Add(w); err != nil {
		t.Fatalf("add: %v", err)
	}
	return w
}

func doReq(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusCounts(t *testing.T) {
	h, reg, rt := setupRouter(t, "/api")
	w := addWatcher(t, reg, "https://a.test", true)
	addWatcher(t, reg, "https://b.test", false)
	rt.status = []engine.WatchStatus{{ID: w.ID, URL: w.URL, State: engine.StateWaiting}}

	rec := doReq(t, h, http.MethodGet, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp StatusResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Watchers != 2 || resp.Enabled != 1 || resp.Active != 1 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
	if resp.StartedAt == nil || resp.Uptime == "" {
		t.Fatalf("expected uptime in %+v", resp)
	}
	if resp.PID == 0 {
		t.Fatalf("expected pid")
	}
}

func TestStatusWithoutEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := registry.New(filepath.Join(t.TempDir(), "config.json"))
	h := NewRouter(reg, nil, "").Handler()
	rec := doReq(t, h, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "started_at") {
		t.Fatalf("did not expect started_at: %s", rec.Body.String())
	}
}

func TestListWatchersIncludesRuntime(t *testing.T) {
	h, reg, rt := setupRouter(t, "")
	w := addWatcher(t, reg, "https://a.test", true)
	addWatcher(t, reg, "https://b.test", false)
	rt.status = []engine.WatchStatus{{ID: w.ID, URL: w.URL, State: engine.StateChecking, Checks: 3}}

	rec := doReq(t, h, http.MethodGet, "/watchers")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []WatcherView
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 watchers, got %d", len(out))
	}
	if out[0].Runtime == nil || out[0].Runtime.Checks != 3 {
		t.Fatalf("expected runtime on first watcher: %+v", out[0])
	}
	if out[1].Runtime != nil {
		t.Fatalf("disabled watcher should have no runtime: %+v", out[1])
	}
	if out[0].Watcher.URL != "https://a.test" {
		t.Fatalf("order not preserved: %s", out[0].Watcher.URL)
	}
}

func TestGetWatcherByPrefix(t *testing.T) {
	h, reg, _ := setupRouter(t, "/api/")
	w := addWatcher(t, reg, "https://a.test", true)

	rec := doReq(t, h, http.MethodGet, "/api/watchers/"+w.ID[:8])
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v WatcherView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Watcher.ID != w.ID {
		t.Fatalf("got %s want %s", v.Watcher.ID, w.ID)
	}
}

func TestGetWatcherUnknown(t *testing.T) {
	h, _, _ := setupRouter(t, "")
	rec := doReq(t, h, http.MethodGet, "/watchers/deadbeef")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetWatcherInvalidID(t *testing.T) {
	h, _, _ := setupRouter(t, "")
	rec := doReq(t, h, http.MethodGet, "/watchers/a..b")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNewServerServesAndShutsDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := registry.New(filepath.Join(t.TempDir(), "config.json"))
	srv, err := NewServer("127.0.0.1:0", NewRouter(reg, nil, "/api"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := Shutdown(srv, time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
