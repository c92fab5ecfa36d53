package webwatch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/webwatch/internal/fetcher"
	"github.com/loykin/webwatch/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) *Settings {
	t.Helper()
	p := filepath.Join(t.TempDir(), "webwatch.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	s, err := LoadSettings(p)
	require.NoError(t, err)
	return s
}

func TestFacadeCheckCycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Spring sale now</p></body></html>"))
	}))
	defer srv.Close()

	s := writeSettings(t, "[fetch]\nmode = \"text\"\n[notify]\ndesktop = false\nlog = true\n")
	f, err := NewFetcher(s)
	require.NoError(t, err)
	_, isText := f.(*fetcher.TextFetcher)
	assert.True(t, isText)

	w, err := NewWatcher(srv.URL, ParseKeywords("sale, ,spring"), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"sale", "spring"}, w.Keywords)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(f, NewNotifier(s, quiet), NewFileCache(t.TempDir()), WithLogger(quiet))
	res, err := e.Check(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, res.FirstCheck)
	assert.True(t, res.Notified)
	assert.Len(t, res.Matches, 2)
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	s := writeSettings(t, "[notify]\ndesktop = false\nlog = false\n")
	n := NewNotifier(s, nil)
	_, ok := n.(*notifier.Log)
	assert.True(t, ok, "expected log notifier, got %T", n)
}

func TestNewNotifierWithWebhook(t *testing.T) {
	s := writeSettings(t, "[notify]\ndesktop = false\nlog = true\nwebhook_url = \"http://127.0.0.1:1/hook\"\n")
	n := NewNotifier(s, nil)
	m, ok := n.(notifier.Multi)
	require.True(t, ok, "expected multi notifier, got %T", n)
	assert.Len(t, m, 2)
}

func TestNewFetcherRawAndInvalid(t *testing.T) {
	s := writeSettings(t, "")
	f, err := NewFetcher(s)
	require.NoError(t, err)
	_, isHTTP := f.(*fetcher.HTTPFetcher)
	assert.True(t, isHTTP)

	s.Fetch.Mode = "pdf"
	_, err = NewFetcher(s)
	assert.Error(t, err)
}

func TestStatusHandlerWithoutEngine(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "config.json"))
	h := StatusHandler("/api", reg, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegistryRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	reg := NewRegistry(p)
	w, err := NewWatcher("https://example.test", []string{"x"}, DefaultCheckInterval)
	require.NoError(t, err)
	require.NoError(t, reg.Add(w))
	require.NoError(t, reg.Save())

	loaded, err := LoadRegistry(p)
	require.NoError(t, err)
	got, err := loaded.Resolve(w.ID[:6])
	require.NoError(t, err)
	assert.Equal(t, w.URL, got.URL)
	assert.Equal(t, DefaultCheckInterval, got.CheckInterval)
}

func TestMetricsServerLifecycle(t *testing.T) {
	require.NoError(t, RegisterMetricsDefault())
	srv, err := NewMetricsServer("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ShutdownServer(srv, time.Second))
	_, err = http.Get("http://" + srv.Addr + "/metrics")
	assert.Error(t, err)
}
