package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/loykin/webwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	dir      string
	registry string
	cmd      command
	out      *bytes.Buffer
}

func writeTOML(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return p
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	slash := filepath.ToSlash(dir)
	cfg := writeTOML(t, dir, "webwatch.toml", fmt.Sprintf(`
cache_dir = "%s/cache"

[log]
level = "error"
color = false

[notify]
desktop = false
log = true

[server]
listen = "127.0.0.1:1"
pidfile = "%s/webwatch.pid"
`, slash, slash))
	out := &bytes.Buffer{}
	reg := filepath.Join(dir, "config.json")
	return &testEnv{
		dir:      dir,
		registry: reg,
		out:      out,
		cmd:      command{globals: &GlobalFlags{ConfigPath: cfg, RegistryPath: reg}, out: out},
	}
}

func (e *testEnv) load(t *testing.T) *webwatch.Registry {
	t.Helper()
	reg, err := webwatch.LoadRegistry(e.registry)
	require.NoError(t, err)
	return reg
}

func (e *testEnv) only(t *testing.T) webwatch.Watcher {
	t.Helper()
	ws := e.load(t).List()
	require.Len(t, ws, 1)
	return ws[0]
}

func TestAddListEditRemove(t *testing.T) {
	e := newTestEnv(t)

	require.NoError(t, e.cmd.Add(AddFlags{URL: "https://example.test/a", Keywords: "sale, deal", Interval: "600"}))
	w := e.only(t)
	assert.Equal(t, []string{"sale", "deal"}, w.Keywords)
	assert.Equal(t, "10m0s", w.CheckInterval.String())
	assert.True(t, w.Enabled)
	assert.Contains(t, e.out.String(), "Added watcher "+w.ID[:8])

	e.out.Reset()
	require.NoError(t, e.cmd.List(ListFlags{}))
	assert.Contains(t, e.out.String(), "https://example.test/a")

	e.out.Reset()
	require.NoError(t, e.cmd.List(ListFlags{JSON: true}))
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, float64(600), listed[0]["check_interval"])

	require.NoError(t, e.cmd.Edit(w.ID[:6], EditFlags{Keywords: "restock", SetKeywords: true, Interval: "1h", SetInterval: true}))
	edited := e.only(t)
	assert.Equal(t, []string{"restock"}, edited.Keywords)
	assert.Equal(t, "1h0m0s", edited.CheckInterval.String())
	assert.Equal(t, w.URL, edited.URL)
	assert.Equal(t, w.CachePath, edited.CachePath)

	require.NoError(t, e.cmd.Remove(w.ID))
	assert.Equal(t, 0, e.load(t).Len())
}

func TestRemoveDropsCacheSnapshot(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.cmd.Add(AddFlags{URL: "https://x.test"}))
	w := e.only(t)
	snap := filepath.Join(e.dir, "cache", w.CacheKey())
	require.NoError(t, os.MkdirAll(filepath.Dir(snap), 0o750))
	require.NoError(t, os.WriteFile(snap, []byte("old"), 0o600))

	require.NoError(t, e.cmd.Remove(w.ID))
	assert.Equal(t, 0, e.load(t).Len())
	_, err := os.Stat(snap)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveKeepsCacheWhenSaveFails(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("needs a directory the current user cannot write")
	}
	e := newTestEnv(t)
	regDir := filepath.Join(e.dir, "locked")
	e.registry = filepath.Join(regDir, "config.json")
	e.cmd.globals.RegistryPath = e.registry
	require.NoError(t, e.cmd.Add(AddFlags{URL: "https://x.test"}))
	w := e.only(t)
	snap := filepath.Join(e.dir, "cache", w.CacheKey())
	require.NoError(t, os.MkdirAll(filepath.Dir(snap), 0o750))
	require.NoError(t, os.WriteFile(snap, []byte("old"), 0o600))

	require.NoError(t, os.Chmod(regDir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(regDir, 0o750) })

	require.Error(t, e.cmd.Remove(w.ID))
	assert.Equal(t, 1, e.load(t).Len())
	_, err := os.Stat(snap)
	assert.NoError(t, err, "the baseline stays with the watcher")
}

func TestAddRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)
	assert.Error(t, e.cmd.Add(AddFlags{URL: "https://x.test", Interval: "soon"}))
	assert.Error(t, e.cmd.Add(AddFlags{URL: "https://x.test", Interval: "0"}))
	assert.Error(t, e.cmd.Add(AddFlags{URL: "https://x.test", Interval: "500ms"}))
	assert.Error(t, e.cmd.Add(AddFlags{URL: "  "}))
	assert.Equal(t, 0, e.load(t).Len())
}

func TestEditRequiresAField(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.cmd.Add(AddFlags{URL: "https://x.test"}))
	assert.Error(t, e.cmd.Edit(e.only(t).ID, EditFlags{}))
	assert.Error(t, e.cmd.Edit(e.only(t).ID, EditFlags{SetURL: true}))
}

func TestToggleEnableDisable(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.cmd.Add(AddFlags{URL: "https://x.test"}))
	id := e.only(t).ID

	require.NoError(t, e.cmd.Toggle(id))
	assert.False(t, e.only(t).Enabled)
	require.NoError(t, e.cmd.SetEnabled(id, false))
	assert.False(t, e.only(t).Enabled)
	require.NoError(t, e.cmd.SetEnabled(id, true))
	assert.True(t, e.only(t).Enabled)
	assert.Contains(t, e.out.String(), "enabled")
}

func TestUnknownIDFails(t *testing.T) {
	e := newTestEnv(t)
	err := e.cmd.Remove("nope")
	assert.ErrorIs(t, err, webwatch.ErrNotFound)
}

func TestCheckSuccessTouchesRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Spring SALE starts today"))
	}))
	defer srv.Close()

	e := newTestEnv(t)
	require.NoError(t, e.cmd.Add(AddFlags{URL: srv.URL, Keywords: "sale"}))
	w := e.only(t)
	assert.Nil(t, w.LastChecked)

	e.out.Reset()
	require.NoError(t, e.cmd.Check(context.Background(), w.ID, CheckFlags{}))
	assert.Contains(t, e.out.String(), "matches=1")
	assert.Contains(t, e.out.String(), "notified=true")
	assert.NotNil(t, e.only(t).LastChecked)

	_, err := os.Stat(filepath.Join(e.dir, "cache", w.CacheKey()))
	assert.NoError(t, err)
}

func TestCheckFailureLeavesLastChecked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := newTestEnv(t)
	require.NoError(t, e.cmd.Add(AddFlags{URL: srv.URL, Keywords: "sale"}))
	w := e.only(t)

	err := e.cmd.Check(context.Background(), w.ID, CheckFlags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Nil(t, e.only(t).LastChecked)
}

func TestStartWithoutWatchers(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.cmd.Start(context.Background()))
	assert.Contains(t, e.out.String(), "no watchers configured")
}

func TestStartWithNoneEnabled(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.cmd.Add(AddFlags{URL: "https://x.test"}))
	require.NoError(t, e.cmd.SetEnabled(e.only(t).ID, false))
	e.out.Reset()
	require.NoError(t, e.cmd.Start(context.Background()))
	assert.Contains(t, e.out.String(), "no enabled watchers")
}

func TestStartReleasesMetricsListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	e := newTestEnv(t)
	cfg := writeTOML(t, e.dir, "metrics.toml", fmt.Sprintf(`
cache_dir = "%s/cache"

[log]
level = "error"

[notify]
desktop = false

[metrics]
enabled = true
listen = "%s"
`, filepath.ToSlash(e.dir), addr))
	e.cmd.globals.ConfigPath = cfg

	require.NoError(t, e.cmd.Start(context.Background()))
	assert.Contains(t, e.out.String(), "no watchers configured")

	again, err := net.Listen("tcp", addr)
	require.NoError(t, err, "metrics server must be shut down when the run ends")
	_ = again.Close()
}

func TestStatusAndStopWithoutDaemon(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.cmd.Status("", StatusFlags{}))
	assert.Contains(t, e.out.String(), "not running")

	err := e.cmd.Stop(StopFlags{})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestStatusFromAPI(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.cmd.Add(AddFlags{URL: "https://x.test"}))
	reg := e.load(t)

	srv := httptest.NewServer(webwatch.StatusHandler("/api", reg, nil))
	defer srv.Close()

	e.out.Reset()
	require.NoError(t, e.cmd.Status("", StatusFlags{APIUrl: srv.URL + "/api"}))
	assert.Contains(t, e.out.String(), `"watchers": 1`)
	assert.Contains(t, e.out.String(), "https://x.test")

	e.out.Reset()
	require.NoError(t, e.cmd.Status(e.only(t).ID[:8], StatusFlags{APIUrl: srv.URL + "/api"}))
	assert.Contains(t, e.out.String(), "https://x.test")
}

func TestMissingExplicitConfigFails(t *testing.T) {
	out := &bytes.Buffer{}
	c := command{globals: &GlobalFlags{ConfigPath: filepath.Join(t.TempDir(), "none.toml")}, out: out}
	assert.Error(t, c.List(ListFlags{}))
}

func TestRootCommandWiring(t *testing.T) {
	e := newTestEnv(t)
	cfg := e.cmd.globals.ConfigPath

	run := func(args ...string) (string, error) {
		var buf bytes.Buffer
		root := buildRoot(&buf)
		root.SetArgs(append([]string{"--config", cfg, "--registry", e.registry}, args...))
		err := root.Execute()
		return buf.String(), err
	}

	out, err := run("add", "--url", "https://cli.test", "--keywords", "a,b")
	require.NoError(t, err)
	assert.Contains(t, out, "Added watcher")

	id := e.only(t).ID
	_, err = run("disable", id[:8])
	require.NoError(t, err)
	assert.False(t, e.only(t).Enabled)

	_, err = run("edit", id, "--keywords", "")
	require.NoError(t, err)
	assert.Empty(t, e.only(t).Keywords)

	out, err = run("ls")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "https://cli.test"))

	_, err = run("add")
	assert.Error(t, err, "url is required")

	_, err = run("rm", id)
	require.NoError(t, err)
	assert.Equal(t, 0, e.load(t).Len())
}
