package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/webwatch/internal/fetcher"
	"github.com/loykin/webwatch/internal/logger"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Log.Level != "info" || !s.Log.Color || s.Log.MaxSizeMB != logger.DefaultMaxSizeMB {
		t.Fatalf("unexpected log defaults: %+v", s.Log)
	}
	if s.Fetch.Timeout != fetcher.DefaultTimeout || s.Fetch.UserAgent != fetcher.DefaultUserAgent {
		t.Fatalf("unexpected fetch defaults: %+v", s.Fetch)
	}
	if !s.Notify.Desktop || s.Notify.WebhookRetries != 3 {
		t.Fatalf("unexpected notify defaults: %+v", s.Notify)
	}
	if s.Server.Listen != "127.0.0.1:8787" || s.Server.BasePath != "/api" {
		t.Fatalf("unexpected server defaults: %+v", s.Server)
	}
	if s.File != "" {
		t.Fatalf("File should be empty for defaults")
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "webwatch.toml", `
registry = "/tmp/w.json"

[log]
level = "debug"
format = "json"
file = "/tmp/ww.log"

[fetch]
timeout = "5s"
mode = "text"
max_bytes = 2048

[notify]
desktop = false
webhook_url = "http://hook.test/x"

[history]
dsns = ["sqlite:///tmp/h.db", "opensearch://localhost:9200/webwatch"]

[server]
enabled = true
base_path = "/v1"
`)
	s, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Registry != "/tmp/w.json" || s.File != file {
		t.Fatalf("unexpected top-level: %+v", s)
	}
	if s.Fetch.Timeout != 5*time.Second || s.Fetch.Mode != "text" || s.Fetch.MaxBytes != 2048 {
		t.Fatalf("unexpected fetch: %+v", s.Fetch)
	}
	if s.Notify.Desktop || !s.Notify.Log || s.Notify.WebhookURL != "http://hook.test/x" {
		t.Fatalf("unexpected notify: %+v", s.Notify)
	}
	if len(s.History.DSNs) != 2 {
		t.Fatalf("unexpected history: %+v", s.History)
	}
	if !s.Server.Enabled || s.Server.BasePath != "/v1" || s.Server.Listen != "127.0.0.1:8787" {
		t.Fatalf("unexpected server: %+v", s.Server)
	}

	lc := s.LoggerConfig()
	if lc.Slog.Level != logger.LevelDebug || lc.Slog.Format != logger.FormatJSON || lc.File.Path != "/tmp/ww.log" {
		t.Fatalf("unexpected logger config: %+v", lc)
	}
	if fc := s.FetcherConfig(); fc.Timeout != 5*time.Second || fc.MaxBytes != 2048 {
		t.Fatalf("unexpected fetcher config: %+v", fc)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WEBWATCH_LOG_LEVEL", "error")
	t.Setenv("WEBWATCH_SERVER_LISTEN", "0.0.0.0:1")
	s, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Log.Level != "error" || s.Server.Listen != "0.0.0.0:1" {
		t.Fatalf("env overrides ignored: %+v %+v", s.Log, s.Server)
	}
}

func TestEnvFilesRelativeToSettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "local.env", "WEBWATCH_NOTIFY_WEBHOOK_URL=http://from-env-file\n")
	file := writeFile(t, dir, "webwatch.toml", `env_files = ["local.env", "missing.env"]`)
	t.Setenv("WEBWATCH_NOTIFY_WEBHOOK_URL", "")
	_ = os.Unsetenv("WEBWATCH_NOTIFY_WEBHOOK_URL")

	s, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Notify.WebhookURL != "http://from-env-file" {
		t.Fatalf("env file not applied: %q", s.Notify.WebhookURL)
	}
}

func TestValidation(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"level": "[log]\nlevel = \"loud\"\n",
		"mode":  "[fetch]\nmode = \"pdf\"\n",
		"base":  "[server]\nbase_path = \"api\"\n",
		"fmt":   "[log]\nformat = \"xml\"\n",
	}
	for name, data := range cases {
		file := writeFile(t, dir, name+".toml", data)
		if _, err := Load(file); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "absent.toml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
	bad := writeFile(t, dir, "bad.toml", "[log\nlevel=")
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}
	s, err := LoadIfExists(filepath.Join(dir, "absent.toml"))
	if err != nil || s.File != "" {
		t.Fatalf("LoadIfExists should fall back to defaults: %v", err)
	}
}
