package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/loykin/webwatch/internal/fetcher"
	"github.com/loykin/webwatch/internal/logger"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every settings key read from the environment,
// e.g. WEBWATCH_LOG_LEVEL for log.level.
const EnvPrefix = "WEBWATCH"

// Settings represents the top-level TOML structure. Every section is optional.
type Settings struct {
	Registry string   `toml:"registry" mapstructure:"registry"`
	CacheDir string   `toml:"cache_dir" mapstructure:"cache_dir"`
	EnvFiles []string `toml:"env_files" mapstructure:"env_files"`

	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Fetch   FetchConfig   `toml:"fetch" mapstructure:"fetch"`
	Notify  NotifyConfig  `toml:"notify" mapstructure:"notify"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`

	// File is the settings file that was read, empty when running on defaults.
	File string `toml:"-" mapstructure:"-"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	Color      bool   `toml:"color" mapstructure:"color"`
	File       string `toml:"file" mapstructure:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type FetchConfig struct {
	Timeout   time.Duration `toml:"timeout" mapstructure:"timeout"`
	UserAgent string        `toml:"user_agent" mapstructure:"user_agent"`
	MaxBytes  int64         `toml:"max_bytes" mapstructure:"max_bytes"`
	Mode      string        `toml:"mode" mapstructure:"mode"`
}

type NotifyConfig struct {
	Desktop        bool   `toml:"desktop" mapstructure:"desktop"`
	Log            bool   `toml:"log" mapstructure:"log"`
	WebhookURL     string `toml:"webhook_url" mapstructure:"webhook_url"`
	WebhookRetries int    `toml:"webhook_retries" mapstructure:"webhook_retries"`
}

// HistoryConfig lists history sink DSNs (sqlite://, postgres://, clickhouse://, opensearch://).
type HistoryConfig struct {
	DSNs []string `toml:"dsns" mapstructure:"dsns"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type ServerConfig struct {
	Enabled  bool   `toml:"enabled" mapstructure:"enabled"`
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
	PIDFile  string `toml:"pidfile" mapstructure:"pidfile"`
	LogFile  string `toml:"logfile" mapstructure:"logfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry", "")
	v.SetDefault("cache_dir", "")
	v.SetDefault("env_files", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)

	v.SetDefault("fetch.timeout", fetcher.DefaultTimeout)
	v.SetDefault("fetch.user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("fetch.max_bytes", fetcher.DefaultMaxBytes)
	v.SetDefault("fetch.mode", string(fetcher.ModeRaw))

	v.SetDefault("notify.desktop", true)
	v.SetDefault("notify.log", true)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.webhook_retries", 3)

	v.SetDefault("history.dsns", []string{})

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9090")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.pidfile", "")
	v.SetDefault("server.logfile", "")
}

// Default returns the settings used when no file is present.
func Default() *Settings {
	s, err := Load("")
	if err != nil {
		// defaults are static; only a broken environment override can fail here
		panic(err)
	}
	return s
}

// Load reads settings from path (TOML). An empty path means defaults plus
// environment overrides. Files listed in env_files are loaded into the process
// environment with godotenv before overrides are resolved; relative entries
// are taken relative to the settings file.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(path, v.GetStringSlice("env_files")); err != nil {
		return nil, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	s.File = path
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadIfExists loads path when the file exists and falls back to defaults otherwise.
func LoadIfExists(path string) (*Settings, error) {
	if path == "" {
		return Load("")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Load("")
	}
	return Load(path)
}

func loadEnvFiles(settingsPath string, files []string) error {
	base := ""
	if settingsPath != "" {
		base = filepath.Dir(settingsPath)
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		p := f
		if !filepath.IsAbs(p) && base != "" {
			p = filepath.Join(base, p)
		}
		if err := godotenv.Load(filepath.Clean(p)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks enumerated values.
func (s *Settings) Validate() error {
	if _, err := logger.ParseLevel(s.Log.Level); err != nil {
		return err
	}
	switch logger.Format(strings.ToLower(s.Log.Format)) {
	case "", logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", s.Log.Format)
	}
	if _, err := fetcher.ParseMode(s.Fetch.Mode); err != nil {
		return err
	}
	if s.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must not be negative")
	}
	if s.Server.BasePath != "" && !strings.HasPrefix(s.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with '/': %q", s.Server.BasePath)
	}
	return nil
}

// LoggerConfig maps the [log] section onto the logger package.
func (s *Settings) LoggerConfig() logger.Config {
	lvl, _ := logger.ParseLevel(s.Log.Level)
	return logger.Config{
		Slog: logger.SlogConfig{
			Level:      lvl,
			Format:     logger.Format(strings.ToLower(s.Log.Format)),
			Color:      s.Log.Color,
			TimeStamps: true,
		},
		File: logger.FileConfig{
			Path:       s.Log.File,
			MaxSizeMB:  s.Log.MaxSizeMB,
			MaxBackups: s.Log.MaxBackups,
			MaxAgeDays: s.Log.MaxAgeDays,
			Compress:   s.Log.Compress,
		},
	}
}

// FetcherConfig maps the [fetch] section onto the HTTP fetcher.
func (s *Settings) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		Timeout:   s.Fetch.Timeout,
		MaxBytes:  s.Fetch.MaxBytes,
		UserAgent: s.Fetch.UserAgent,
	}
}
