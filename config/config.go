package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration derived from the config file and
// environment variables.
type Config struct {
	HTTPPort        string
	DatasetPath     string
	DBPath          string
	Timezone        string
	TimestampLayout string
	WatchDataset    bool
	ConfigPath      string
	StrictConfig    bool
	Dashboard       DashboardConfig
	Session         SessionConfig
	Render          RenderConfig
}

// DashboardConfig bounds what one recompute produces.
type DashboardConfig struct {
	TopCities     int
	SampleSize    int
	PreviewRows   int
	ChartWidthIn  float64
	ChartHeightIn float64
}

// SessionConfig controls per-client filter sessions.
type SessionConfig struct {
	TTLMinutes  int
	MaxSessions int
}

// TTL returns the idle lifetime of a session.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// RenderConfig bounds concurrent chart rendering in the server.
type RenderConfig struct {
	Workers    int
	QueueSize  int
	TimeoutSec int
}

// Timeout returns the per-chart render deadline.
func (r RenderConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSec) * time.Second
}

type fileConfig struct {
	HTTPPort        string              `json:"http_port" yaml:"http_port"`
	DatasetPath     string              `json:"dataset_path" yaml:"dataset_path"`
	DBPath          string              `json:"db_path" yaml:"db_path"`
	Timezone        string              `json:"timezone" yaml:"timezone"`
	TimestampLayout string              `json:"timestamp_layout" yaml:"timestamp_layout"`
	WatchDataset    *bool               `json:"watch_dataset" yaml:"watch_dataset"`
	Dashboard       dashboardFileConfig `json:"dashboard" yaml:"dashboard"`
	Session         sessionFileConfig   `json:"session" yaml:"session"`
	Render          renderFileConfig    `json:"render" yaml:"render"`
}

type dashboardFileConfig struct {
	TopCities     *int     `json:"top_cities" yaml:"top_cities"`
	SampleSize    *int     `json:"sample_size" yaml:"sample_size"`
	PreviewRows   *int     `json:"preview_rows" yaml:"preview_rows"`
	ChartWidthIn  *float64 `json:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn *float64 `json:"chart_height_in" yaml:"chart_height_in"`
}

type sessionFileConfig struct {
	TTLMinutes  *int `json:"ttl_minutes" yaml:"ttl_minutes"`
	MaxSessions *int `json:"max_sessions" yaml:"max_sessions"`
}

type renderFileConfig struct {
	Workers    *int `json:"workers" yaml:"workers"`
	QueueSize  *int `json:"queue_size" yaml:"queue_size"`
	TimeoutSec *int `json:"timeout_sec" yaml:"timeout_sec"`
}

const (
	defaultPort        = ":8000"
	defaultDatasetPath = "cleaned_dataset_911.csv"
	defaultDBPath      = "runtime/calls.db"
	defaultTimezone    = "UTC"
	// MaxPreviewRows caps the preview table regardless of configuration.
	MaxPreviewRows = 1000
)

func defaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		TopCities:     10,
		SampleSize:    1000,
		PreviewRows:   100,
		ChartWidthIn:  8,
		ChartHeightIn: 4,
	}
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{TTLMinutes: 30, MaxSessions: 1000}
}

func defaultRenderConfig() RenderConfig {
	return RenderConfig{Workers: runtime.NumCPU(), QueueSize: 64, TimeoutSec: 30}
}

// Load reads configuration from the config file and environment variables and
// applies sane defaults.
func Load() (Config, error) {
	cfg := Config{
		StrictConfig: parseBoolEnv("STRICT_CONFIG"),
		ConfigPath:   getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml")),
	}

	fileCfg, fileErr := loadFileConfig(cfg.ConfigPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", cfg.ConfigPath, fileErr)
		}
		if !errors.Is(fileErr, os.ErrNotExist) {
			log.Printf("config load failed (%s): %v (using defaults)", cfg.ConfigPath, fileErr)
		}
	}

	cfg.DatasetPath = firstNonEmpty(os.Getenv("DATASET_PATH"), fileCfg.DatasetPath, defaultDatasetPath)
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath, defaultDBPath)
	cfg.Timezone = firstNonEmpty(os.Getenv("DATASET_TZ"), fileCfg.Timezone, defaultTimezone)
	cfg.TimestampLayout = firstNonEmpty(os.Getenv("TIMESTAMP_LAYOUT"), fileCfg.TimestampLayout)

	cfg.WatchDataset = true
	if fileCfg.WatchDataset != nil {
		cfg.WatchDataset = *fileCfg.WatchDataset
	}
	cfg.WatchDataset = parseBoolEnvDefault("WATCH_DATASET", cfg.WatchDataset)

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && cfg.HTTPPort == defaultPort {
		cfg.HTTPPort = legacyPort
	}
	if !strings.HasPrefix(cfg.HTTPPort, ":") && !strings.Contains(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	cfg.Dashboard = applyDashboardOverrides(defaultDashboardConfig(), fileCfg.Dashboard)
	cfg.Session = applySessionOverrides(defaultSessionConfig(), fileCfg.Session)
	cfg.Render = applyRenderOverrides(defaultRenderConfig(), fileCfg.Render)

	envInts := []struct {
		key    string
		target *int
	}{
		{"DASHBOARD_TOP_CITIES", &cfg.Dashboard.TopCities},
		{"DASHBOARD_SAMPLE_SIZE", &cfg.Dashboard.SampleSize},
		{"DASHBOARD_PREVIEW_ROWS", &cfg.Dashboard.PreviewRows},
		{"SESSION_TTL_MIN", &cfg.Session.TTLMinutes},
		{"SESSION_MAX", &cfg.Session.MaxSessions},
		{"RENDER_WORKERS", &cfg.Render.Workers},
		{"RENDER_QUEUE_SIZE", &cfg.Render.QueueSize},
		{"RENDER_TIMEOUT_SEC", &cfg.Render.TimeoutSec},
	}
	for _, e := range envInts {
		v, ok, err := parseIntEnv(e.key)
		if err != nil {
			if cfg.StrictConfig {
				return cfg, fmt.Errorf("invalid %s: %w", e.key, err)
			}
			log.Printf("invalid %s: %v (using default)", e.key, err)
			continue
		}
		if ok && v > 0 {
			*e.target = v
		}
	}

	if cfg.Dashboard.PreviewRows > MaxPreviewRows {
		log.Printf("preview_rows capped at %d (was %d)", MaxPreviewRows, cfg.Dashboard.PreviewRows)
		cfg.Dashboard.PreviewRows = MaxPreviewRows
	}

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config validation failed: %v (continuing)", err)
	}

	return cfg, nil
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DatasetPath) == "" {
		return errors.New("DATASET_PATH is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == "" {
		return errors.New("HTTP_PORT is required")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if cfg.Dashboard.TopCities <= 0 {
		return errors.New("dashboard top cities must be positive")
	}
	if cfg.Dashboard.SampleSize <= 0 {
		return errors.New("dashboard sample size must be positive")
	}
	if cfg.Dashboard.PreviewRows <= 0 {
		return errors.New("dashboard preview rows must be positive")
	}
	if cfg.Dashboard.ChartWidthIn <= 0 || cfg.Dashboard.ChartHeightIn <= 0 {
		return errors.New("dashboard chart size must be positive")
	}
	if cfg.Session.TTLMinutes <= 0 {
		return errors.New("session ttl must be positive")
	}
	if cfg.Session.MaxSessions <= 0 {
		return errors.New("session max must be positive")
	}
	if cfg.Render.Workers <= 0 || cfg.Render.QueueSize <= 0 || cfg.Render.TimeoutSec <= 0 {
		return errors.New("render workers, queue size and timeout must be positive")
	}
	return nil
}

func applyDashboardOverrides(base DashboardConfig, override dashboardFileConfig) DashboardConfig {
	if override.TopCities != nil && *override.TopCities > 0 {
		base.TopCities = *override.TopCities
	}
	if override.SampleSize != nil && *override.SampleSize > 0 {
		base.SampleSize = *override.SampleSize
	}
	if override.PreviewRows != nil && *override.PreviewRows > 0 {
		base.PreviewRows = *override.PreviewRows
	}
	if override.ChartWidthIn != nil && *override.ChartWidthIn > 0 {
		base.ChartWidthIn = *override.ChartWidthIn
	}
	if override.ChartHeightIn != nil && *override.ChartHeightIn > 0 {
		base.ChartHeightIn = *override.ChartHeightIn
	}
	return base
}

func applySessionOverrides(base SessionConfig, override sessionFileConfig) SessionConfig {
	if override.TTLMinutes != nil && *override.TTLMinutes > 0 {
		base.TTLMinutes = *override.TTLMinutes
	}
	if override.MaxSessions != nil && *override.MaxSessions > 0 {
		base.MaxSessions = *override.MaxSessions
	}
	return base
}

func applyRenderOverrides(base RenderConfig, override renderFileConfig) RenderConfig {
	if override.Workers != nil && *override.Workers > 0 {
		base.Workers = *override.Workers
	}
	if override.QueueSize != nil && *override.QueueSize > 0 {
		base.QueueSize = *override.QueueSize
	}
	if override.TimeoutSec != nil && *override.TimeoutSec > 0 {
		base.TimeoutSec = *override.TimeoutSec
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}
