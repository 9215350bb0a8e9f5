// Package config loads the signup client configuration.
//
// Configuration comes from three layers, later layers winning:
//  1. built-in defaults (SetDefaults)
//  2. an optional YAML file (LoadConfig)
//  3. SIGNUP_* environment variables, which may themselves come from a .env file (LoadDotEnv)
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/nomis52/signup/refresh"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL   = "http://localhost:8000"
	defaultHideAfter = 5 * time.Second

	// Default monitoring settings
	defaultMetricsPrefix = "signup"
	defaultJobName       = "signup"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultLogOutput = "stderr"
)

// Config represents the complete client configuration
type Config struct {
	API        APIConfig        `yaml:"api"`
	Banner     BannerConfig     `yaml:"banner"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// APIConfig holds the activities API connection settings
type APIConfig struct {
	// BaseURL is the scheme and host serving /activities, e.g. http://localhost:8000
	BaseURL string `yaml:"base_url" env:"SIGNUP_API_URL"`

	// Timeout bounds each request. Zero leaves the transport default in place.
	Timeout time.Duration `yaml:"timeout" env:"SIGNUP_API_TIMEOUT"`
}

// BannerConfig controls the status banner
type BannerConfig struct {
	// HideAfter is how long a status message stays visible
	HideAfter time.Duration `yaml:"hide_after" env:"SIGNUP_BANNER_HIDE_AFTER"`
}

// RefreshConfig controls scheduled catalog refreshes
type RefreshConfig struct {
	// Schedule is one or more cron specs separated by ";". Empty disables scheduled refreshes.
	Schedule string `yaml:"schedule" env:"SIGNUP_REFRESH_SCHEDULE"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level" env:"SIGNUP_LOG_LEVEL"`
	Format    string `yaml:"format" env:"SIGNUP_LOG_FORMAT"`
	Output    string `yaml:"output" env:"SIGNUP_LOG_OUTPUT"`
	AddSource bool   `yaml:"add_source" env:"SIGNUP_LOG_ADD_SOURCE"`
}

// MonitoringConfig holds metrics settings
type MonitoringConfig struct {
	// VictoriaMetricsURL enables push mode when set
	VictoriaMetricsURL string `yaml:"victoriametrics_url" env:"SIGNUP_VICTORIAMETRICS_URL"`
	MetricsPrefix      string `yaml:"metrics_prefix" env:"SIGNUP_METRICS_PREFIX"`
	JobName            string `yaml:"jobname" env:"SIGNUP_METRICS_JOB"`
	// ListenAddr serves /metrics in scrape mode when set, e.g. :9100
	ListenAddr string `yaml:"listen_addr" env:"SIGNUP_METRICS_LISTEN_ADDR"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API base URL must use http or https, got %q", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("API base URL must include a host, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("API timeout must not be negative")
	}
	if c.Banner.HideAfter <= 0 {
		return fmt.Errorf("banner hide_after must be positive")
	}
	if c.Refresh.Schedule != "" {
		if _, err := refresh.ParseSchedules(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("refresh schedule: %w", err)
		}
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	if c.Banner.HideAfter == 0 {
		c.Banner.HideAfter = defaultHideAfter
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// LoadConfig reads the YAML config file at path, applies SIGNUP_* environment
// overrides and defaults, and validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config file %s: %w", path, err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to decode YAML config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from the given .env files (default ".env")
// without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}
