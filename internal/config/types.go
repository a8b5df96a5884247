// internal/config/types.go

// Package config loads the service configuration for TourScrapexter.
// Runtime settings come from the environment (optionally seeded from a
// .env file); the target site's URL and markup constants come from
// built-in defaults that a YAML file may override.
package config

import (
	"time"

	"github.com/valpere/TourScrapexter/internal/scraper"
)

// Config is the complete service configuration, read once at startup.
type Config struct {
	// APIKey is the shared secret every /tour_data request must present
	APIKey string `yaml:"-" json:"-"`

	// Workers sizes both the worker pool and the browser pool
	Workers int `yaml:"workers" json:"workers"`

	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Timeouts
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`
	WaitTimeout    time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`

	// FetchRateLimit bounds outbound page fetches per second
	FetchRateLimit float64 `yaml:"fetch_rate_limit" json:"fetch_rate_limit"`

	// RateLimit bounds inbound /tour_data requests per second; 0 disables it
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`

	// Browser
	Headless   bool   `yaml:"headless" json:"headless"`
	ChromePath string `yaml:"chrome_path,omitempty" json:"chrome_path,omitempty"`
	UserAgent  string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// SiteConfigPath is the optional YAML file the Site was loaded from
	SiteConfigPath string `yaml:"site_config,omitempty" json:"site_config,omitempty"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// ErrorCodes adds the error kind to 500 response bodies
	ErrorCodes bool `yaml:"error_codes" json:"error_codes"`

	Site scraper.Markup `yaml:"site" json:"site"`
}

// Environment variable names
const (
	EnvAPIKey         = "API_KEY"
	EnvWorkers        = "WORKERS"
	EnvListenAddr     = "LISTEN_ADDR"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvAcquireTimeout = "ACQUIRE_TIMEOUT"
	EnvWaitTimeout    = "WAIT_TIMEOUT"
	EnvFetchTimeout   = "FETCH_TIMEOUT"
	EnvFetchRateLimit = "FETCH_RATE_LIMIT"
	EnvRateLimit      = "RATE_LIMIT"
	EnvHeadless       = "HEADLESS"
	EnvChromePath     = "CHROME_PATH"
	EnvUserAgent      = "USER_AGENT"
	EnvSiteConfig     = "SITE_CONFIG"
	EnvLogLevel       = "LOG_LEVEL"
	EnvErrorCodes     = "ERROR_CODES"
)

// Defaults for optional settings
const (
	DefaultListenAddr     = ":5000"
	DefaultRequestTimeout = 60 * time.Second
	DefaultAcquireTimeout = 30 * time.Second
	DefaultWaitTimeout    = 10 * time.Second
	DefaultFetchTimeout   = 30 * time.Second
	DefaultFetchRateLimit = 5.0
	DefaultLogLevel       = "info"
)

// LookupFunc reads one environment variable; os.LookupEnv in production
type LookupFunc func(key string) (string, bool)
