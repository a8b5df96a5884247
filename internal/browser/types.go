// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// BrowserConfig defines browser automation configuration
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	ExecPath       string        `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	LaunchTimeout  time.Duration `yaml:"launch_timeout" json:"launch_timeout"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultBrowserConfig returns default browser configuration
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:       true,
		LaunchTimeout:  30 * time.Second,
		AcquireTimeout: 30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		DisableImages:  true, // Faster loading
	}
}

// BrowserClient is one live automated-browser session. A client is used by
// a single caller at a time; the pool enforces that.
type BrowserClient interface {
	// Navigate to a URL and wait for the document body
	Navigate(ctx context.Context, url string) error

	// WaitForElement waits until an element matching selector is present in the DOM
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error

	// SendKeys types text into the element matching selector
	SendKeys(ctx context.Context, selector, text string) error

	// Click clicks the element matching selector
	Click(ctx context.Context, selector string) error

	// GetHTML returns the current rendered page HTML
	GetHTML(ctx context.Context) (string, error)

	// Close shuts the browser down
	Close() error
}

// Pool manages a pool of browser instances
type Pool interface {
	// Acquire checks a browser out of the pool
	Acquire(ctx context.Context) (BrowserClient, error)

	// Release returns a checked-out browser to the pool
	Release(browser BrowserClient) error

	// With runs fn with a checked-out browser and always releases it
	With(ctx context.Context, fn func(BrowserClient) error) error

	// Close closes all browsers in the pool
	Close() error
}

// StatsReporter is implemented by clients that track BrowserStats
type StatsReporter interface {
	GetStats() BrowserStats
}

// BrowserStats contains per-client automation statistics
type BrowserStats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	Errors           int           `json:"errors"`
	TimeoutsOccurred int           `json:"timeouts_occurred"`
}

// PoolStats is a snapshot of pool occupancy and counters
type PoolStats struct {
	Size      int   `json:"size"`
	Available int   `json:"available"`
	InUse     int   `json:"in_use"`
	Acquired  int64 `json:"acquired"`
	Released  int64 `json:"released"`
	Exhausted int64 `json:"exhausted"`
	Closed    bool  `json:"closed"`

	// Summed over every client that reports BrowserStats
	PagesLoaded   int `json:"pages_loaded"`
	BrowserErrors int `json:"browser_errors"`
	WaitTimeouts  int `json:"wait_timeouts"`
}
