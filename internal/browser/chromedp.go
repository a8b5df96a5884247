// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeClient implements BrowserClient using chromedp. Each client owns its
// own Chrome process and a single tab.
type ChromeClient struct {
	ctx               context.Context
	cancel            context.CancelFunc
	allocCancel       context.CancelFunc
	config            *BrowserConfig
	stats             BrowserStats
	navigationSuccess bool
	mu                sync.RWMutex
	closeOnce         sync.Once
}

var (
	_ BrowserClient = (*ChromeClient)(nil)
	_ StatsReporter = (*ChromeClient)(nil)
)

// NewChromeClient launches a new Chrome process and opens a tab
func NewChromeClient(config *BrowserConfig) (*ChromeClient, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}

	// Set up Chrome options
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("mute-audio", true),
	}

	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}

	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}

	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}

	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	// Disable images for faster loading
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	// The allocator and tab contexts live as long as the client
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	client := &ChromeClient{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
	}

	if err := client.initialize(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	return client, nil
}

// initialize starts the browser process and sets the viewport. The first
// chromedp.Run must use the tab context itself, otherwise the process is
// bound to a shorter-lived context.
func (c *ChromeClient) initialize() error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(c.ctx,
			chromedp.EmulateViewport(int64(c.config.ViewportWidth), int64(c.config.ViewportHeight)),
		)
	}()

	timeout := c.config.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		c.cancel()
		return fmt.Errorf("browser did not start within %s", timeout)
	}
}

// run executes actions on the tab, bounded by the caller's context. Cancelling
// ctx aborts the actions without closing the tab.
func (c *ChromeClient) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		// Report the caller's reason rather than the derived context's
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

// Navigate navigates to a URL and waits for the document body
func (c *ChromeClient) Navigate(ctx context.Context, url string) error {
	start := time.Now()

	err := c.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	loadTime := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.stats.Errors++
		c.navigationSuccess = false
		return fmt.Errorf("navigation failed: %w", err)
	}

	c.navigationSuccess = true
	c.stats.PagesLoaded++
	if c.stats.PagesLoaded == 1 {
		c.stats.AverageLoadTime = loadTime
	} else {
		c.stats.AverageLoadTime = (c.stats.AverageLoadTime + loadTime) / 2
	}

	return nil
}

// WaitForElement waits until an element matching selector (CSS or XPath) is present
func (c *ChromeClient) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.run(timeoutCtx, chromedp.WaitReady(selector, chromedp.BySearch)); err != nil {
		c.mu.Lock()
		c.stats.TimeoutsOccurred++
		c.mu.Unlock()
		return fmt.Errorf("element wait for %q failed: %w", selector, err)
	}
	return nil
}

// SendKeys types text into the element matching selector
func (c *ChromeClient) SendKeys(ctx context.Context, selector, text string) error {
	if err := c.run(ctx, chromedp.SendKeys(selector, text, chromedp.BySearch)); err != nil {
		return fmt.Errorf("send keys to %q failed: %w", selector, err)
	}
	return nil
}

// Click clicks the element matching selector
func (c *ChromeClient) Click(ctx context.Context, selector string) error {
	if err := c.run(ctx, chromedp.Click(selector, chromedp.BySearch)); err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

// GetHTML returns the current page HTML
func (c *ChromeClient) GetHTML(ctx context.Context) (string, error) {
	c.mu.RLock()
	navSuccess := c.navigationSuccess
	c.mu.RUnlock()

	if !navSuccess {
		return "", fmt.Errorf("cannot extract HTML: navigation has not completed successfully")
	}

	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		c.mu.Lock()
		c.stats.Errors++
		c.mu.Unlock()
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// GetStats returns browser statistics
func (c *ChromeClient) GetStats() BrowserStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Close closes the tab and kills the Chrome process
func (c *ChromeClient) Close() error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.allocCancel != nil {
			c.allocCancel()
		}
	})
	return nil
}
