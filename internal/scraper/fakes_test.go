// internal/scraper/fakes_test.go
package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/TourScrapexter/internal/browser"
)

// fakeBrowser plays back the site's search form without a real Chrome
type fakeBrowser struct {
	mu       sync.Mutex
	calls    []string
	page     string
	typed    string
	navErr   error
	clickErr error
	waitErr  map[string]error
	block    bool

	inFlight    *atomic.Int32
	maxInFlight *atomic.Int32
}

func (f *fakeBrowser) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBrowser) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	f.record("navigate " + url)
	if f.inFlight != nil {
		n := f.inFlight.Add(1)
		for {
			max := f.maxInFlight.Load()
			if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
				break
			}
		}
	}
	if f.navErr != nil {
		f.done()
	}
	return f.navErr
}

func (f *fakeBrowser) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	f.record("wait " + selector)
	if f.block {
		<-ctx.Done()
		f.done()
		return ctx.Err()
	}
	if err := f.waitErr[selector]; err != nil {
		f.done()
		return err
	}
	return nil
}

func (f *fakeBrowser) SendKeys(ctx context.Context, selector, text string) error {
	f.record("keys " + selector)
	f.mu.Lock()
	f.typed = text
	f.mu.Unlock()
	return nil
}

func (f *fakeBrowser) Click(ctx context.Context, selector string) error {
	f.record("click " + selector)
	if f.clickErr != nil {
		f.done()
	}
	return f.clickErr
}

func (f *fakeBrowser) GetHTML(ctx context.Context) (string, error) {
	f.record("html")
	// Simulate the work a real page takes so concurrent callers overlap
	time.Sleep(5 * time.Millisecond)
	f.done()
	return f.page, nil
}

func (f *fakeBrowser) Close() error { return nil }

func (f *fakeBrowser) done() {
	if f.inFlight != nil {
		f.inFlight.Add(-1)
	}
}

// newFakePool builds a browser pool of size fake browsers, each configured by setup
func newFakePool(t *testing.T, size int, setup func(*fakeBrowser)) (*browser.BrowserPool, []*fakeBrowser) {
	t.Helper()

	var mu sync.Mutex
	var fakes []*fakeBrowser
	factory := func(*browser.BrowserConfig) (browser.BrowserClient, error) {
		fb := &fakeBrowser{}
		if setup != nil {
			setup(fb)
		}
		mu.Lock()
		fakes = append(fakes, fb)
		mu.Unlock()
		return fb, nil
	}

	config := browser.DefaultBrowserConfig()
	config.AcquireTimeout = 2 * time.Second

	pool, err := browser.NewBrowserPoolWithFactory(config, size, factory)
	if err != nil {
		t.Fatalf("Failed to create fake browser pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool, fakes
}

func searchResultsPage(href string) string {
	return fmt.Sprintf(`<html><body>
<div class="tour-box-main"><div class="img"><a href="%s"><img src="x.jpg"></a></div></div>
<div class="tour-box-main"><a href="/tour/second">second</a></div>
</body></html>`, href)
}
