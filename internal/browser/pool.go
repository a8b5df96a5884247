// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
)

// Factory launches one browser client
type Factory func(config *BrowserConfig) (BrowserClient, error)

// ChromeFactory is the Factory used in production
func ChromeFactory(config *BrowserConfig) (BrowserClient, error) {
	return NewChromeClient(config)
}

// BrowserPool is a fixed-size pool of browsers launched up front.
//
// Available handles sit in a buffered channel; the set of checked-out
// handles is tracked under mu so a handle cannot be released twice or
// handed to two callers.
type BrowserPool struct {
	config         *BrowserConfig
	browsers       chan BrowserClient
	all            []BrowserClient
	checkedOut     map[BrowserClient]struct{}
	acquireTimeout time.Duration
	done           chan struct{}
	mu             sync.Mutex
	closed         bool

	acquired  atomic.Int64
	released  atomic.Int64
	exhausted atomic.Int64
}

// NewBrowserPool launches size Chrome browsers and returns a pool holding them
func NewBrowserPool(config *BrowserConfig, size int) (*BrowserPool, error) {
	return NewBrowserPoolWithFactory(config, size, ChromeFactory)
}

// NewBrowserPoolWithFactory launches size browsers through factory. If any
// launch fails, the browsers already started are closed.
func NewBrowserPoolWithFactory(config *BrowserConfig, size int, factory Factory) (*BrowserPool, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}
	if size <= 0 {
		return nil, apperrors.Newf(apperrors.KindConfig, "browser pool", "pool size must be positive, got %d", size)
	}
	if factory == nil {
		factory = ChromeFactory
	}

	clients := make([]BrowserClient, size)
	var g errgroup.Group
	for i := 0; i < size; i++ {
		i := i
		g.Go(func() error {
			client, err := factory(config)
			if err != nil {
				return fmt.Errorf("failed to launch browser %d: %w", i, err)
			}
			clients[i] = client
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, client := range clients {
			if client != nil {
				client.Close()
			}
		}
		return nil, apperrors.Wrap(apperrors.KindBrowser, "browser pool", err)
	}

	pool := &BrowserPool{
		config:         config,
		browsers:       make(chan BrowserClient, size),
		all:            clients,
		checkedOut:     make(map[BrowserClient]struct{}, size),
		acquireTimeout: config.AcquireTimeout,
		done:           make(chan struct{}),
	}
	for _, client := range clients {
		pool.browsers <- client
	}

	return pool, nil
}

// Acquire checks a browser out of the pool. It blocks until one is free,
// ctx is done, or the acquire timeout passes; the last two fail with
// POOL_EXHAUSTED.
//
// The caller must Release the browser; With does that automatically.
func (p *BrowserPool) Acquire(ctx context.Context) (BrowserClient, error) {
	if p.isClosed() {
		return nil, apperrors.New(apperrors.KindPoolClosed, "acquire browser", "pool is closed")
	}

	var timeout <-chan time.Time
	if p.acquireTimeout > 0 {
		timer := time.NewTimer(p.acquireTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case browser := <-p.browsers:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return nil, apperrors.New(apperrors.KindPoolClosed, "acquire browser", "pool is closed")
		}
		p.checkedOut[browser] = struct{}{}
		p.acquired.Add(1)
		return browser, nil

	case <-ctx.Done():
		p.exhausted.Add(1)
		return nil, &apperrors.Error{
			Kind:    apperrors.KindPoolExhausted,
			Op:      "acquire browser",
			Message: "no browser became available",
			Err:     ctx.Err(),
		}

	case <-timeout:
		p.exhausted.Add(1)
		return nil, apperrors.Newf(apperrors.KindPoolExhausted, "acquire browser",
			"no browser became available within %s", p.acquireTimeout)

	case <-p.done:
		return nil, apperrors.New(apperrors.KindPoolClosed, "acquire browser", "pool is closed")
	}
}

// Release returns a checked-out browser to the pool. Releasing a browser
// that is not checked out is an error and leaves the pool unchanged.
func (p *BrowserPool) Release(browser BrowserClient) error {
	if browser == nil {
		return fmt.Errorf("cannot release nil browser")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.checkedOut[browser]; !ok {
		return apperrors.New(apperrors.KindInternal, "release browser", "browser is not checked out from this pool")
	}
	delete(p.checkedOut, browser)
	p.released.Add(1)

	if p.closed {
		// Close already shut every browser down
		return nil
	}

	// Capacity equals pool size and this browser was out, so this never blocks
	p.browsers <- browser
	return nil
}

// With checks out a browser, runs fn and releases the browser on every
// exit path, including a panic in fn.
func (p *BrowserPool) With(ctx context.Context, fn func(BrowserClient) error) error {
	browser, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(browser)

	return fn(browser)
}

// Size returns the number of browsers owned by the pool
func (p *BrowserPool) Size() int {
	return len(p.all)
}

// Available returns the number of browsers ready to be acquired
func (p *BrowserPool) Available() int {
	return len(p.browsers)
}

// InUse returns the number of checked-out browsers
func (p *BrowserPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.checkedOut)
}

// Stats returns a snapshot of pool occupancy and counters
func (p *BrowserPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := PoolStats{
		Size:      len(p.all),
		Available: len(p.browsers),
		InUse:     len(p.checkedOut),
		Acquired:  p.acquired.Load(),
		Released:  p.released.Load(),
		Exhausted: p.exhausted.Load(),
		Closed:    p.closed,
	}

	for _, browser := range p.all {
		if reporter, ok := browser.(StatsReporter); ok {
			bs := reporter.GetStats()
			stats.PagesLoaded += bs.PagesLoaded
			stats.BrowserErrors += bs.Errors
			stats.WaitTimeouts += bs.TimeoutsOccurred
		}
	}
	return stats
}

// Close shuts down every browser, including checked-out ones, and wakes
// any caller blocked in Acquire.
func (p *BrowserPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)

	// Drain without closing the channel; Release may still run
drain:
	for {
		select {
		case <-p.browsers:
		default:
			break drain
		}
	}

	var firstErr error
	for _, browser := range p.all {
		if err := browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *BrowserPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
