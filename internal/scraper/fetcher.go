// internal/scraper/fetcher.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/utils"
)

// MaxPageSize is the largest page body accepted
const MaxPageSize = 10 << 20

// Fetcher downloads tour pages with a plain HTTP GET. Requests look like
// they come from a browser, rotate through a set of user agents and share
// one outbound rate limiter. Failed requests are not retried.
type Fetcher struct {
	httpClient  *http.Client
	rateLimiter *utils.RateLimiter
	userAgents  []string
	currentUA   int
	uaMutex     sync.Mutex
	headers     map[string]string
}

// FetcherConfig defines configuration options for the Fetcher
type FetcherConfig struct {
	Timeout    time.Duration
	UserAgents []string
	Headers    map[string]string
	RateLimit  float64 // requests per second, 0 = unlimited
	RateBurst  int

	// Transport overrides the default transport; used by tests
	Transport http.RoundTripper
}

// NewFetcher creates a Fetcher with the specified configuration
func NewFetcher(config FetcherConfig) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = defaultUserAgents()
	}

	transport := config.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		rateLimiter: utils.NewRateLimiter(config.RateLimit, config.RateBurst),
		userAgents:  config.UserAgents,
		headers:     config.Headers,
	}
}

// Fetch performs one GET of pageURL and returns the body. A network
// failure or a non-2xx status is a FETCH_FAILED error.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	const op = "fetch tour page"

	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperrors.Newf(apperrors.KindFetch, op, "invalid URL %q", pageURL)
	}

	if err := f.rateLimiter.Wait(ctx); err != nil {
		return "", apperrors.Wrap(apperrors.KindFetch, op, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindFetch, op, err)
	}
	f.setRequestHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindFetch, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &apperrors.Error{
			Kind:    apperrors.KindFetch,
			Op:      op,
			Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, pageURL),
			Err:     &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: pageURL},
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageSize+1))
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindFetch, op, fmt.Errorf("read body: %w", err))
	}
	if len(body) > MaxPageSize {
		return "", apperrors.Newf(apperrors.KindFetch, op, "page %s exceeds %d bytes", pageURL, MaxPageSize)
	}

	return string(body), nil
}

// setRequestHeaders configures request headers including user agent rotation
func (f *Fetcher) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.nextUserAgent())

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "th-TH,th;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
}

// nextUserAgent returns the next user agent in rotation
func (f *Fetcher) nextUserAgent() string {
	f.uaMutex.Lock()
	defer f.uaMutex.Unlock()

	userAgent := f.userAgents[f.currentUA]
	f.currentUA = (f.currentUA + 1) % len(f.userAgents)
	return userAgent
}

// defaultUserAgents returns a set of realistic user agent strings
func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	}
}

// HTTPError carries the status of a non-2xx response
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
}
