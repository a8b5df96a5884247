// pkg/api/api_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/valpere/TourScrapexter/internal/browser"
	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/monitoring"
	"github.com/valpere/TourScrapexter/internal/scraper"
)

const testAPIKey = "s3cret-key"

// fakeScraper validates like the engine and then delegates to fn
type fakeScraper struct {
	calls atomic.Int32
	fn    func(tourID string) (*scraper.TourRecord, error)
}

func (f *fakeScraper) Scrape(ctx context.Context, rawID string) (*scraper.TourRecord, error) {
	f.calls.Add(1)
	tourID, err := scraper.ValidateTourID(rawID)
	if err != nil {
		return nil, err
	}
	if f.fn == nil {
		record := scraper.NewTourRecord("https://www.go365travel.com/tour/" + tourID)
		record.Name = "ทัวร์ญี่ปุ่น"
		return record, nil
	}
	return f.fn(tourID)
}

func setupTestServer(t *testing.T, fake *fakeScraper, config ServerConfig, opts ...Option) *httptest.Server {
	t.Helper()
	if config.APIKey == "" {
		config.APIKey = testAPIKey
	}
	server := httptest.NewServer(NewServer(fake, config, opts...).Routes())
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", body, err)
	}
	return resp.StatusCode, decoded
}

func TestTourData_Success(t *testing.T) {
	fake := &fakeScraper{}
	server := setupTestServer(t, fake, ServerConfig{})

	resp, err := http.Get(server.URL + "/tour_data?api_key=" + testAPIKey + "&tour_id=GO1TYO")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"ชื่อทัวร์":"ทัวร์ญี่ปุ่น"`) {
		t.Errorf("Expected unescaped Thai keys and values, got %s", body)
	}
	if !strings.Contains(string(body), `"tour_url":"https://www.go365travel.com/tour/GO1TYO"`) {
		t.Errorf("Expected tour URL in body, got %s", body)
	}
}

func TestTourData_Auth(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing key", "?tour_id=GO1TYO"},
		{"empty key", "?api_key=&tour_id=GO1TYO"},
		{"wrong key", "?api_key=nope&tour_id=GO1TYO"},
		{"key prefix", "?api_key=s3cret&tour_id=GO1TYO"},
		{"bad key and no tour", "?api_key=nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeScraper{}
			server := setupTestServer(t, fake, ServerConfig{})

			status, body := get(t, server.URL+"/tour_data"+tt.query)
			if status != http.StatusForbidden {
				t.Errorf("Expected 403, got %d", status)
			}
			if body["error"] != MsgInvalidAPIKey {
				t.Errorf("Unexpected error body: %v", body)
			}
			if fake.calls.Load() != 0 {
				t.Error("Scraper must not run for unauthenticated requests")
			}
		})
	}
}

func TestTourData_BadTourID(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"missing", "", scraper.MsgMissingTourID},
		{"empty", "&tour_id=", scraper.MsgMissingTourID},
		{"blank", "&tour_id=%20%20", scraper.MsgMissingTourID},
		{"control char", "&tour_id=GO1%00TYO", scraper.MsgInvalidTourID},
		{"too long", "&tour_id=" + strings.Repeat("x", scraper.MaxTourIDLength+1), scraper.MsgInvalidTourID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, &fakeScraper{}, ServerConfig{})

			status, body := get(t, server.URL+"/tour_data?api_key="+testAPIKey+tt.query)
			if status != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", status)
			}
			if body["error"] != tt.want {
				t.Errorf("Expected %q, got %v", tt.want, body)
			}
		})
	}
}

func TestTourData_InternalFailure(t *testing.T) {
	failure := apperrors.New(apperrors.KindResolutionNotFound, "resolve tour", "no search result")
	fake := &fakeScraper{fn: func(string) (*scraper.TourRecord, error) { return nil, failure }}

	t.Run("plain", func(t *testing.T) {
		server := setupTestServer(t, fake, ServerConfig{})
		status, body := get(t, server.URL+"/tour_data?api_key="+testAPIKey+"&tour_id=GO1TYO")
		if status != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d", status)
		}
		if body["error"] != "Failed to retrieve tour data: "+failure.Error() {
			t.Errorf("Unexpected error body: %v", body)
		}
		if _, ok := body["code"]; ok {
			t.Errorf("Expected no code field by default, got %v", body)
		}
	})

	t.Run("with codes", func(t *testing.T) {
		server := setupTestServer(t, fake, ServerConfig{ErrorCodes: true})
		_, body := get(t, server.URL+"/tour_data?api_key="+testAPIKey+"&tour_id=GO1TYO")
		if body["code"] != string(apperrors.KindResolutionNotFound) {
			t.Errorf("Expected kind code, got %v", body)
		}
	})

	t.Run("untyped error", func(t *testing.T) {
		fake := &fakeScraper{fn: func(string) (*scraper.TourRecord, error) { return nil, errors.New("boom") }}
		server := setupTestServer(t, fake, ServerConfig{ErrorCodes: true})
		status, body := get(t, server.URL+"/tour_data?api_key="+testAPIKey+"&tour_id=GO1TYO")
		if status != http.StatusInternalServerError || body["code"] != string(apperrors.KindInternal) {
			t.Errorf("Expected 500 INTERNAL, got %d %v", status, body)
		}
	})
}

func TestTourData_Panic(t *testing.T) {
	fake := &fakeScraper{fn: func(string) (*scraper.TourRecord, error) { panic("extractor bug") }}
	server := setupTestServer(t, fake, ServerConfig{})

	status, body := get(t, server.URL+"/tour_data?api_key="+testAPIKey+"&tour_id=GO1TYO")
	if status != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", status)
	}
	if !strings.HasPrefix(body["error"].(string), "Failed to retrieve tour data: ") {
		t.Errorf("Unexpected error body: %v", body)
	}
}

func TestTourData_RateLimit(t *testing.T) {
	mm := monitoring.NewMetricsManager(monitoring.MetricsConfig{})
	server := setupTestServer(t, &fakeScraper{}, ServerConfig{RateLimit: 1}, WithMetrics(mm))
	url := server.URL + "/tour_data?api_key=" + testAPIKey + "&tour_id=GO1TYO"

	if status, _ := get(t, url); status != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", status)
	}
	status, body := get(t, url)
	if status != http.StatusTooManyRequests || body["error"] != MsgRateLimitExceeded {
		t.Errorf("Expected 429 rate limit, got %d %v", status, body)
	}

	exposition := scrapeMetrics(t, server.URL)
	if !strings.Contains(exposition, "tourscrapexter_api_rate_limit_hits_total 1") {
		t.Errorf("Expected rate limit hit to be counted:\n%s", exposition)
	}
}

func TestTourData_RateLimitAfterAuth(t *testing.T) {
	server := setupTestServer(t, &fakeScraper{}, ServerConfig{RateLimit: 1})

	for i := 0; i < 5; i++ {
		status, body := get(t, server.URL+"/tour_data?api_key=wrong&tour_id=GO1TYO")
		if status != http.StatusForbidden || body["error"] != MsgInvalidAPIKey {
			t.Fatalf("Request %d: expected 403 for bad key, got %d %v", i, status, body)
		}
	}

	status, body := get(t, server.URL+"/tour_data?api_key="+testAPIKey+"&tour_id=GO1TYO")
	if status != http.StatusOK {
		t.Errorf("Expected bad-key requests not to use up the limit, got %d %v", status, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mm := monitoring.NewMetricsManager(monitoring.MetricsConfig{})
	server := setupTestServer(t, &fakeScraper{}, ServerConfig{}, WithMetrics(mm))

	get(t, server.URL+"/tour_data?api_key="+testAPIKey+"&tour_id=GO1TYO")
	get(t, server.URL+"/tour_data?api_key=wrong&tour_id=GO1TYO")

	exposition := scrapeMetrics(t, server.URL)
	for _, want := range []string{
		`tourscrapexter_api_requests_total{status_code="200"} 1`,
		`tourscrapexter_api_requests_total{status_code="403"} 1`,
		`tourscrapexter_api_requests_in_flight 0`,
	} {
		if !strings.Contains(exposition, want) {
			t.Errorf("Expected %q in exposition", want)
		}
	}
	got, err := testutil.GatherAndCount(mm.Registry(), "tourscrapexter_api_request_duration_seconds")
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if got != 1 {
		t.Errorf("Expected one duration histogram, got %d", got)
	}
}

func scrapeMetrics(t *testing.T, base string) string {
	t.Helper()
	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestHealthEndpoints(t *testing.T) {
	var closed atomic.Bool
	hm := monitoring.NewHealthManager(monitoring.HealthConfig{})
	hm.RegisterCheck(monitoring.BrowserPoolHealthCheck(func() browser.PoolStats {
		return browser.PoolStats{Size: 2, Available: 2, Closed: closed.Load()}
	}))
	server := setupTestServer(t, &fakeScraper{}, ServerConfig{}, WithHealth(hm))

	status, body := get(t, server.URL+"/health")
	if status != http.StatusOK || body["status"] != string(monitoring.HealthStatusHealthy) {
		t.Errorf("Expected healthy without API key, got %d %v", status, body)
	}

	closed.Store(true)
	status, _ = get(t, server.URL+"/ready")
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 once the pool is closed, got %d", status)
	}
}

func TestRouting(t *testing.T) {
	server := setupTestServer(t, &fakeScraper{}, ServerConfig{})

	status, _ := get(t, server.URL+"/nope")
	if status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", status)
	}

	resp, err := http.Post(server.URL+"/tour_data?api_key="+testAPIKey+"&tour_id=GO1TYO", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}
