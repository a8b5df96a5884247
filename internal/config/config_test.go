// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/scraper"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	config, err := LoadFromEnv(mapLookup(map[string]string{
		"API_KEY": "secret",
		"WORKERS": "3",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if config.APIKey != "secret" || config.Workers != 3 {
		t.Errorf("unexpected required values: %+v", config)
	}
	if config.ListenAddr != ":5000" {
		t.Errorf("expected listen addr :5000, got %q", config.ListenAddr)
	}
	if config.RequestTimeout != 60*time.Second {
		t.Errorf("expected 60s request timeout, got %s", config.RequestTimeout)
	}
	if config.AcquireTimeout != 30*time.Second || config.WaitTimeout != 10*time.Second || config.FetchTimeout != 30*time.Second {
		t.Errorf("unexpected timeouts: %+v", config)
	}
	if config.FetchRateLimit != 5 || config.RateLimit != 0 {
		t.Errorf("unexpected rate limits: fetch=%v inbound=%v", config.FetchRateLimit, config.RateLimit)
	}
	if !config.Headless || config.ErrorCodes {
		t.Errorf("unexpected flags: headless=%v error_codes=%v", config.Headless, config.ErrorCodes)
	}
	if config.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", config.LogLevel)
	}
	if config.Site != scraper.DefaultMarkup() {
		t.Error("expected default site markup")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	config, err := LoadFromEnv(mapLookup(map[string]string{
		"API_KEY":          "secret",
		"WORKERS":          " 8 ",
		"LISTEN_ADDR":      "127.0.0.1:8080",
		"REQUEST_TIMEOUT":  "90s",
		"WAIT_TIMEOUT":     "15",
		"FETCH_RATE_LIMIT": "0",
		"RATE_LIMIT":       "2.5",
		"HEADLESS":         "false",
		"CHROME_PATH":      "/usr/bin/chromium",
		"LOG_LEVEL":        "DEBUG",
		"ERROR_CODES":      "true",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if config.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", config.Workers)
	}
	if config.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("unexpected listen addr %q", config.ListenAddr)
	}
	if config.RequestTimeout != 90*time.Second {
		t.Errorf("expected 90s, got %s", config.RequestTimeout)
	}
	if config.WaitTimeout != 15*time.Second {
		t.Errorf("expected bare integer to mean seconds, got %s", config.WaitTimeout)
	}
	if config.FetchRateLimit != 0 {
		t.Errorf("expected explicit 0 fetch rate limit to be kept, got %v", config.FetchRateLimit)
	}
	if config.RateLimit != 2.5 {
		t.Errorf("expected inbound rate 2.5, got %v", config.RateLimit)
	}
	if config.Headless {
		t.Error("expected headless false")
	}
	if config.ChromePath != "/usr/bin/chromium" {
		t.Errorf("unexpected chrome path %q", config.ChromePath)
	}
	if config.LogLevel != "debug" {
		t.Errorf("expected lower-cased log level, got %q", config.LogLevel)
	}
	if !config.ErrorCodes {
		t.Error("expected error codes enabled")
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{"missing api key", map[string]string{"WORKERS": "2"}, "API_KEY is required"},
		{"missing workers", map[string]string{"API_KEY": "k"}, "WORKERS is required"},
		{"non-numeric workers", map[string]string{"API_KEY": "k", "WORKERS": "many"}, "WORKERS must be an integer"},
		{"zero workers", map[string]string{"API_KEY": "k", "WORKERS": "0"}, "WORKERS must be a positive integer"},
		{"negative workers", map[string]string{"API_KEY": "k", "WORKERS": "-2"}, "WORKERS must be a positive integer"},
		{"bad timeout", map[string]string{"API_KEY": "k", "WORKERS": "1", "REQUEST_TIMEOUT": "soon"}, "REQUEST_TIMEOUT must be a duration"},
		{"negative timeout", map[string]string{"API_KEY": "k", "WORKERS": "1", "FETCH_TIMEOUT": "-5s"}, "FETCH_TIMEOUT must be positive"},
		{"bad rate", map[string]string{"API_KEY": "k", "WORKERS": "1", "RATE_LIMIT": "-1"}, "RATE_LIMIT cannot be negative"},
		{"bad bool", map[string]string{"API_KEY": "k", "WORKERS": "1", "HEADLESS": "maybe"}, "HEADLESS must be true or false"},
		{"bad log level", map[string]string{"API_KEY": "k", "WORKERS": "1", "LOG_LEVEL": "loud"}, "LOG_LEVEL must be one of"},
		{"missing site file", map[string]string{"API_KEY": "k", "WORKERS": "1", "SITE_CONFIG": "/nonexistent/site.yaml"}, "failed to read site configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromEnv(mapLookup(tt.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperrors.IsKind(err, apperrors.KindConfig) {
				t.Errorf("expected INVALID_CONFIG kind, got %v", apperrors.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected %q in error, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoadFromEnv_ReportsAllProblems(t *testing.T) {
	_, err := LoadFromEnv(mapLookup(map[string]string{}))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "API_KEY is required") || !strings.Contains(msg, "WORKERS is required") {
		t.Errorf("expected both missing settings reported, got: %s", msg)
	}
	if strings.Count(msg, "WORKERS") != 2 { // message plus field tag, reported once
		t.Errorf("expected WORKERS reported once, got: %s", msg)
	}
}

func TestLoadWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("API_KEY=from-file\nWORKERS=4\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	// godotenv never overrides variables that are already set
	t.Setenv("API_KEY", "from-env")
	t.Setenv("WORKERS", "")
	os.Unsetenv("WORKERS")

	config, err := LoadWithEnvFile(envFile)
	if err != nil {
		t.Fatalf("LoadWithEnvFile failed: %v", err)
	}
	if config.APIKey != "from-env" {
		t.Errorf("expected environment to win, got %q", config.APIKey)
	}
	if config.Workers != 4 {
		t.Errorf("expected WORKERS from file, got %d", config.Workers)
	}
}

func TestLoadWithEnvFile_MissingFile(t *testing.T) {
	t.Setenv("API_KEY", "k")
	t.Setenv("WORKERS", "1")

	if _, err := LoadWithEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadSiteFromBytes_PartialOverride(t *testing.T) {
	t.Setenv("SITE_HOST", "staging.go365travel.com")

	site, err := LoadSiteFromBytes([]byte(`
site_url: "https://${SITE_HOST}/"
result_container: "div.result-card"
`))
	if err != nil {
		t.Fatalf("LoadSiteFromBytes failed: %v", err)
	}

	if site.SiteURL != "https://staging.go365travel.com/" {
		t.Errorf("expected expanded site url, got %q", site.SiteURL)
	}
	if site.ResultContainer != "div.result-card" {
		t.Errorf("expected overridden container, got %q", site.ResultContainer)
	}

	defaults := scraper.DefaultMarkup()
	if site.SearchInput != defaults.SearchInput || site.SpecialPriceStyle != defaults.SpecialPriceStyle {
		t.Error("keys absent from the file should keep their defaults")
	}
}

func TestLoadSiteFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"malformed yaml", "site_url: [unclosed"},
		{"relative url", "site_url: /search"},
		{"bad scheme", "site_url: ftp://go365travel.com/"},
		{"bad duration pattern", "duration_pattern: '([0-9'"},
		{"blank selector", "title: ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadSiteFromBytes([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFromEnv_SiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte("search_button: \"//button[@id='go']\"\n"), 0644); err != nil {
		t.Fatalf("failed to write site file: %v", err)
	}

	config, err := LoadFromEnv(mapLookup(map[string]string{
		"API_KEY":     "k",
		"WORKERS":     "1",
		"SITE_CONFIG": path,
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if config.Site.SearchButton != "//button[@id='go']" {
		t.Errorf("expected overridden search button, got %q", config.Site.SearchButton)
	}
	if config.Site.SiteURL != scraper.DefaultMarkup().SiteURL {
		t.Errorf("expected default site url, got %q", config.Site.SiteURL)
	}
}

func TestValidate_BuiltConfig(t *testing.T) {
	config := &Config{APIKey: "", Workers: 0, LogLevel: "info", Site: scraper.DefaultMarkup()}
	err := config.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "WORKERS must be a positive integer") {
		t.Errorf("unexpected error: %v", err)
	}
}
