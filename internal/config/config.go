// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/scraper"
)

// Load reads the configuration from the process environment. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment win over the file.
func Load() (*Config, error) {
	return LoadWithEnvFile(".env")
}

// LoadWithEnvFile is Load with an explicit .env path. A missing file is not an error.
func LoadWithEnvFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.KindConfig, "load env file", err)
		}
	}
	return LoadFromEnv(os.LookupEnv)
}

// LoadFromEnv builds the configuration from lookup, applies defaults, loads
// the site file named by SITE_CONFIG and validates the result. Every problem
// found is reported in one error.
func LoadFromEnv(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		return nil, apperrors.New(apperrors.KindConfig, "load config", "lookup function cannot be nil")
	}

	result := &ValidationResult{Valid: true}
	config := &Config{}

	config.APIKey = envString(lookup, EnvAPIKey)

	if raw, ok := lookup(EnvWorkers); !ok || strings.TrimSpace(raw) == "" {
		result.add(EnvWorkers, "", "WORKERS is required")
	} else if n, err := strconv.Atoi(strings.TrimSpace(raw)); err != nil {
		result.add(EnvWorkers, raw, "WORKERS must be an integer")
	} else {
		config.Workers = n
	}

	config.ListenAddr = envString(lookup, EnvListenAddr)
	config.RequestTimeout = envDuration(lookup, EnvRequestTimeout, result)
	config.AcquireTimeout = envDuration(lookup, EnvAcquireTimeout, result)
	config.WaitTimeout = envDuration(lookup, EnvWaitTimeout, result)
	config.FetchTimeout = envDuration(lookup, EnvFetchTimeout, result)
	config.FetchRateLimit = envFloat(lookup, EnvFetchRateLimit, -1, result)
	config.RateLimit = envFloat(lookup, EnvRateLimit, 0, result)
	config.Headless = envBool(lookup, EnvHeadless, true, result)
	config.ChromePath = envString(lookup, EnvChromePath)
	config.UserAgent = envString(lookup, EnvUserAgent)
	config.SiteConfigPath = envString(lookup, EnvSiteConfig)
	config.LogLevel = strings.ToLower(envString(lookup, EnvLogLevel))
	config.ErrorCodes = envBool(lookup, EnvErrorCodes, false, result)

	config.Site = scraper.DefaultMarkup()
	if config.SiteConfigPath != "" {
		site, err := LoadSiteFromFile(config.SiteConfigPath)
		if err != nil {
			result.add(EnvSiteConfig, config.SiteConfigPath, err.Error())
		} else {
			config.Site = *site
		}
	}

	applyDefaults(config)
	config.validate(result)

	if len(result.Errors) > 0 {
		return nil, result.err()
	}
	return config, nil
}

// LoadSiteFromFile loads site constants from a YAML file
func LoadSiteFromFile(filename string) (*scraper.Markup, error) {
	if filename == "" {
		return nil, fmt.Errorf("site configuration filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read site configuration: %w", err)
	}

	return LoadSiteFromBytes(data)
}

// LoadSiteFromBytes parses site constants from YAML. ${VAR} references are
// expanded from the environment. Keys absent from the document keep their
// default values.
func LoadSiteFromBytes(data []byte) (*scraper.Markup, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("site configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	site := scraper.DefaultMarkup()
	if err := yaml.Unmarshal([]byte(expanded), &site); err != nil {
		return nil, fmt.Errorf("failed to parse YAML site configuration: %w", err)
	}

	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site configuration: %w", err)
	}

	return &site, nil
}

// expandEnvironmentVariables substitutes environment variables in the configuration
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults applies default values to unset optional settings
func applyDefaults(config *Config) {
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}

	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	if config.AcquireTimeout == 0 {
		config.AcquireTimeout = DefaultAcquireTimeout
	}

	if config.WaitTimeout == 0 {
		config.WaitTimeout = DefaultWaitTimeout
	}

	if config.FetchTimeout == 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}

	if config.FetchRateLimit < 0 {
		config.FetchRateLimit = DefaultFetchRateLimit
	}

	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
}

func envString(lookup LookupFunc, key string) string {
	value, _ := lookup(key)
	return strings.TrimSpace(value)
}

func envDuration(lookup LookupFunc, key string, result *ValidationResult) time.Duration {
	raw := envString(lookup, key)
	if raw == "" {
		return 0
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		// Bare integers are seconds
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			result.add(key, raw, fmt.Sprintf("%s must be a duration such as 30s", key))
			return 0
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		result.add(key, raw, fmt.Sprintf("%s must be positive", key))
		return 0
	}
	return d
}

func envFloat(lookup LookupFunc, key string, unset float64, result *ValidationResult) float64 {
	raw := envString(lookup, key)
	if raw == "" {
		return unset
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		result.add(key, raw, fmt.Sprintf("%s must be a number", key))
		return unset
	}
	if f < 0 {
		result.add(key, raw, fmt.Sprintf("%s cannot be negative", key))
		return unset
	}
	return f
}

func envBool(lookup LookupFunc, key string, unset bool, result *ValidationResult) bool {
	raw := envString(lookup, key)
	if raw == "" {
		return unset
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		result.add(key, raw, fmt.Sprintf("%s must be true or false", key))
		return unset
	}
	return b
}
