// internal/config/validation.go
package config

import (
	"fmt"
	"strings"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

func (r *ValidationResult) add(field, value, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// err creates a comprehensive INVALID_CONFIG error
func (r *ValidationResult) err() error {
	var errorMsg strings.Builder

	errorMsg.WriteString("configuration validation failed:")
	for i, e := range r.Errors {
		errorMsg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, e.Message))
		if e.Field != "" {
			errorMsg.WriteString(fmt.Sprintf(" (field: %s)", e.Field))
		}
		// The API key is a secret and never echoed
		if e.Value != "" && e.Field != EnvAPIKey {
			errorMsg.WriteString(fmt.Sprintf(" (value: %s)", e.Value))
		}
	}

	return apperrors.New(apperrors.KindConfig, "load config", errorMsg.String())
}

// Validate checks an already-built configuration
func (c *Config) Validate() error {
	result := &ValidationResult{Valid: true}
	c.validate(result)
	if len(result.Errors) > 0 {
		return result.err()
	}
	return nil
}

func (c *Config) validate(result *ValidationResult) {
	if c.APIKey == "" {
		result.add(EnvAPIKey, "", "API_KEY is required")
	}

	// A WORKERS parse failure is already recorded
	if c.Workers <= 0 && !result.has(EnvWorkers) {
		result.add(EnvWorkers, fmt.Sprint(c.Workers), "WORKERS must be a positive integer")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.add(EnvLogLevel, c.LogLevel, "LOG_LEVEL must be one of debug, info, warn, error")
	}

	if err := c.Site.Validate(); err != nil {
		result.add(EnvSiteConfig, c.SiteConfigPath, err.Error())
	}
}

func (r *ValidationResult) has(field string) bool {
	for _, e := range r.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}
