// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/valpere/TourScrapexter/internal/browser"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// CheckFunc probes one component
type CheckFunc func(ctx context.Context) HealthCheckResult

// HealthCheck represents a single registered health check
type HealthCheck struct {
	Name      string
	CheckFunc CheckFunc
	Timeout   time.Duration
	Critical  bool
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Critical bool                   `json:"critical"`
	Duration string                 `json:"duration"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// HealthConfig configuration for health monitoring
type HealthConfig struct {
	Version        string        `json:"version"`
	DefaultTimeout time.Duration `json:"default_timeout"`
}

// SystemHealth represents overall system health information
type SystemHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version,omitempty"`
	Uptime    string                       `json:"uptime"`
	Checks    map[string]HealthCheckResult `json:"checks,omitempty"`
	Summary   HealthSummary                `json:"summary"`
}

// HealthSummary provides a summary of health checks
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Degraded  int `json:"degraded"`
	Unknown   int `json:"unknown"`
}

// HealthManager runs registered health checks on demand
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]*HealthCheck
	config  HealthConfig
	started time.Time
}

// NewHealthManager creates a new health manager
func NewHealthManager(config HealthConfig) *HealthManager {
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = 5 * time.Second
	}

	return &HealthManager{
		checks:  make(map[string]*HealthCheck),
		config:  config,
		started: time.Now(),
	}
}

// RegisterCheck registers a new health check, replacing one with the same name
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = hm.config.DefaultTimeout
	}

	hm.mu.Lock()
	hm.checks[check.Name] = check
	hm.mu.Unlock()
}

// CheckNames returns the registered check names in sorted order
func (hm *HealthManager) CheckNames() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runAllChecks runs all registered health checks concurrently
func (hm *HealthManager) runAllChecks(ctx context.Context) map[string]HealthCheckResult {
	hm.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		checks = append(checks, check)
	}
	hm.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]HealthCheckResult, len(checks))
	)
	for _, check := range checks {
		wg.Add(1)
		go func(c *HealthCheck) {
			defer wg.Done()
			result := runCheck(ctx, c)
			mu.Lock()
			results[c.Name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	return results
}

// runCheck runs a single health check
func runCheck(ctx context.Context, check *HealthCheck) HealthCheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	var result HealthCheckResult
	if check.CheckFunc != nil {
		result = check.CheckFunc(checkCtx)
	} else {
		result = HealthCheckResult{
			Status:  HealthStatusUnknown,
			Message: "No check function defined",
		}
	}

	result.Critical = check.Critical
	result.Duration = time.Since(start).String()
	return result
}

// GetHealth runs every check and aggregates the overall status. A failing
// critical check makes the system unhealthy; anything else short of
// healthy degrades it.
func (hm *HealthManager) GetHealth(ctx context.Context) SystemHealth {
	results := hm.runAllChecks(ctx)

	summary := HealthSummary{Total: len(results)}
	overallStatus := HealthStatusHealthy

	for _, result := range results {
		switch result.Status {
		case HealthStatusHealthy:
			summary.Healthy++
		case HealthStatusUnhealthy:
			summary.Unhealthy++
			if result.Critical {
				overallStatus = HealthStatusUnhealthy
			} else if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		case HealthStatusDegraded:
			summary.Degraded++
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		default:
			summary.Unknown++
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	return SystemHealth{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Version:   hm.config.Version,
		Uptime:    time.Since(hm.started).Round(time.Second).String(),
		Checks:    results,
		Summary:   summary,
	}
}

// GetReadiness reports whether the service can take traffic. Degraded
// counts as ready.
func (hm *HealthManager) GetReadiness(ctx context.Context) SystemHealth {
	health := hm.GetHealth(ctx)
	if health.Status != HealthStatusUnhealthy {
		health.Status = HealthStatusHealthy
	}
	return health
}

// HealthHandler serves the full health report
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, hm.GetHealth(r.Context()))
	}
}

// ReadinessHandler serves the readiness probe
func (hm *HealthManager) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, hm.GetReadiness(r.Context()))
	}
}

func writeHealth(w http.ResponseWriter, health SystemHealth) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if health.Status == HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(health)
}

// BrowserPoolHealthCheck reports the browser pool. A closed or empty pool is
// unhealthy; a pool with every browser checked out is degraded.
func BrowserPoolHealthCheck(stats func() browser.PoolStats) *HealthCheck {
	return &HealthCheck{
		Name:     "browser_pool",
		Critical: true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			s := stats()
			metadata := map[string]interface{}{
				"size":           s.Size,
				"available":      s.Available,
				"in_use":         s.InUse,
				"exhausted":      s.Exhausted,
				"browser_errors": s.BrowserErrors,
				"wait_timeouts":  s.WaitTimeouts,
			}

			switch {
			case s.Closed:
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "browser pool is closed", Metadata: metadata}
			case s.Size == 0:
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "browser pool has no browsers", Metadata: metadata}
			case s.Available == 0:
				return HealthCheckResult{Status: HealthStatusDegraded, Message: "all browsers are busy", Metadata: metadata}
			default:
				return HealthCheckResult{
					Status:   HealthStatusHealthy,
					Message:  fmt.Sprintf("%d of %d browsers available", s.Available, s.Size),
					Metadata: metadata,
				}
			}
		},
	}
}

// GoroutineHealthCheck degrades when the goroutine count exceeds limit
func GoroutineHealthCheck(limit int) *HealthCheck {
	return &HealthCheck{
		Name: "goroutines",
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			count := runtime.NumGoroutine()
			metadata := map[string]interface{}{"count": count, "limit": limit}
			if count > limit {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("goroutine count %d exceeds %d", count, limit),
					Metadata: metadata,
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Metadata: metadata}
		},
	}
}
