// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/TourScrapexter/internal/browser"
	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/scraper"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// MetricsManager manages Prometheus metrics for TourScrapexter. Every
// manager owns its registry, so several can coexist in one process.
type MetricsManager struct {
	registry *prometheus.Registry

	// Request metrics
	requestsTotal    *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	requestsInFlight prometheus.Gauge
	rateLimitHits    prometheus.Counter

	// Scraping metrics
	stageDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	toursScraped  prometheus.Counter

	namespace string
	subsystem string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace            string `json:"namespace"`
	Subsystem            string `json:"subsystem"`
	EnableGoMetrics      bool   `json:"enable_go_metrics"`
	EnableProcessMetrics bool   `json:"enable_process_metrics"`
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "tourscrapexter"
	}
	if config.Subsystem == "" {
		config.Subsystem = "api"
	}

	mm := &MetricsManager{
		registry:  prometheus.NewRegistry(),
		namespace: config.Namespace,
		subsystem: config.Subsystem,
	}

	if config.EnableGoMetrics {
		mm.registry.MustRegister(collectors.NewGoCollector())
	}
	if config.EnableProcessMetrics {
		mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	mm.initializeMetrics()

	return mm
}

// initializeMetrics initializes all Prometheus metrics
func (mm *MetricsManager) initializeMetrics() {
	factory := promauto.With(mm.registry)

	mm.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "requests_total",
			Help:      "Total number of /tour_data requests by response status",
		},
		[]string{"status_code"},
	)

	mm.requestDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "request_duration_seconds",
			Help:      "/tour_data request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	mm.requestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "requests_in_flight",
			Help:      "Number of /tour_data requests currently being served",
		},
	)

	mm.rateLimitHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by the inbound rate limiter",
		},
	)

	mm.stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: "scraper",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each scraping stage in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage", "outcome"},
	)

	mm.errorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "scraper",
			Name:      "errors_total",
			Help:      "Total number of scraping failures by stage and error kind",
		},
		[]string{"stage", "kind"},
	)

	mm.toursScraped = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "scraper",
			Name:      "tours_scraped_total",
			Help:      "Total number of tours scraped successfully",
		},
	)
}

// RegisterBrowserPool exposes the pool's occupancy and counters. The
// values are read from stats at scrape time.
func (mm *MetricsManager) RegisterBrowserPool(stats func() browser.PoolStats) {
	factory := promauto.With(mm.registry)
	opts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: "browser_pool",
			Name:      name,
			Help:      help,
		}
	}

	factory.NewGaugeFunc(opts("size", "Number of browsers owned by the pool"),
		func() float64 { return float64(stats().Size) })
	factory.NewGaugeFunc(opts("available", "Number of idle browsers"),
		func() float64 { return float64(stats().Available) })
	factory.NewGaugeFunc(opts("in_use", "Number of checked-out browsers"),
		func() float64 { return float64(stats().InUse) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: "browser_pool",
		Name:      "acquired_total",
		Help:      "Total number of browser checkouts",
	}, func() float64 { return float64(stats().Acquired) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: "browser_pool",
		Name:      "exhausted_total",
		Help:      "Total number of checkouts that gave up waiting for a browser",
	}, func() float64 { return float64(stats().Exhausted) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: "browser_pool",
		Name:      "browser_errors_total",
		Help:      "Total number of failed browser navigations and page reads",
	}, func() float64 { return float64(stats().BrowserErrors) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: "browser_pool",
		Name:      "wait_timeouts_total",
		Help:      "Total number of element waits that timed out",
	}, func() float64 { return float64(stats().WaitTimeouts) })
}

// ObserveStage records one pipeline stage
func (mm *MetricsManager) ObserveStage(stage string, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		mm.errorsTotal.WithLabelValues(stage, string(apperrors.KindOf(err))).Inc()
	} else if stage == scraper.StageTotal {
		mm.toursScraped.Inc()
	}
	mm.stageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
}

// RecordRequest records a completed /tour_data request
func (mm *MetricsManager) RecordRequest(statusCode int, duration time.Duration) {
	mm.requestsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	mm.requestDuration.Observe(duration.Seconds())
}

// IncRequestsInFlight increments in-flight requests
func (mm *MetricsManager) IncRequestsInFlight() {
	mm.requestsInFlight.Inc()
}

// DecRequestsInFlight decrements in-flight requests
func (mm *MetricsManager) DecRequestsInFlight() {
	mm.requestsInFlight.Dec()
}

// RecordRateLimitHit records a request rejected by the rate limiter
func (mm *MetricsManager) RecordRateLimitHit() {
	mm.rateLimitHits.Inc()
}

// Registry returns the manager's registry
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsHandler returns the Prometheus exposition handler for this manager
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{})
}
