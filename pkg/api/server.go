// pkg/api/server.go
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/valpere/TourScrapexter/internal/monitoring"
	"github.com/valpere/TourScrapexter/internal/scraper"
	"github.com/valpere/TourScrapexter/internal/utils"
)

// Scraper produces the record for one tour_id
type Scraper interface {
	Scrape(ctx context.Context, tourID string) (*scraper.TourRecord, error)
}

// ServerConfig holds the HTTP layer settings
type ServerConfig struct {
	APIKey     string
	RateLimit  float64
	ErrorCodes bool
}

// Server exposes the tour endpoint and the operational endpoints
type Server struct {
	scraper Scraper
	config  ServerConfig
	logger  utils.Logger
	metrics *monitoring.MetricsManager
	health  *monitoring.HealthManager
	limiter *utils.RateLimiter
}

// Option customizes a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l utils.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables request metrics and the /metrics endpoint
func WithMetrics(mm *monitoring.MetricsManager) Option {
	return func(s *Server) { s.metrics = mm }
}

// WithHealth serves /health and /ready from hm
func WithHealth(hm *monitoring.HealthManager) Option {
	return func(s *Server) { s.health = hm }
}

// NewServer creates a server backed by scraper
func NewServer(scraper Scraper, config ServerConfig, opts ...Option) *Server {
	s := &Server{
		scraper: scraper,
		config:  config,
		logger:  utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if config.RateLimit > 0 {
		burst := int(config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = utils.NewRateLimiter(config.RateLimit, burst)
	}
	if s.health == nil {
		s.health = monitoring.NewHealthManager(monitoring.HealthConfig{})
	}

	return s
}

// Routes builds the router. Only /tour_data requires the API key.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware)

	r.HandleFunc("/health", s.health.HealthHandler()).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.health.ReadinessHandler()).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	}

	var tour http.Handler = http.HandlerFunc(s.tourDataHandler)
	// Unauthenticated requests are rejected before they reach the limiter
	tour = s.rateLimitMiddleware(tour)
	tour = s.authMiddleware(tour)
	tour = s.instrumentMiddleware(tour)
	r.Handle("/tour_data", tour).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	return r
}
