// pkg/api/middleware.go
package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
)

// authMiddleware checks the api_key query parameter in constant time
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("api_key")
		if key == "" || s.config.APIKey == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.config.APIKey)) != 1 {
			err := apperrors.New(apperrors.KindAuth, "authenticate", MsgInvalidAPIKey)
			writeError(w, apperrors.HTTPStatus(err.Kind), err.Message, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			if s.metrics != nil {
				s.metrics.RecordRateLimitHit()
			}
			writeError(w, http.StatusTooManyRequests, MsgRateLimitExceeded, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// instrumentMiddleware logs and measures every /tour_data request
func (s *Server) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if s.metrics != nil {
			s.metrics.IncRequestsInFlight()
			defer s.metrics.DecRequestsInFlight()
		}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordRequest(rec.status, duration)
		}
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": duration.String(),
			"remote":   r.RemoteAddr,
		}).Info("request served")
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorf("panic serving %s: %v", r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, msgScrapeFailed+"internal error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
