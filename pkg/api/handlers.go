// pkg/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/scraper"
)

// Response messages
const (
	MsgInvalidAPIKey     = "Invalid or missing API key"
	MsgRateLimitExceeded = "Rate limit exceeded"
	msgScrapeFailed      = "Failed to retrieve tour data: "
)

// ErrorResponse is the body of every non-200 answer
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) tourDataHandler(w http.ResponseWriter, r *http.Request) {
	tourID := r.URL.Query().Get("tour_id")

	record, err := s.scraper.Scrape(r.Context(), tourID)
	if err != nil {
		s.writeScrapeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// writeScrapeError answers 400 with the validation message and 500 with the
// fixed prefix for everything else.
func (s *Server) writeScrapeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)

	if apperrors.IsKind(err, apperrors.KindValidation) {
		message := scraper.MsgInvalidTourID
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Message != "" {
			message = appErr.Message
		}
		writeError(w, apperrors.HTTPStatus(apperrors.KindValidation), message, "")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"tour_id": r.URL.Query().Get("tour_id"),
		"kind":    string(kind),
	}).Errorf("tour_data failed: %v", err)

	code := ""
	if s.config.ErrorCodes {
		code = string(kind)
	}
	writeError(w, http.StatusInternalServerError, msgScrapeFailed+err.Error(), code)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(v)
}
