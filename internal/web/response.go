// ABOUTME: JSON response envelope and the single apperr-to-HTTP translation point
// ABOUTME: Internal failures are logged with detail and answered generically

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/campusworks/records-gateway/internal/apperr"
)

// apiResponse is the envelope every API handler answers with.
type apiResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	body.Timestamp = s.now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, message string, data any) {
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: message, Data: data})
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidCredentials, apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into a status and failure envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindInternal {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	body := apiResponse{Message: appErr.Message}
	if len(appErr.Fields) > 0 {
		body.Data = appErr.Fields
	}
	s.writeJSON(w, statusFor(appErr.Kind), body)
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from r's body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("Request body too large", nil)
		}
		return apperr.Validation("Invalid request body", nil)
	}
	return nil
}
