package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/media-catalog/internal/catalog"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondServiceError maps a catalog failure onto a stable status and code.
// Only invalid-argument messages reach the client; everything else gets a
// generic message and internal detail goes to the log.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch catalog.KindOf(err) {
	case catalog.KindUnauthenticated:
		s.respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid authentication information")
	case catalog.KindForbidden:
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
	case catalog.KindNotFound:
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case catalog.KindInvalidArgument:
		msg := "Invalid argument"
		var ce *catalog.Error
		if errors.As(err, &ce) && ce.Message != "" {
			msg = ce.Message
		}
		s.respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", msg)
	case catalog.KindTransient:
		s.logger.Warn(op+" unavailable", "error", err, "request_id", middleware.GetReqID(r.Context()))
		w.Header().Set("Retry-After", "1")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service temporarily unavailable")
	default:
		s.logger.Error(op+" failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
