package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"meetgrid/internal/event"
	"meetgrid/internal/grid"
	"meetgrid/internal/ics"
	appLog "meetgrid/internal/log"
	"meetgrid/internal/store"
)

// Error codes carried in the response envelope.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeValidation    = "validation_error"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeInternalError = "internal_error"
)

// maxBodyBytes bounds JSON and ICS request bodies.
const maxBodyBytes = 1 << 20

// APIError is the error half of the envelope. Fields is set for
// validation failures, keyed by JSON field name.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// APIResponse wraps every JSON body. Exactly one of Data and Error is set.
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIResponse{Data: data}); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, apiErr APIError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIResponse{Error: &apiErr}); err != nil {
		appLog.Error("failed to write JSON error", err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, APIError{Code: ErrCodeBadRequest, Message: msg})
}

// writeServiceError maps domain errors onto status codes. Anything
// unrecognized is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *event.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, APIError{
			Code:    ErrCodeValidation,
			Message: verr.Error(),
			Fields:  verr.FieldErrors,
		})
	case errors.Is(err, event.ErrUnknownCandidate),
		errors.Is(err, grid.ErrUnknownTimezone),
		errors.Is(err, grid.ErrInvalidDayKey),
		errors.Is(err, ics.ErrEmptyCalendar),
		errors.Is(err, ics.ErrInvalidCalendar),
		errors.Is(err, ics.ErrInvalidRange),
		errors.Is(err, ics.ErrInvalidRule),
		errors.Is(err, ics.ErrInvalidDuration):
		badRequest(w, err.Error())
	case errors.Is(err, event.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, APIError{Code: ErrCodeUnauthorized, Message: "invalid or missing edit token"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, APIError{Code: ErrCodeNotFound, Message: "not found"})
	case errors.Is(err, event.ErrEventFixed),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, APIError{Code: ErrCodeConflict, Message: err.Error()})
	default:
		appLog.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, APIError{Code: ErrCodeInternalError, Message: "internal error"})
	}
}

// validator is implemented by request bodies that check themselves after
// decoding. An empty result means valid.
type validator interface {
	Validate() []string
}

// decodeJSON reads a single JSON object into dest, rejecting unknown
// fields and trailing data. On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		badRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body: unexpected data after object")
		return false
	}
	if v, ok := dest.(validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			badRequest(w, strings.Join(errs, "; "))
			return false
		}
	}
	return true
}
