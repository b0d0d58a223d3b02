// Package httputil provides JSON response helpers for the HTTP API.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/randworks/lottery_token/internal/errors"
	"github.com/randworks/lottery_token/internal/logging"
)

// ErrorBody is the JSON shape of all error responses.
type ErrorBody struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		TraceID string                 `json:"trace_id,omitempty"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// JSON writes a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteErrorResponse writes a structured JSON error, carrying the request's
// trace ID when present.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	var body ErrorBody
	body.Error.Code = code
	body.Error.Message = message
	body.Error.Details = details
	if r != nil {
		body.Error.TraceID = logging.GetTraceID(r.Context())
	}
	JSON(w, status, body)
}

// WriteServiceError maps any error to a JSON error response. Errors that are
// not ServiceErrors become opaque 500s.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("internal error", err)
	}
	WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
}

// Unauthorized writes a 401 with an optional message.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "unauthorized"
	}
	WriteErrorResponse(w, nil, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}
