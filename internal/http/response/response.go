// Package response writes JSON responses for the plain net/http handlers that
// sit outside the huma API: router fallbacks, rate limiting and the event
// stream. Error bodies share the shape of API errors.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/crateapp/crate-server/internal/errors"
)

// Codes for transport-level failures that have no domain equivalent.
const (
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeStreamFailed     = "STREAM_FAILED"
	CodeBadSubscription  = "BAD_SUBSCRIPTION"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// Error writes an error body with the given status and code.
func Error(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	JSON(w, status, ErrorBody{Code: code, Message: message}, logger)
}

// HandleError writes err as an error response. Domain errors keep their code,
// status and details; anything else becomes a 500 with a generic message.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		JSON(w, domainErr.HTTPStatus(), ErrorBody{
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}, logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", slog.String("error", err.Error()))
	}
	Error(w, http.StatusInternalServerError, string(errors.CodeInternal), "internal error", logger)
}

// NotFound is an http.HandlerFunc for unknown routes.
func NotFound(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusNotFound, CodeRouteNotFound, "no route for "+r.URL.Path, logger)
	}
}

// MethodNotAllowed is an http.HandlerFunc for known routes hit with the wrong method.
func MethodNotAllowed(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path, logger)
	}
}

// TooManyRequests writes a 429 with a Retry-After header in seconds.
func TooManyRequests(w http.ResponseWriter, retryAfter string, logger *slog.Logger) {
	w.Header().Set("Retry-After", retryAfter)
	Error(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", logger)
}
