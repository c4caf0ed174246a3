package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/http/response"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Location string `json:"location,omitempty" doc:"Where the error occurred, e.g. body.name"`
	Message  string `json:"message" doc:"What is wrong with the value"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}

		// Request validation failures from huma carry one detail per field.
		var fields []FieldError
		for _, err := range errs {
			var detail *huma.ErrorDetail
			if errors.As(err, &detail) {
				fields = append(fields, FieldError{Location: detail.Location, Message: detail.Message})
			}
		}
		if len(fields) > 0 {
			apiErr.Details = fields
		}

		return apiErr
	}
}

// statusToCode maps HTTP status codes to our error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusMethodNotAllowed:
		return response.CodeMethodNotAllowed
	case http.StatusTooManyRequests:
		return response.CodeRateLimited
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return string(domainerrors.CodeValidation)
	}
	return string(domainerrors.CodeInternal)
}
