// Package errors provides the domain errors returned by the library engine.
//
// Usage:
//
//	// In the hierarchy store - return typed errors
//	if _, ok := s.index[id]; !ok {
//	    return errors.NotFoundf("node %s not found", id)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrInvalidMove) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeNotFound:
//	    case errors.CodeInvalidMove:
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidMove        Code = "INVALID_MOVE"
	CodeNotAFolder         Code = "NOT_A_FOLDER"
	CodeImportMalformed    Code = "IMPORT_MALFORMED"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeValidation         Code = "VALIDATION"
	CodeInternal           Code = "INTERNAL"
)

// Reasons attached to InvalidMove errors.
const (
	ReasonSelfMove   = "self_move"
	ReasonCyclicMove = "cyclic_move"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidMove, CodeNotAFolder:
		return http.StatusConflict
	case CodeValidation, CodeImportMalformed:
		return http.StatusBadRequest
	case CodePersistenceFailure, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidMove        = &Error{Code: CodeInvalidMove, Message: "invalid move"}
	ErrNotAFolder         = &Error{Code: CodeNotAFolder, Message: "not a folder"}
	ErrImportMalformed    = &Error{Code: CodeImportMalformed, Message: "malformed import record"}
	ErrPersistenceFailure = &Error{Code: CodePersistenceFailure, Message: "persistence failure"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// SelfMove creates the InvalidMove error for moving a node into itself.
func SelfMove(nodeID string) *Error {
	return &Error{
		Code:    CodeInvalidMove,
		Message: fmt.Sprintf("cannot move %s into itself", nodeID),
		Details: map[string]string{"reason": ReasonSelfMove},
	}
}

// CyclicMove creates the InvalidMove error for moving a folder into its own subtree.
func CyclicMove(nodeID, targetID string) *Error {
	return &Error{
		Code:    CodeInvalidMove,
		Message: fmt.Sprintf("cannot move %s into its descendant %s", nodeID, targetID),
		Details: map[string]string{"reason": ReasonCyclicMove},
	}
}

// NotAFolderf creates a not-a-folder error with formatted message.
func NotAFolderf(format string, args ...any) *Error {
	return &Error{Code: CodeNotAFolder, Message: fmt.Sprintf(format, args...)}
}

// ImportMalformedf creates an import error with formatted message.
func ImportMalformedf(format string, args ...any) *Error {
	return &Error{Code: CodeImportMalformed, Message: fmt.Sprintf(format, args...)}
}

// PersistenceFailure wraps a gateway write error.
func PersistenceFailure(err error) *Error {
	return &Error{Code: CodePersistenceFailure, Message: "persist library snapshot", cause: err}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// Reason returns the "reason" detail of an InvalidMove error, or "".
func Reason(err error) string {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return ""
	}
	details, ok := domainErr.Details.(map[string]string)
	if !ok {
		return ""
	}
	return details["reason"]
}
