package api

import (
	"errors"
	"fmt"
)

// ErrCode is a typed error code enum for consistent collaborator error
// identification. Server-issued codes pass through verbatim; transport
// failures map onto the client-side codes below.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrForbidden    ErrCode = "FORBIDDEN"
	ErrNoQuestions  ErrCode = "NO_QUESTIONS"
	ErrExamClosed   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrValidation   ErrCode = "VALIDATION_ERROR"
	ErrInvalidID    ErrCode = "INVALID_ID"

	// ─── Transport / server ────────────────────────────────────────────
	ErrServer      ErrCode = "SERVER_ERROR"
	ErrUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code, used
// when the server response carries no message of its own.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Incorrect username or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is not valid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrExamClosed:
		return "This exam is not currently available."
	case ErrValidation:
		return "The request payload failed validation."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrServer:
		return "The exam server reported an internal error."
	case ErrUnavailable:
		return "The exam server could not be reached."
	default:
		return "An unexpected error occurred."
	}
}

// ErrServiceUnavailable marks transport-level failures (connection refused,
// timeouts) so callers can distinguish them from server rejections.
var ErrServiceUnavailable = errors.New("exam server unavailable")

// Error is a structured collaborator error carrying the server (or mapped)
// code alongside the HTTP status.
type Error struct {
	Code       ErrCode
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if msg := GetMessage(e.Code); e.Code != "" {
		return msg
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsAuth reports whether the error means the bearer credential was missing,
// invalid or expired.
func (e *Error) IsAuth() bool {
	switch e.Code {
	case ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired, ErrInvalidCredentials:
		return true
	}
	return e.StatusCode == 401
}

// CodeOf extracts the ErrCode from an error chain, or "" when the error is
// not a collaborator error.
func CodeOf(err error) ErrCode {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
