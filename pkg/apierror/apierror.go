package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an engine failure. Every error returned across the
// service boundary carries exactly one kind.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindForbidden          Kind = "FORBIDDEN"
	KindAccessDenied       Kind = "ACCESS_DENIED"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindInvalidState       Kind = "INVALID_STATE"
	KindExpired            Kind = "EXPIRED"
	KindThresholdViolation Kind = "THRESHOLD_VIOLATION"
	KindInternal           Kind = "INTERNAL_ERROR"
)

type APIError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string, details string, status int) *APIError {
	return &APIError{Kind: kind, Message: message, Details: details, HTTPStatus: status}
}

func NotFound(message string, details string) *APIError {
	return New(KindNotFound, message, details, http.StatusNotFound)
}

func Forbidden(message string, details string) *APIError {
	return New(KindForbidden, message, details, http.StatusForbidden)
}

// AccessDenied is a file-level access failure, distinct from the
// role-based Forbidden.
func AccessDenied(message string, details string) *APIError {
	return New(KindAccessDenied, message, details, http.StatusForbidden)
}

func InvalidArgument(message string, details string) *APIError {
	return New(KindInvalidArgument, message, details, http.StatusBadRequest)
}

func InvalidState(message string, details string) *APIError {
	return New(KindInvalidState, message, details, http.StatusConflict)
}

func Expired(message string, details string) *APIError {
	return New(KindExpired, message, details, http.StatusGone)
}

func ThresholdViolation(message string, details string) *APIError {
	return New(KindThresholdViolation, message, details, http.StatusConflict)
}

// KindOf extracts the kind from any error in the chain, or KindInternal
// when no APIError is present.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
