// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAPI
	ErrorTypeNetwork
	ErrorTypeAuth
	ErrorTypeValidation
	ErrorTypeRateLimit
	ErrorTypeTimeout
	ErrorTypeNotFound
	ErrorTypeUnsupported
)

type APIError struct {
	StatusCode int
	Status     string
	Message    string
	ErrorType  ErrorType
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status %d)", e.Status, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode || e.ErrorType == t.ErrorType
}

type NetworkError struct {
	Err       error
	Operation string
	URL       string
}

func (e *NetworkError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("network error during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type AuthError struct {
	Message string
	Reason  string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("authentication failed: %s (%s)", e.Message, e.Reason)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

type RateLimitError struct {
	RetryAfter string
	Limit      int
	Reset      string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("rate limit exceeded. Please wait %s before retrying", e.RetryAfter)
	}
	return "rate limit exceeded"
}

// ResolutionError means the target set could not be enumerated. It is fatal to the
// whole run and is raised before any mutation is attempted.
type ResolutionError struct {
	Page int
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve bulk targets (page %d): %v", e.Page, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnsupported signals that the server has no bulk job route. It is never shown
	// to the user; the coordinator falls back to per-item execution.
	ErrUnsupported = errors.New("server does not support bulk jobs")

	ErrRunInProgress  = errors.New("a bulk operation is already running")
	ErrEmptySelection = errors.New("nothing selected")
	ErrStreamClosed   = errors.New("job event stream closed before the job settled")

	ErrNoAPIKey          = &AuthError{Message: "No API key configured", Reason: "missing_api_key"}
	ErrServerUnavailable = &APIError{StatusCode: 503, Status: "Service Unavailable", ErrorType: ErrorTypeAPI}
)

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504:
			return true
		}
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}

	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnsupportedStatus reports whether an HTTP status means "route not implemented"
func IsUnsupportedStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	default:
		return false
	}
}

// IsUnsupported reports whether err says the server lacks the requested capability
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupported) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return IsUnsupportedStatus(apiErr.StatusCode)
	}
	return false
}

func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}

	return false
}

func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne)
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}

	return false
}

func IsResolutionError(err error) bool {
	var resErr *ResolutionError
	return errors.As(err, &resErr)
}
