// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusMessages maps API error codes to user-facing text
var StatusMessages = map[string]string{
	"INVALID_API_KEY":     "Invalid API key. Run 'bulkctl config set api-key YOUR_KEY' to update it",
	"RATE_LIMIT_EXCEEDED": "Rate limit exceeded. Please wait before retrying",
	"SERVER_ERROR":        "The server is experiencing issues. Please try again later",
	"FORBIDDEN":           "Access to this resource is forbidden",
	"TIMEOUT":             "Request timed out. The operation may still be processing",
	"VALIDATION_ERROR":    "Invalid input provided. Please check your request",
	"NOT_IMPLEMENTED":     "The server does not implement this operation",
}

type APIErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Status  string                 `json:"status"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}

func ParseAPIError(statusCode int, body []byte) error {
	var apiErr APIErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		return createErrorFromAPIResponse(statusCode, apiErr)
	}

	message := strings.TrimSpace(string(body))
	return createErrorFromStatusCode(statusCode, message)
}

func createErrorFromAPIResponse(statusCode int, apiErr APIErrorResponse) error {
	// API may send the error code in either "code" or "error"
	errorCode := strings.ToUpper(apiErr.Code)
	if errorCode == "" {
		errorCode = strings.ToUpper(apiErr.Error)
	}

	switch errorCode {
	case "INVALID_API_KEY", "UNAUTHORIZED":
		return &AuthError{
			Message: StatusMessages["INVALID_API_KEY"],
			Reason:  apiErr.Code,
		}

	case "RATE_LIMIT_EXCEEDED":
		retryAfter := ""
		if apiErr.Details != nil {
			if ra, ok := apiErr.Details["retry_after"].(string); ok {
				retryAfter = ra
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
		}

	case "VALIDATION_ERROR":
		field := ""
		if apiErr.Details != nil {
			if f, ok := apiErr.Details["field"].(string); ok {
				field = f
			}
		}
		message := apiErr.Message
		if message == "" {
			message = StatusMessages["VALIDATION_ERROR"]
		}
		return &ValidationError{
			Field:   field,
			Message: message,
		}
	}

	message := apiErr.Message
	if message == "" {
		message = apiErr.Error
	}

	return createErrorFromStatusCode(statusCode, message)
}

func createErrorFromStatusCode(statusCode int, message string) error {
	var errorType ErrorType

	switch statusCode {
	case 401:
		if message == "" {
			message = StatusMessages["INVALID_API_KEY"]
		}
		return &AuthError{
			Message: message,
			Reason:  "http_401",
		}

	case 403:
		if message == "" {
			message = StatusMessages["FORBIDDEN"]
		}
		return &AuthError{
			Message: message,
			Reason:  "http_403",
		}

	case 404:
		errorType = ErrorTypeNotFound
		if message == "" {
			message = "Resource not found"
		}

	case 405, 501:
		errorType = ErrorTypeUnsupported
		if message == "" {
			message = StatusMessages["NOT_IMPLEMENTED"]
		}

	case 408:
		errorType = ErrorTypeTimeout
		if message == "" {
			message = StatusMessages["TIMEOUT"]
		}

	case 422:
		if message == "" {
			message = StatusMessages["VALIDATION_ERROR"]
		}
		return &ValidationError{
			Message: message,
		}

	case 429:
		errorType = ErrorTypeRateLimit
		if message == "" {
			message = StatusMessages["RATE_LIMIT_EXCEEDED"]
		}

	case 500, 502, 503, 504:
		errorType = ErrorTypeAPI
		if message == "" {
			message = StatusMessages["SERVER_ERROR"]
		}

	default:
		errorType = ErrorTypeUnknown
		if message == "" {
			message = fmt.Sprintf("Unexpected error (status %d)", statusCode)
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Message:    message,
		ErrorType:  errorType,
	}
}

func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrRunInProgress) {
		return "A bulk operation is already running. Wait for it to finish or cancel it first."
	}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return fmt.Sprintf("Could not enumerate the selected items, nothing was changed: %s", FormatUserError(resErr.Err))
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr.Error()
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return fmt.Sprintf("Network error: %v. Please check your connection and try again.", netErr.Err)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return apiErr.Error()
	}

	return err.Error()
}
