// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       []byte
		wantType   string
		wantMsg    string
	}{
		{
			name:       "auth error with JSON response",
			statusCode: 401,
			body:       []byte(`{"code":"INVALID_API_KEY","message":"Invalid API key provided"}`),
			wantType:   "*errors.AuthError",
			wantMsg:    "authentication failed: Invalid API key. Run 'bulkctl config set api-key YOUR_KEY' to update it (INVALID_API_KEY)",
		},
		{
			name:       "rate limit error",
			statusCode: 429,
			body:       []byte(`{"code":"RATE_LIMIT_EXCEEDED","details":{"retry_after":"60s"}}`),
			wantType:   "*errors.RateLimitError",
			wantMsg:    "rate limit exceeded. Please wait 60s before retrying",
		},
		{
			name:       "server error with plain text",
			statusCode: 500,
			body:       []byte("Internal server error"),
			wantType:   "*errors.APIError",
			wantMsg:    "Internal server error (status 500)",
		},
		{
			name:       "not found error",
			statusCode: 404,
			body:       []byte(""),
			wantType:   "*errors.APIError",
			wantMsg:    "Resource not found (status 404)",
		},
		{
			name:       "not implemented",
			statusCode: 501,
			body:       []byte(""),
			wantType:   "*errors.APIError",
			wantMsg:    "The server does not implement this operation (status 501)",
		},
		{
			name:       "validation error",
			statusCode: 422,
			body:       []byte(`{"code":"VALIDATION_ERROR","message":"Invalid field value","details":{"field":"action"}}`),
			wantType:   "*errors.ValidationError",
			wantMsg:    "validation error for field 'action': Invalid field value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseAPIError(tt.statusCode, tt.body)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, fmt.Sprintf("%T", err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestParseAPIError_UnsupportedStatuses(t *testing.T) {
	for _, code := range []int{404, 405, 501} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			assert.True(t, IsUnsupported(ParseAPIError(code, nil)))
		})
	}
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{
			name: "run in progress",
			err:  fmt.Errorf("apply: %w", ErrRunInProgress),
			want: "A bulk operation is already running. Wait for it to finish or cancel it first.",
		},
		{
			name: "resolution",
			err:  &ResolutionError{Page: 2, Err: &APIError{StatusCode: 500, Message: "db down"}},
			want: "Could not enumerate the selected items, nothing was changed: db down",
		},
		{
			name: "api message",
			err:  &APIError{StatusCode: 400, Message: "bad filter"},
			want: "bad filter",
		},
		{
			name: "network",
			err:  &NetworkError{Err: fmt.Errorf("connection refused")},
			want: "Network error: connection refused. Please check your connection and try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}
