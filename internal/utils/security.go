// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package utils

import (
	"fmt"
	"strings"
)

const bearerPrefix = "Bearer "

// MaskAPIKey keeps the first four characters of a key (two for short keys)
func MaskAPIKey(apiKey string) string {
	switch n := len(apiKey); {
	case n == 0:
		return ""
	case n <= 2:
		return strings.Repeat("*", n)
	case n <= 8:
		return apiKey[:2] + strings.Repeat("*", n-2)
	default:
		return apiKey[:4] + strings.Repeat("*", n-4)
	}
}

// RedactAuthHeader masks the credential part of an Authorization header for logging
func RedactAuthHeader(headerValue string) string {
	if headerValue == "" {
		return ""
	}
	scheme, credential, ok := strings.Cut(headerValue, " ")
	if !ok {
		return MaskAPIKey(headerValue)
	}
	return scheme + " " + MaskAPIKey(credential)
}

// SanitizeErrorMessage renders err with the API key and any bearer token masked
func SanitizeErrorMessage(err error, apiKey string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	if apiKey != "" {
		msg = strings.ReplaceAll(msg, apiKey, MaskAPIKey(apiKey))
	}

	idx := strings.Index(msg, bearerPrefix)
	if idx < 0 {
		return msg
	}
	start := idx + len(bearerPrefix)
	end := start
	for end < len(msg) && msg[end] != ' ' && msg[end] != '"' {
		end++
	}
	if end == start {
		return msg
	}
	return msg[:start] + MaskAPIKey(msg[start:end]) + msg[end:]
}

// ValidateAPIKeyFormat rejects keys that are obviously malformed without echoing them back
func ValidateAPIKeyFormat(apiKey string) error {
	key := strings.TrimPrefix(apiKey, bearerPrefix)
	switch {
	case key == "":
		return fmt.Errorf("API key is required")
	case strings.ContainsAny(key, " \t\n"):
		return fmt.Errorf("API key contains invalid characters")
	case len(key) < 10:
		return fmt.Errorf("invalid API key format")
	}
	return nil
}
