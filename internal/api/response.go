package api

import (
	"io"
	"net/http"

	"github.com/bulkctl/bulkctl/internal/errors"
)

const maxErrorBody = 64 * 1024

// ValidateResponse validates HTTP response status codes and returns an error if not valid
func ValidateResponse(resp *http.Response, allowedCodes ...int) error {
	if len(allowedCodes) == 0 {
		allowedCodes = []int{http.StatusOK}
	}

	for _, code := range allowedCodes {
		if resp.StatusCode == code {
			return nil
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errors.ParseAPIError(resp.StatusCode, body)
}

// ValidateResponseOK validates that the response status is 200 OK
func ValidateResponseOK(resp *http.Response) error {
	return ValidateResponse(resp, http.StatusOK)
}

// ValidateResponseAccepted allows the statuses a start or mutate call may return
func ValidateResponseAccepted(resp *http.Response) error {
	return ValidateResponse(resp, http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent)
}
