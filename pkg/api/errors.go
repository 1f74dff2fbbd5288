package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSettingsNotReady marks the latest-settings 404 the backend returns
// while a device has not reported its configuration since backend start.
var ErrSettingsNotReady = errors.New("settings not available yet")

// APIError carries the backend's error envelope alongside the HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}

	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend, meaning the
// stored token expired or never worked.
func IsUnauthorized(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
