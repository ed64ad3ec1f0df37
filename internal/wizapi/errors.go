// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wizapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced to the download coordinator. ErrAuth is global and
// fatal for the run; the others fail only the document they occurred on.
var (
	// ErrAuth means the service rejected our token even after one refresh.
	ErrAuth = errors.New("authentication rejected")

	// ErrNotFound means the requested document or attachment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermission means the account may not read the requested document.
	ErrPermission = errors.New("permission denied")

	// ErrTransient wraps a failure that persisted through the retry budget:
	// network errors, throttling, or 5xx responses.
	ErrTransient = errors.New("transient fetch failure")
)

// statusError converts a non-2xx HTTP status into the matching error kind.
func statusError(status int, url string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("HTTP 401 from %s: %w", url, ErrAuth)
	case http.StatusForbidden:
		return fmt.Errorf("HTTP 403 from %s: %w", url, ErrPermission)
	case http.StatusNotFound:
		return fmt.Errorf("HTTP 404 from %s: %w", url, ErrNotFound)
	default:
		return fmt.Errorf("HTTP %d from %s: %w", status, url, ErrTransient)
	}
}
