package imagehost

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by every error caused by a 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is matched by every error caused by a 404 response.
	ErrNotFound = errors.New("not found")
	// ErrInvalidResponse is returned when a response body has an unexpected shape.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrTransport is matched by network and transport failures.
	ErrTransport = errors.New("transport failure")
)

// APIError is a non-2xx response of the API.
type APIError struct {
	StatusCode int
	// Message is the message supplied by the server, empty if there was none.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d", e.StatusCode)
}

// Is lets errors.Is match the status based sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsUnauthorized reports whether err was caused by a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Message returns a human readable message for err, preferring the message
// supplied by the server. fallback is used for everything else.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrInvalidResponse) {
		return "Invalid response from server"
	}
	return fallback
}
