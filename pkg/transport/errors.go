package transport

import (
	"errors"
	"fmt"
)

// ErrInvalidJSON is returned when a 2xx response body is not valid JSON.
var ErrInvalidJSON = errors.New("transport: response body is not valid JSON")

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}
