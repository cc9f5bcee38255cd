package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransient marks provider failures that are worth retrying: network
// timeouts, rate limits, server-side errors. Test with errors.Is.
var ErrTransient = errors.New("transient provider error")

// ErrInvalidInput marks malformed or empty request input. Not retried.
var ErrInvalidInput = errors.New("invalid input")

// APIError is an HTTP-level failure from a model API.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, http.StatusText(e.Status), e.Body)
}

// Is reports rate limits and 5xx responses as ErrTransient so callers can
// match with errors.Is without inspecting status codes.
func (e *APIError) Is(target error) bool {
	if target != ErrTransient {
		return false
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}
