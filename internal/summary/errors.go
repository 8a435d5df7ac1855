package summary

import (
	"errors"
	"fmt"
)

var (
	// ErrAPI wraps non-200 answers from the completion endpoint.
	ErrAPI = errors.New("summarization api error")
	// ErrParse reports a response body without a usable answer.
	ErrParse = errors.New("summarization response could not be parsed")
	// ErrTransport reports a failed or timed-out request.
	ErrTransport = errors.New("summarization request failed")
	// ErrDisabled is returned when no provider is configured.
	ErrDisabled = errors.New("summarization is disabled")
)

// APIError carries the status and body of a rejected completion request.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("summarization api error: status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return ErrAPI
}
