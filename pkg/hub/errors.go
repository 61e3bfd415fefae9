package hub

import (
	"errors"
	"fmt"
	"net/http"
)

// Error categories. Every error returned by a Client matches at most one of
// these with errors.Is.
var (
	// ErrInvalidArgument reports malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthenticated reports that no valid token could be obtained.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrRequestFailed reports a non-success HTTP status on a hub call.
	ErrRequestFailed = errors.New("request failed")
	// ErrMalformedResponse reports a response that could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")
)

// RequestError is returned when the hub answers with a non-success status.
type RequestError struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Path       string `json:"path"        yaml:"path"`
	Body       string `json:"body"        yaml:"body"`
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = "unknown status"
	}

	if e.Body == "" {
		return fmt.Sprintf("%s: %s returned %d %s", ErrRequestFailed, e.Path, e.StatusCode, text)
	}

	return fmt.Sprintf("%s: %s returned %d %s: %s", ErrRequestFailed, e.Path, e.StatusCode, text, e.Body)
}

// Is makes errors.Is(err, ErrRequestFailed) true for any RequestError.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// IsRequestFailed checks if the error is a non-success hub response.
func IsRequestFailed(err error) bool {
	return errors.Is(err, ErrRequestFailed)
}

// IsUnauthenticated checks if the error is an authentication failure.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsNotFound checks if the hub answered 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a RequestError.
func StatusCode(err error) int {
	reqErr := &RequestError{}
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}

	return 0
}
