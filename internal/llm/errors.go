package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMessageInResponse is returned when a well-formed response carries
	// no choices or message content.
	ErrNoMessageInResponse = errors.New("no message found in response")

	// ErrEmptyAPIKey is returned by CompleteStream before any transport call
	// when no API key is configured.
	ErrEmptyAPIKey = errors.New("api key is not configured")
)

// InvalidEndpointError indicates the configured base URL could not be turned
// into a request URL.
type InvalidEndpointError struct {
	URL string
	Err error
}

func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint %q: %v", e.URL, e.Err)
}

func (e *InvalidEndpointError) Unwrap() error { return e.Err }

// NetworkError indicates a transport-level failure before a response status
// was available.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError indicates a non-2xx response. Body holds the raw response body
// for diagnostics; it is not guaranteed to be parseable.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}

// DecodingError indicates a 2xx response whose body did not match the
// expected schema.
type DecodingError struct {
	Err  error
	Body string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// StreamError indicates a failure specific to the streaming path, such as a
// broken body mid-stream or a response that carried no events at all.
type StreamError struct {
	Message string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stream error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("stream error: %s", e.Message)
}

func (e *StreamError) Unwrap() error { return e.Err }
