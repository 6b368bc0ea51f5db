package groq

import (
	"errors"
	"fmt"
)

// Fallback values used when the API error envelope is incomplete or unreadable.
const (
	unknownErrorMessage = "Unknown error"
	unknownErrorType    = "unknown_error"
	requestErrorType    = "request_error"
)

// ErrorKind classifies a failure returned by the client.
type ErrorKind string

const (
	KindAPI             ErrorKind = "api_error"
	KindTransport       ErrorKind = "transport_error"
	KindDeserialization ErrorKind = "deserialization_error"
	KindUnknown         ErrorKind = "unknown"
)

// APIError is returned when the service answers with a non-success status.
type APIError struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("groq api error (%s): %s", e.Type, e.Message)
}

// TransportError is returned when the request could not be built, sent, or
// its body read, before a usable status was obtained.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return "groq transport error: " + e.Err.Error()
	}
	return fmt.Sprintf("groq transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeserializationError is returned when a successful response body does not
// match the expected shape. Body holds the raw payload for inspection.
type DeserializationError struct {
	Target string
	Err    error
	Body   []byte
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("groq deserialization error: decoding %s: %v", e.Target, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// KindOf reports which branch of the error taxonomy err belongs to.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	var transportErr *TransportError
	var decodeErr *DeserializationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return KindAPI
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &decodeErr):
		return KindDeserialization
	default:
		return KindUnknown
	}
}

func newTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func newDeserializationError(target string, body []byte, err error) *DeserializationError {
	return &DeserializationError{Target: target, Err: err, Body: body}
}
