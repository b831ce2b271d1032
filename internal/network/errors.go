package network

import (
	"fmt"
)

// ErrorKind represents the category of a failed logical call
type ErrorKind string

const (
	// KindConnection indicates no response was received after all retries (DNS, connect, timeout)
	KindConnection ErrorKind = "connection"
	// KindInvalidResponse indicates a response that is neither a success nor a structured failure
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindDecoding indicates a payload failed to parse into the expected shape
	KindDecoding ErrorKind = "decoding"
	// KindService indicates the upstream returned a well-formed structured error
	KindService ErrorKind = "service"
	// KindCanceled indicates the caller canceled the call before it completed
	KindCanceled ErrorKind = "canceled"
)

// ServiceException is the structured error body returned by the upstream API
type ServiceException struct {
	Message string `json:"error"`
}

// NetworkError is the only error type returned by the executor
type NetworkError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Service    *ServiceException
	Cause      error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	msg := e.Message
	if e.Kind == KindService && e.Service != nil {
		msg = e.Service.Message
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether showing a retry affordance to the user makes
// sense. The executor has already exhausted its own retries by the time this
// error is returned.
func (e *NetworkError) Retryable() bool {
	switch e.Kind {
	case KindConnection:
		return true
	case KindService:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// NewConnectionError creates a connection error
func NewConnectionError(cause error) *NetworkError {
	msg := "network request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &NetworkError{
		Kind:    KindConnection,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidResponseError creates an invalid response error
func NewInvalidResponseError(statusCode int) *NetworkError {
	return &NetworkError{
		Kind:       KindInvalidResponse,
		StatusCode: statusCode,
		Message:    "invalid response",
	}
}

// NewDecodingError creates a decoding error
func NewDecodingError(statusCode int, cause error) *NetworkError {
	msg := "failed to decode response"
	if cause != nil {
		msg = cause.Error()
	}
	return &NetworkError{
		Kind:       KindDecoding,
		StatusCode: statusCode,
		Message:    msg,
		Cause:      cause,
	}
}

// NewServiceError creates a service exception error
func NewServiceError(statusCode int, body ServiceException) *NetworkError {
	return &NetworkError{
		Kind:       KindService,
		StatusCode: statusCode,
		Message:    body.Message,
		Service:    &body,
	}
}

// NewCanceledError creates a cancellation error
func NewCanceledError(cause error) *NetworkError {
	return &NetworkError{
		Kind:    KindCanceled,
		Message: "request canceled",
		Cause:   cause,
	}
}
