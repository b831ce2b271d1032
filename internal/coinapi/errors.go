package coinapi

import (
	"errors"
	"fmt"

	"coinrates/internal/network"
)

// ErrorKind separates payload decoding failures from transport failures
type ErrorKind string

const (
	// KindDecode indicates the success body did not match the declared record
	KindDecode ErrorKind = "decode"
	// KindNetwork indicates the executor failed; Network holds the cause
	KindNetwork ErrorKind = "network"
)

// ErrMissingParameter is returned when a required path or query parameter is empty
var ErrMissingParameter = errors.New("missing parameter")

const decodeFailureMessage = "failure for decoding data"

// Error is returned by every Client operation
type Error struct {
	Kind ErrorKind

	// Message and Detail describe a decode failure
	Message string
	Detail  string

	// Network is set for KindNetwork
	Network *network.NetworkError

	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch e.Kind {
	case KindDecode:
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	default:
		if e.Network != nil {
			return e.Network.Error()
		}
		return fmt.Sprintf("network error: %v", e.Err)
	}
}

// Unwrap exposes the underlying network error to errors.As
func (e *Error) Unwrap() error {
	if e.Network != nil {
		return e.Network
	}
	return e.Err
}

func newDecodeError(cause error) *Error {
	return &Error{
		Kind:    KindDecode,
		Message: decodeFailureMessage,
		Detail:  cause.Error(),
		Err:     cause,
	}
}

func newNetworkError(cause error) *Error {
	var netErr *network.NetworkError
	if errors.As(cause, &netErr) {
		return &Error{Kind: KindNetwork, Network: netErr}
	}
	return &Error{Kind: KindNetwork, Err: cause}
}
