package network

// Result is the outcome of one logical call as delivered to an async
// completion. Exactly one of Body and Err is meaningful.
type Result struct {
	// Body is the raw success payload
	Body []byte

	// Err is a *NetworkError, or an ErrInvalidRequest wrap for a descriptor
	// that could not be sent at all
	Err error
}

// OK reports whether the call succeeded
func (r Result) OK() bool {
	return r.Err == nil
}
