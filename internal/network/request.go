package network

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Method is an HTTP verb supported by the executor
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// ErrInvalidRequest is returned for a descriptor that cannot be sent
var ErrInvalidRequest = errors.New("invalid request")

// Request describes one logical call. The same value is replayed verbatim on
// every retry attempt.
type Request struct {
	Method Method
	// Path is relative to the endpoint base URL
	Path string
	// Query is only sent with GET requests
	Query map[string]string
	// Body is only sent with POST and PUT requests
	Body []byte
}

// Validate checks that the descriptor can be resolved against a base URL
func (r Request) Validate() error {
	switch r.Method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, r.Method)
	}

	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRequest)
	}

	u, err := url.Parse(r.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if u.IsAbs() || u.Host != "" {
		return fmt.Errorf("%w: path %q must be relative", ErrInvalidRequest, r.Path)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%w: path %q carries a query string, use Query", ErrInvalidRequest, r.Path)
	}
	return nil
}

// URL joins base and the request path. For GET requests the query parameters
// are appended percent-encoded and sorted by key.
func (r Request) URL(base string) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	full := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")

	if r.Method == MethodGet && len(r.Query) > 0 {
		values := url.Values{}
		for k, v := range r.Query {
			values.Set(k, v)
		}
		full += "?" + values.Encode()
	}
	return full, nil
}

func (r Request) hasBody() bool {
	return len(r.Body) > 0 && (r.Method == MethodPost || r.Method == MethodPut)
}
