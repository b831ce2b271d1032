package network

import (
	"resty.dev/v3"
)

const (
	headerRequestID = "X-Request-ID"
)

// standardHeaders are attached to every request
var standardHeaders = map[string]string{
	"Content-Type":     "application/json",
	"Accept":           "application/json",
	"Accept-Encoding":  "application/json",
	"X-Requested-With": "json",
}

// NewHTTPClient creates a resty client bound to the endpoint: base URL,
// standard headers, API key and per-attempt timeout. Retries are left to the
// Executor, so resty's own retry count stays at zero.
func NewHTTPClient(endpoint Endpoint) *resty.Client {
	client := resty.New().
		SetBaseURL(endpoint.BaseURL).
		SetHeaders(standardHeaders).
		SetHeader(endpoint.apiKeyHeader(), endpoint.Token).
		SetTimeout(endpoint.Timeout).
		SetRetryCount(0)

	return client
}
