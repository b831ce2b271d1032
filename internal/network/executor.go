package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"resty.dev/v3"

	"coinrates/internal/metrics"
	"coinrates/internal/ratelimit"
)

// Executor issues logical calls against one bound Endpoint, retrying
// transient failures with exponential backoff. It holds no per-call state and
// is safe for concurrent use.
type Executor struct {
	endpoint  Endpoint
	client    *resty.Client
	scheduler Scheduler
	limiter   *ratelimit.Limiter
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithHTTPClient replaces the resty client built from the endpoint
func WithHTTPClient(client *resty.Client) Option {
	return func(e *Executor) {
		e.client = client
	}
}

// WithScheduler replaces the timer used between attempts
func WithScheduler(s Scheduler) Option {
	return func(e *Executor) {
		e.scheduler = s
	}
}

// WithLimiter makes every attempt wait for the endpoint's rate limit
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(e *Executor) {
		e.limiter = l
	}
}

// WithMetrics records attempts, retries and call outcomes
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Executor) {
		e.metrics = c
	}
}

// WithLogger sets the logger, slog.Default() otherwise
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor creates an executor bound to endpoint for its whole lifetime
func NewExecutor(endpoint Endpoint, opts ...Option) (*Executor, error) {
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		endpoint:  endpoint,
		scheduler: TimerScheduler{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = NewHTTPClient(endpoint)
	}
	e.logger = e.logger.With("endpoint", endpoint.Name)

	return e, nil
}

// Endpoint returns the bound endpoint configuration
func (e *Executor) Endpoint() Endpoint {
	return e.endpoint
}

// Close releases the underlying HTTP client
func (e *Executor) Close() error {
	return e.client.Close()
}

// Get issues a GET logical call
func (e *Executor) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return e.Do(ctx, Request{Method: MethodGet, Path: path, Query: query})
}

// Post issues a POST logical call
func (e *Executor) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return e.Do(ctx, Request{Method: MethodPost, Path: path, Body: body})
}

// Put issues a PUT logical call
func (e *Executor) Put(ctx context.Context, path string, body []byte) ([]byte, error) {
	return e.Do(ctx, Request{Method: MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE logical call
func (e *Executor) Delete(ctx context.Context, path string) ([]byte, error) {
	return e.Do(ctx, Request{Method: MethodDelete, Path: path})
}

// Go runs the logical call on its own goroutine and invokes done exactly once
// with the final outcome. Canceling ctx stops any in-flight attempt and any
// pending retry; done then receives a KindCanceled error.
func (e *Executor) Go(ctx context.Context, req Request, done func(Result)) {
	go func() {
		body, err := e.Do(ctx, req)
		done(Result{Body: body, Err: err})
	}()
}

// Do executes one logical call and returns the success body. Every failure is
// a *NetworkError, except for a descriptor that fails validation, which is
// reported as ErrInvalidRequest before any I/O.
//
// Attempts are strictly sequential. After a retryable failure of attempt n the
// executor waits Backoff(n) before attempt n+1, for at most
// Endpoint.MaxRetries retries.
func (e *Executor) Do(ctx context.Context, req Request) ([]byte, error) {
	target, err := req.URL(e.endpoint.BaseURL)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := e.logger.With("method", req.Method, "url", target, "request_id", requestID)

	for attempt := 0; ; attempt++ {
		out := e.attempt(ctx, req, target, requestID, attempt)

		if !out.retry {
			if out.err != nil {
				e.metrics.IncCall(e.endpoint.Name, string(out.err.Kind))
				log.Debug("request failed",
					"attempt", attempt,
					"kind", out.err.Kind,
					"error", out.err.Error())
				return nil, out.err
			}
			e.metrics.IncCall(e.endpoint.Name, "success")
			return out.body, nil
		}

		delay := Backoff(attempt)
		e.metrics.IncRetry(e.endpoint.Name, out.reason)
		log.Debug("retrying request",
			"attempt", attempt,
			"reason", out.reason,
			"status_code", out.status,
			"delay", delay)

		if err := e.scheduler.Wait(ctx, delay); err != nil {
			e.metrics.IncCall(e.endpoint.Name, string(KindCanceled))
			return nil, NewCanceledError(err)
		}
	}
}

// outcome is the classification of a single attempt
type outcome struct {
	body   []byte
	err    *NetworkError
	retry  bool
	reason string
	status int
}

func (e *Executor) attempt(ctx context.Context, req Request, target, requestID string, attempt int) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: NewCanceledError(err)}
	}
	if err := e.limiter.Wait(ctx, e.endpoint.Name); err != nil {
		return outcome{err: NewCanceledError(err)}
	}

	r := e.client.R().
		SetContext(ctx).
		SetHeader(headerRequestID, requestID)
	if req.hasBody() {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(string(req.Method), target)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.metrics.ObserveAttempt(e.endpoint.Name, string(KindCanceled), elapsed)
			return outcome{err: NewCanceledError(ctxErr)}
		}
		e.metrics.ObserveAttempt(e.endpoint.Name, string(KindConnection), elapsed)
		if attempt < e.endpoint.MaxRetries {
			e.logger.Debug("attempt failed with transport error",
				"url", target,
				"attempt", attempt,
				"error", err.Error())
			return outcome{retry: true, reason: string(KindConnection)}
		}
		return outcome{err: NewConnectionError(err)}
	}

	out := classify(resp.StatusCode(), resp.Bytes(), attempt, e.endpoint.MaxRetries)
	e.metrics.ObserveAttempt(e.endpoint.Name, attemptLabel(out), elapsed)
	return out
}

// classify maps a received response onto the retry policy:
//
//	2xx with body             -> success
//	2xx without body          -> InvalidResponse
//	5xx, decodable error body -> retry while attempts remain, then ServiceException
//	5xx, undecodable body     -> DecodingError, not retried
//	anything else             -> ServiceException if decodable, else InvalidResponse
func classify(status int, body []byte, attempt, maxRetries int) outcome {
	switch {
	case status >= 200 && status <= 299:
		if len(body) == 0 {
			return outcome{err: NewInvalidResponseError(status), status: status}
		}
		return outcome{body: body, status: status}

	case status >= 500 && status <= 599:
		svc, err := decodeServiceException(body)
		if err != nil {
			return outcome{err: NewDecodingError(status, err), status: status}
		}
		if attempt < maxRetries {
			return outcome{retry: true, reason: "server_error", status: status}
		}
		return outcome{err: NewServiceError(status, svc), status: status}

	default:
		svc, err := decodeServiceException(body)
		if err != nil {
			return outcome{err: NewInvalidResponseError(status), status: status}
		}
		return outcome{err: NewServiceError(status, svc), status: status}
	}
}

func attemptLabel(out outcome) string {
	switch {
	case out.retry:
		return "server_error"
	case out.err != nil:
		return string(out.err.Kind)
	default:
		return "success"
	}
}

var errMissingErrorField = errors.New(`missing "error" field`)

// decodeServiceException strictly decodes {"error": "<string>"}
func decodeServiceException(body []byte) (ServiceException, error) {
	var raw struct {
		Error *string `json:"error"`
	}
	if len(body) == 0 {
		return ServiceException{}, errors.New("empty error body")
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ServiceException{}, fmt.Errorf("decode error body: %w", err)
	}
	if raw.Error == nil {
		return ServiceException{}, errMissingErrorField
	}
	return ServiceException{Message: *raw.Error}, nil
}
