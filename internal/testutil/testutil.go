package testutil

import (
	"context"
	"sync"
	"time"

	"coinrates/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context) (float64, error)
	KeyFunc   func() string
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) (float64, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return 0, nil
}

// Key implements the Fetcher interface
func (m *MockFetcher) Key() string {
	if m.KeyFunc != nil {
		return m.KeyFunc()
	}
	return "mock:key"
}

// NewMockFetcher creates a simple mock fetcher with predefined values
func NewMockFetcher(key string, value float64, err error) fetcher.Fetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context) (float64, error) {
			return value, err
		},
		KeyFunc: func() string {
			return key
		},
	}
}

// RecordingScheduler records requested backoff delays and returns at once,
// so retry tests do not sleep
type RecordingScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Wait records d and returns the context error, if any
func (s *RecordingScheduler) Wait(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Delays returns a copy of the recorded delays
func (s *RecordingScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
