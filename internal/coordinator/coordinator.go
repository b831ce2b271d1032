package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"coinrates/internal/fetcher"
)

// Sink receives every fetch result
type Sink interface {
	Deliver(ctx context.Context, result fetcher.Result) error
}

// Coordinator manages concurrent fetchers and hands results to sinks
type Coordinator struct {
	fetchers []fetcher.Fetcher
	sinks    []Sink
}

// New creates a new Coordinator with the given fetchers and sinks
func New(fetchers []fetcher.Fetcher, sinks ...Sink) *Coordinator {
	return &Coordinator{
		fetchers: fetchers,
		sinks:    sinks,
	}
}

// Run executes all fetchers concurrently. Each fetcher runs in its own
// goroutine and sends its result to a shared channel; results are delivered
// to every sink as they arrive. A failing fetcher or sink does not stop the
// others. Run returns the collected results in arrival order.
func (c *Coordinator) Run(ctx context.Context) ([]fetcher.Result, error) {
	if len(c.fetchers) == 0 {
		return nil, fmt.Errorf("no fetchers configured")
	}

	resultChan := make(chan fetcher.Result, len(c.fetchers))

	var wg sync.WaitGroup

	for _, f := range c.fetchers {
		wg.Add(1)
		go func(ft fetcher.Fetcher) {
			defer wg.Done()

			value, err := ft.Fetch(ctx)

			resultChan <- fetcher.Result{
				Key:   ft.Key(),
				Value: value,
				Error: err,
			}
		}(f)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]fetcher.Result, 0, len(c.fetchers))
	for result := range resultChan {
		results = append(results, result)
		for _, sink := range c.sinks {
			if err := sink.Deliver(ctx, result); err != nil {
				slog.Warn("sink delivery failed", "key", result.Key, "error", err)
			}
		}
	}

	return results, nil
}

// PrintSink writes results as lines in the format:
//   - Success: "KEY: VALUE"
//   - Error: "KEY: ERROR - error message"
type PrintSink struct {
	w  io.Writer
	mu sync.Mutex
}

// NewPrintSink creates a sink writing to w
func NewPrintSink(w io.Writer) *PrintSink {
	return &PrintSink{w: w}
}

// Deliver writes one result line
func (p *PrintSink) Deliver(_ context.Context, result fetcher.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if result.Error != nil {
		_, err = fmt.Fprintf(p.w, "%s: ERROR - %v\n", result.Key, result.Error)
	} else {
		_, err = fmt.Fprintf(p.w, "%s: %s\n", result.Key, FormatRate(result.Value))
	}
	return err
}
