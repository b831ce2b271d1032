package fetcher

// Result represents the outcome of a fetch operation.
// It's sent through a channel from worker goroutines
// to the coordinator, which hands it to its sinks.
type Result struct {
	// Key is the Redis-compatible hierarchical key for this data point
	Key string

	// Value is the fetched rate
	Value float64

	// Error contains any error that occurred during the fetch operation.
	// If Error is not nil, Value should be considered invalid.
	Error error
}
