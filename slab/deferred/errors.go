package deferred

import "errors"

var (
	// ErrQueueFull indicates the queue reached its configured limit.
	ErrQueueFull = errors.New("deferred: queue full")

	// ErrInvalidDelta indicates a delta other than +1 or -1.
	ErrInvalidDelta = errors.New("deferred: delta must be +1 or -1")
)
