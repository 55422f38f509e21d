package pipeline

import "errors"

var (
	// ErrSchedulerNil is returned when constructing a Pipeline without a
	// scheduler.
	ErrSchedulerNil = errors.New("scheduler cannot be nil")

	// ErrWorkerNil is returned when constructing a Pipeline without a
	// worker.
	ErrWorkerNil = errors.New("worker cannot be nil")
)
