package scheduler

import "errors"

// ErrQueueNil is returned when constructing a Scheduler without a queue.
var ErrQueueNil = errors.New("task queue cannot be nil")
