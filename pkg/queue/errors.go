package queue

import "errors"

// Common errors
var (
	// ErrQueueUnavailable is returned when the broker cannot be reached.
	// Callers must treat this as non-fatal: log, degrade, continue.
	ErrQueueUnavailable = errors.New("task queue broker is unavailable")

	// ErrBrokerNil is returned when a nil broker is provided
	ErrBrokerNil = errors.New("broker cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrInvalidPriority is returned when priority is outside valid range
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrConflictingSchedule is returned when both a delay and an absolute
	// run time are supplied for the same task
	ErrConflictingSchedule = errors.New("delay and run-at time are mutually exclusive")

	// ErrTaskNotFound is returned when a task id is unknown to the broker
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotCancellable is returned when cancelling a task that has
	// already been picked up or finished
	ErrTaskNotCancellable = errors.New("task is no longer pending and cannot be cancelled")

	// ErrDefinitionNotFound is returned when a recurring definition id is unknown
	ErrDefinitionNotFound = errors.New("recurring definition not found")

	// ErrNoTaskToClaim is returned by brokers when no eligible task exists
	ErrNoTaskToClaim = errors.New("no task available to claim")

	// ErrUnknownTaskType is returned when no handler is registered for a task type
	ErrUnknownTaskType = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrInvalidPattern is returned when a calendar pattern cannot be parsed
	ErrInvalidPattern = errors.New("invalid calendar pattern")

	// ErrInvalidTimezone is returned when a timezone name cannot be resolved
	ErrInvalidTimezone = errors.New("invalid timezone")
)
