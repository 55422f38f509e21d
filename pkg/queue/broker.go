package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Broker abstracts the durable, at-least-once delivery store behind the
// task queue. Implementations must support delayed visibility (a task with
// a future ScheduledAt is not claimable until that time) and recurring
// definitions that the broker itself materializes into pending tasks.
//
// A broker that cannot reach its backing store reports the failure with an
// error wrapping ErrQueueUnavailable; it never silently drops a mutation.
type Broker interface {
	// CreateTask persists a new task.
	CreateTask(ctx context.Context, task *Task) error

	// ClaimTask atomically claims the next eligible pending task from the
	// queue, marks it active, and locks it for lockDuration. Returns
	// ErrNoTaskToClaim when nothing is eligible.
	ClaimTask(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Task, error)

	// CompleteTask marks an active task completed and records its result.
	CompleteTask(ctx context.Context, taskID uuid.UUID, result []byte) error

	// FailTask records a failed attempt. Tasks with attempts left are reset
	// to pending with a retry backoff; exhausted tasks become failed.
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error

	// CancelTask cancels a pending task. Returns ErrTaskNotCancellable if
	// the task has already been picked up or finished.
	CancelTask(ctx context.Context, taskID uuid.UUID) error

	// ListTasks returns tasks matching the filter, newest first.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)

	// UpsertRecurring stores a recurring definition, replacing any existing
	// definition with the same name in a single step so there is no window
	// where two triggers with one name are live.
	UpsertRecurring(ctx context.Context, def *RecurringDefinition) error

	// CancelRecurring removes a recurring definition by id, stopping all
	// future firings. Already-materialized tasks are unaffected.
	CancelRecurring(ctx context.Context, defID uuid.UUID) error

	// ListRecurring returns all stored recurring definitions.
	ListRecurring(ctx context.Context) ([]*RecurringDefinition, error)

	// MoveToDeadLetter moves a task that exhausted retries aside for
	// manual inspection.
	MoveToDeadLetter(ctx context.Context, taskID uuid.UUID) error

	// ExtendLock extends the lock of a long-running active task.
	ExtendLock(ctx context.Context, taskID uuid.UUID, duration time.Duration) error
}
