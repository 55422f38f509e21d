package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TaskQueue is the enqueue/cancel/list API over a Broker. It owns task
// identity and recurrence metadata but keeps no state of its own: every
// mutation goes straight to the broker and can be reconstructed from it.
type TaskQueue struct {
	broker   Broker
	timezone *time.Location
	logger   *slog.Logger
}

// TaskQueueOption configures a TaskQueue.
type TaskQueueOption func(*TaskQueue)

// WithTimezone sets the canonical timezone used to evaluate recurring
// patterns registered through this queue.
func WithTimezone(loc *time.Location) TaskQueueOption {
	return func(q *TaskQueue) {
		if loc != nil {
			q.timezone = loc
		}
	}
}

// WithConfig applies env-derived settings to the queue. An unknown
// timezone name keeps the current value rather than failing construction.
func WithConfig(cfg Config) TaskQueueOption {
	return func(q *TaskQueue) {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			q.timezone = loc
		}
	}
}

// WithLogger sets the logger for the queue.
func WithLogger(logger *slog.Logger) TaskQueueOption {
	return func(q *TaskQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// NewTaskQueue creates a TaskQueue over the given broker. The default
// timezone for recurring patterns is DefaultTimezone.
func NewTaskQueue(broker Broker, opts ...TaskQueueOption) (*TaskQueue, error) {
	if broker == nil {
		return nil, ErrBrokerNil
	}

	tz, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		tz = time.UTC
	}

	q := &TaskQueue{
		broker:   broker,
		timezone: tz,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority    Priority
	maxAttempts int8
	delay       time.Duration
	runAt       *time.Time
}

// WithPriority sets the priority for the task.
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithMaxAttempts sets the maximum number of attempts (1-10).
// Capped at 10 to prevent infinite retry loops on persistent failures.
func WithMaxAttempts(n int8) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 1 && n <= 10 {
			o.maxAttempts = n
		}
	}
}

// WithDelay makes the task eligible only after the given duration.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithRunAt makes the task eligible at a specific time.
func WithRunAt(runAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.runAt = &runAt
	}
}

// Enqueue adds a one-off task. At most one of WithDelay/WithRunAt may be
// given; with neither the task is eligible immediately. A broker failure
// surfaces as ErrQueueUnavailable and must not crash the caller's request
// path.
func (q *TaskQueue) Enqueue(ctx context.Context, taskType string, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}

	options := &enqueueOptions{
		priority:    PriorityDefault,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.delay > 0 && options.runAt != nil {
		return uuid.Nil, ErrConflictingSchedule
	}
	if !options.priority.Valid() {
		return uuid.Nil, ErrInvalidPriority
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	scheduledAt := time.Now()
	if options.runAt != nil {
		scheduledAt = *options.runAt
	} else if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	task := &Task{
		ID:          uuid.New(),
		Type:        taskType,
		Payload:     payloadBytes,
		Status:      TaskStatusPending,
		Priority:    options.priority,
		MaxAttempts: options.maxAttempts,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}

	if err := q.broker.CreateTask(ctx, task); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create task %q: %w", taskType, err)
	}

	q.logger.Debug("task enqueued",
		slog.String("task_id", task.ID.String()),
		slog.String("task_type", taskType),
		slog.Time("scheduled_at", scheduledAt))

	return task.ID, nil
}

// RecurringOption configures a single ScheduleRecurring call.
type RecurringOption func(*recurringOptions)

type recurringOptions struct {
	timezone *time.Location
}

// WithRecurringTimezone anchors the pattern's wall-clock fields to the
// given location instead of the queue's configured timezone.
func WithRecurringTimezone(loc *time.Location) RecurringOption {
	return func(o *recurringOptions) {
		if loc != nil {
			o.timezone = loc
		}
	}
}

// ScheduleRecurring registers a recurring trigger under a logical name.
// Re-invoking with the same name replaces the previous trigger atomically,
// so registration is idempotent. The returned id identifies the stored
// definition and can be passed to Cancel.
func (q *TaskQueue) ScheduleRecurring(ctx context.Context, name, taskType string, payload any, schedule Schedule, opts ...RecurringOption) (uuid.UUID, error) {
	if name == "" {
		return uuid.Nil, errors.New("recurring definition name cannot be empty")
	}
	if schedule == nil {
		return uuid.Nil, errors.New("schedule cannot be nil")
	}

	options := &recurringOptions{timezone: q.timezone}
	for _, opt := range opts {
		opt(options)
	}

	var payloadBytes json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
		}
		payloadBytes = b
	}

	def := &RecurringDefinition{
		ID:        uuid.New(),
		Name:      name,
		TaskType:  taskType,
		Payload:   payloadBytes,
		Pattern:   schedule.Pattern(),
		Timezone:  options.timezone.String(),
		Priority:  PriorityDefault,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := q.broker.UpsertRecurring(ctx, def); err != nil {
		return uuid.Nil, fmt.Errorf("failed to register recurring trigger %q: %w", name, err)
	}

	q.logger.Info("recurring trigger registered",
		slog.String("definition_id", def.ID.String()),
		slog.String("name", name),
		slog.String("task_type", taskType),
		slog.String("schedule", schedule.String()),
		slog.String("timezone", def.Timezone))

	return def.ID, nil
}

// Cancel cancels a pending one-off task or a recurring definition by id.
// Returns true when something was cancelled. Cancelling a recurring
// definition stops future firings but leaves already-dispatched executions
// alone; cancelling an already-active task has no effect.
func (q *TaskQueue) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	err := q.broker.CancelTask(ctx, id)
	switch {
	case err == nil:
		q.logger.Info("task cancelled", slog.String("task_id", id.String()))
		return true, nil
	case errors.Is(err, ErrTaskNotCancellable):
		return false, nil
	case errors.Is(err, ErrTaskNotFound):
		// Not a one-off task, try recurring definitions
	default:
		return false, err
	}

	err = q.broker.CancelRecurring(ctx, id)
	switch {
	case err == nil:
		q.logger.Info("recurring trigger cancelled", slog.String("definition_id", id.String()))
		return true, nil
	case errors.Is(err, ErrDefinitionNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ListPending returns pending tasks matching the filter.
func (q *TaskQueue) ListPending(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	filter.Status = TaskStatusPending
	return q.broker.ListTasks(ctx, filter)
}
