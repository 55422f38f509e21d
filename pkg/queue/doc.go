// Package queue provides a durable task queue with first-class support for
// immediate, delayed, and calendar-recurring execution.
//
// The package is organised around three main components:
//
//   - TaskQueue: enqueue/cancel/list API over a Broker; owns task identity
//     and recurrence metadata
//   - Broker: the durable at-least-once store (memory, Redis, and
//     PostgreSQL implementations ship with the package)
//   - Worker: claims pending tasks and dispatches them to typed Handlers
//
// Recurring firings are driven by the broker's delayed-visibility
// mechanism: a RecurringDefinition stores a cron pattern and timezone, and
// the broker materializes each due firing into an ordinary pending task.
// Correctness therefore does not depend on process uptime between firings,
// and re-registering a definition under the same name replaces the trigger
// instead of duplicating it.
//
// Delivery is at-least-once: a handler may observe duplicate executions
// after a worker crash, so handlers must be idempotent or tolerate
// duplicates. Cancelling a pending task guarantees its handler never runs;
// cancelling after pick-up has no effect on the in-flight execution.
//
// Broker unavailability is reported as ErrQueueUnavailable. It is a
// degradation signal, not a fatal condition: enqueue paths log and
// continue, and the worker simply retries on its next tick.
package queue
