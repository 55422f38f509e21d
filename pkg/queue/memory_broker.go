package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBrokerOption configures a MemoryBroker.
type MemoryBrokerOption func(*MemoryBroker)

// WithMemoryClock overrides the broker's time source. Used by tests to
// drive delayed visibility and recurring firings deterministically.
func WithMemoryClock(now func() time.Time) MemoryBrokerOption {
	return func(mb *MemoryBroker) {
		if now != nil {
			mb.now = now
		}
	}
}

// WithSweepInterval sets how often the background sweep runs.
func WithSweepInterval(d time.Duration) MemoryBrokerOption {
	return func(mb *MemoryBroker) {
		if d > 0 {
			mb.sweepInterval = d
		}
	}
}

// MemoryBroker is an in-memory Broker for tests and local development.
// It honors the full broker contract, including delayed visibility,
// recurring definition materialization, and lock expiration.
type MemoryBroker struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
	defs  map[uuid.UUID]*RecurringDefinition
	dead  map[uuid.UUID]*DeadTask

	// Parsed patterns, keyed by definition id. Rebuilt on upsert.
	schedules map[uuid.UUID]Schedule

	now           func() time.Time
	sweepInterval time.Duration
	ticker        *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryBroker creates an in-memory broker. Close must be called to
// stop its background sweep goroutine.
func NewMemoryBroker(opts ...MemoryBrokerOption) *MemoryBroker {
	mb := &MemoryBroker{
		tasks:         make(map[uuid.UUID]*Task),
		defs:          make(map[uuid.UUID]*RecurringDefinition),
		dead:          make(map[uuid.UUID]*DeadTask),
		schedules:     make(map[uuid.UUID]Schedule),
		now:           time.Now,
		sweepInterval: time.Second,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(mb)
	}

	mb.ticker = time.NewTicker(mb.sweepInterval)
	go mb.sweepLoop()

	return mb
}

// Close stops the background sweep goroutine.
func (mb *MemoryBroker) Close() error {
	mb.closeOnce.Do(func() {
		close(mb.done)
		mb.ticker.Stop()
	})
	return nil
}

// CreateTask implements Broker.
func (mb *MemoryBroker) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	taskCopy := *task
	mb.tasks[task.ID] = &taskCopy
	return nil
}

// ClaimTask implements Broker. The sweep runs inline first so that due
// recurring firings and expired locks are visible to the claim without
// depending on background timing.
func (mb *MemoryBroker) ClaimTask(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Task, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := mb.now()
	mb.sweepLocked(now)

	var best *Task
	for _, task := range mb.tasks {
		if task.Status != TaskStatusPending {
			continue
		}
		if task.ScheduledAt.After(now) {
			continue
		}

		// Priority first, earliest scheduled time breaks ties
		if best == nil ||
			task.Priority > best.Priority ||
			(task.Priority == best.Priority && task.ScheduledAt.Before(best.ScheduledAt)) {
			best = task
		}
	}

	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = TaskStatusActive
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	taskCopy := *best
	return &taskCopy, nil
}

// CompleteTask implements Broker.
func (mb *MemoryBroker) CompleteTask(ctx context.Context, taskID uuid.UUID, result []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	task, exists := mb.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != TaskStatusActive {
		return fmt.Errorf("task %s is not active", taskID)
	}

	now := mb.now()
	task.Status = TaskStatusCompleted
	task.Result = result
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil
	return nil
}

// FailTask implements Broker.
func (mb *MemoryBroker) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	task, exists := mb.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != TaskStatusActive {
		return fmt.Errorf("task %s is not active", taskID)
	}

	task.Attempts++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if task.Attempts >= task.MaxAttempts {
		task.Status = TaskStatusFailed
	} else {
		// Linear backoff: 30s, 60s, 90s... keeps retries from hammering
		// a failing downstream
		task.Status = TaskStatusPending
		task.ScheduledAt = mb.now().Add(time.Duration(task.Attempts) * 30 * time.Second)
	}
	return nil
}

// CancelTask implements Broker. Only pending tasks can be cancelled;
// an active task keeps running (cooperative cancellation only).
func (mb *MemoryBroker) CancelTask(ctx context.Context, taskID uuid.UUID) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	task, exists := mb.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != TaskStatusPending {
		return ErrTaskNotCancellable
	}

	task.Status = TaskStatusCancelled
	return nil
}

// ListTasks implements Broker.
func (mb *MemoryBroker) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	var out []*Task
	for _, task := range mb.tasks {
		if filter.Type != "" && task.Type != filter.Type {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		taskCopy := *task
		out = append(out, &taskCopy)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// UpsertRecurring implements Broker. Replacement by name happens under one
// lock acquisition, so there is no window with two live triggers.
func (mb *MemoryBroker) UpsertRecurring(ctx context.Context, def *RecurringDefinition) error {
	if def == nil {
		return errors.New("definition cannot be nil")
	}

	schedule, err := Cron(def.Pattern)
	if err != nil {
		return err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := mb.now()
	for id, existing := range mb.defs {
		if existing.Name == def.Name {
			delete(mb.defs, id)
			delete(mb.schedules, id)
		}
	}

	defCopy := *def
	if defCopy.NextRunAt.IsZero() {
		defCopy.NextRunAt = schedule.Next(now.In(defCopy.Location()))
	}
	defCopy.UpdatedAt = now

	mb.defs[defCopy.ID] = &defCopy
	mb.schedules[defCopy.ID] = schedule
	return nil
}

// CancelRecurring implements Broker.
func (mb *MemoryBroker) CancelRecurring(ctx context.Context, defID uuid.UUID) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.defs[defID]; !exists {
		return ErrDefinitionNotFound
	}

	delete(mb.defs, defID)
	delete(mb.schedules, defID)
	return nil
}

// ListRecurring implements Broker.
func (mb *MemoryBroker) ListRecurring(ctx context.Context) ([]*RecurringDefinition, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	out := make([]*RecurringDefinition, 0, len(mb.defs))
	for _, def := range mb.defs {
		defCopy := *def
		out = append(out, &defCopy)
	}
	return out, nil
}

// MoveToDeadLetter implements Broker.
func (mb *MemoryBroker) MoveToDeadLetter(ctx context.Context, taskID uuid.UUID) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	task, exists := mb.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}

	entry := &DeadTask{
		ID:       uuid.New(),
		TaskID:   task.ID,
		Type:     task.Type,
		Payload:  task.Payload,
		Attempts: task.Attempts,
		FailedAt: mb.now(),
	}
	if task.Error != nil {
		entry.Error = *task.Error
	}

	mb.dead[entry.ID] = entry
	delete(mb.tasks, taskID)
	return nil
}

// ExtendLock implements Broker.
func (mb *MemoryBroker) ExtendLock(ctx context.Context, taskID uuid.UUID, duration time.Duration) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	task, exists := mb.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != TaskStatusActive {
		return fmt.Errorf("task %s is not active", taskID)
	}

	lockUntil := mb.now().Add(duration)
	task.LockedUntil = &lockUntil
	return nil
}

// DeadTasks returns a snapshot of the dead letter store.
func (mb *MemoryBroker) DeadTasks() []*DeadTask {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	out := make([]*DeadTask, 0, len(mb.dead))
	for _, entry := range mb.dead {
		entryCopy := *entry
		out = append(out, &entryCopy)
	}
	return out
}

func (mb *MemoryBroker) sweepLoop() {
	for {
		select {
		case <-mb.ticker.C:
			mb.mu.Lock()
			mb.sweepLocked(mb.now())
			mb.mu.Unlock()
		case <-mb.done:
			return
		}
	}
}

// sweepLocked releases expired locks and materializes due recurring
// firings. Caller must hold mb.mu.
func (mb *MemoryBroker) sweepLocked(now time.Time) {
	// Recover tasks locked by workers that died mid-flight
	for _, task := range mb.tasks {
		if task.Status == TaskStatusActive && task.LockedUntil != nil && task.LockedUntil.Before(now) {
			task.Status = TaskStatusPending
			task.LockedUntil = nil
			task.LockedBy = nil
		}
	}

	for id, def := range mb.defs {
		if def.NextRunAt.After(now) {
			continue
		}

		// Hold off the next firing while one is still waiting to be picked
		// up; this bounds a slow consumer to a single pending instance.
		if mb.hasPendingFiring(id) {
			continue
		}

		firing := &Task{
			ID:           uuid.New(),
			Type:         def.TaskType,
			Payload:      def.Payload,
			Status:       TaskStatusPending,
			Priority:     def.Priority,
			MaxAttempts:  3,
			ScheduledAt:  def.NextRunAt,
			DefinitionID: &id,
			CreatedAt:    now,
		}
		mb.tasks[firing.ID] = firing

		// Advance from now, not from the missed slot: a broker that was
		// unreachable for several periods catches up with one firing.
		def.NextRunAt = mb.schedules[id].Next(now.In(def.Location()))
	}
}

func (mb *MemoryBroker) hasPendingFiring(defID uuid.UUID) bool {
	for _, task := range mb.tasks {
		if task.Status == TaskStatusPending && task.DefinitionID != nil && *task.DefinitionID == defID {
			return true
		}
	}
	return false
}
