package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key layout. Pending tasks live in a ZSET scored by their
// scheduled time, which is what gives the broker delayed visibility.
const (
	redisTaskKeyPrefix = "pipeline:task:"
	redisPendingKey    = "pipeline:pending"
	redisActiveKey     = "pipeline:active"
	redisDefKeyPrefix  = "pipeline:def:"
	redisDefSetKey     = "pipeline:defs"
	redisDefNamePrefix = "pipeline:defname:"
	redisDeadKey       = "pipeline:dead"
)

// RedisBroker is a Broker backed by a single Redis instance. It is
// suitable for one-node deployments; the claim path tolerates racing
// workers but the broker does not coordinate across Redis replicas.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker creates a Redis-backed broker.
func NewRedisBroker(client *redis.Client) (*RedisBroker, error) {
	if client == nil {
		return nil, ErrBrokerNil
	}
	return &RedisBroker{client: client}, nil
}

// redisErr maps a transport failure onto the queue's unavailability
// sentinel so callers can degrade instead of crashing.
func redisErr(err error) error {
	return errors.Join(ErrQueueUnavailable, err)
}

// CreateTask implements Broker.
func (b *RedisBroker) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	if err := b.saveTask(ctx, task); err != nil {
		return err
	}
	if err := b.client.ZAdd(ctx, redisPendingKey, redis.Z{
		Score:  float64(task.ScheduledAt.UnixMilli()),
		Member: task.ID.String(),
	}).Err(); err != nil {
		return redisErr(err)
	}
	return nil
}

// ClaimTask implements Broker. Expired locks are recovered and due
// recurring definitions materialized before the claim itself.
func (b *RedisBroker) ClaimTask(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Task, error) {
	now := time.Now()

	if err := b.recoverExpiredLocks(ctx, now); err != nil {
		return nil, err
	}
	if err := b.materializeDue(ctx, now); err != nil {
		return nil, err
	}

	for {
		ids, err := b.client.ZRangeByScore(ctx, redisPendingKey, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   fmt.Sprintf("%d", now.UnixMilli()),
			Count: 1,
		}).Result()
		if err != nil {
			return nil, redisErr(err)
		}
		if len(ids) == 0 {
			return nil, ErrNoTaskToClaim
		}

		// Removing the member is the claim: only one racing worker wins.
		removed, err := b.client.ZRem(ctx, redisPendingKey, ids[0]).Result()
		if err != nil {
			return nil, redisErr(err)
		}
		if removed == 0 {
			continue // lost the race, try the next member
		}

		task, err := b.loadTask(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		if task.Status != TaskStatusPending {
			continue // cancelled between listing and claim
		}

		lockUntil := now.Add(lockDuration)
		task.Status = TaskStatusActive
		task.LockedUntil = &lockUntil
		task.LockedBy = &workerID
		if err := b.saveTask(ctx, task); err != nil {
			return nil, err
		}
		if err := b.client.SAdd(ctx, redisActiveKey, task.ID.String()).Err(); err != nil {
			return nil, redisErr(err)
		}
		return task, nil
	}
}

// CompleteTask implements Broker.
func (b *RedisBroker) CompleteTask(ctx context.Context, taskID uuid.UUID, result []byte) error {
	task, err := b.loadTask(ctx, taskID.String())
	if err != nil {
		return err
	}
	if task.Status != TaskStatusActive {
		return fmt.Errorf("task %s is not active", taskID)
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.Result = result
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil

	if err := b.saveTask(ctx, task); err != nil {
		return err
	}
	if err := b.client.SRem(ctx, redisActiveKey, taskID.String()).Err(); err != nil {
		return redisErr(err)
	}
	return nil
}

// FailTask implements Broker.
func (b *RedisBroker) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	task, err := b.loadTask(ctx, taskID.String())
	if err != nil {
		return err
	}
	if task.Status != TaskStatusActive {
		return fmt.Errorf("task %s is not active", taskID)
	}

	task.Attempts++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if err := b.client.SRem(ctx, redisActiveKey, taskID.String()).Err(); err != nil {
		return redisErr(err)
	}

	if task.Attempts >= task.MaxAttempts {
		task.Status = TaskStatusFailed
		return b.saveTask(ctx, task)
	}

	task.Status = TaskStatusPending
	task.ScheduledAt = time.Now().Add(time.Duration(task.Attempts) * 30 * time.Second)
	if err := b.saveTask(ctx, task); err != nil {
		return err
	}
	if err := b.client.ZAdd(ctx, redisPendingKey, redis.Z{
		Score:  float64(task.ScheduledAt.UnixMilli()),
		Member: taskID.String(),
	}).Err(); err != nil {
		return redisErr(err)
	}
	return nil
}

// CancelTask implements Broker.
func (b *RedisBroker) CancelTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := b.loadTask(ctx, taskID.String())
	if err != nil {
		return err
	}
	if task.Status != TaskStatusPending {
		return ErrTaskNotCancellable
	}

	task.Status = TaskStatusCancelled
	if err := b.saveTask(ctx, task); err != nil {
		return err
	}
	if err := b.client.ZRem(ctx, redisPendingKey, taskID.String()).Err(); err != nil {
		return redisErr(err)
	}
	return nil
}

// ListTasks implements Broker. The scan walks task keys, so it is meant
// for operator views rather than hot paths.
func (b *RedisBroker) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	var out []*Task
	iter := b.client.Scan(ctx, 0, redisTaskKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := b.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, redisErr(err)
		}
		var task Task
		if err := json.Unmarshal(data, &task); err != nil {
			continue
		}
		if filter.Type != "" && task.Type != filter.Type {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		out = append(out, &task)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, redisErr(err)
	}
	return out, nil
}

// UpsertRecurring implements Broker. The name index makes re-registration
// replace the previous definition instead of duplicating the trigger.
func (b *RedisBroker) UpsertRecurring(ctx context.Context, def *RecurringDefinition) error {
	if def == nil {
		return errors.New("definition cannot be nil")
	}

	schedule, err := Cron(def.Pattern)
	if err != nil {
		return err
	}

	defCopy := *def
	if defCopy.NextRunAt.IsZero() {
		defCopy.NextRunAt = schedule.Next(time.Now().In(defCopy.Location()))
	}
	defCopy.UpdatedAt = time.Now()

	// Replace any previous definition registered under the same name
	prevID, err := b.client.Get(ctx, redisDefNamePrefix+def.Name).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return redisErr(err)
	}
	if prevID != "" && prevID != def.ID.String() {
		pipe := b.client.TxPipeline()
		pipe.Del(ctx, redisDefKeyPrefix+prevID)
		pipe.SRem(ctx, redisDefSetKey, prevID)
		if _, err := pipe.Exec(ctx); err != nil {
			return redisErr(err)
		}
	}

	data, err := json.Marshal(&defCopy)
	if err != nil {
		return fmt.Errorf("failed to marshal recurring definition: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, redisDefKeyPrefix+defCopy.ID.String(), data, 0)
	pipe.SAdd(ctx, redisDefSetKey, defCopy.ID.String())
	pipe.Set(ctx, redisDefNamePrefix+defCopy.Name, defCopy.ID.String(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErr(err)
	}
	return nil
}

// CancelRecurring implements Broker.
func (b *RedisBroker) CancelRecurring(ctx context.Context, defID uuid.UUID) error {
	data, err := b.client.Get(ctx, redisDefKeyPrefix+defID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrDefinitionNotFound
		}
		return redisErr(err)
	}

	var def RecurringDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to unmarshal recurring definition %s: %w", defID, err)
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, redisDefKeyPrefix+defID.String())
	pipe.SRem(ctx, redisDefSetKey, defID.String())
	pipe.Del(ctx, redisDefNamePrefix+def.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErr(err)
	}
	return nil
}

// ListRecurring implements Broker.
func (b *RedisBroker) ListRecurring(ctx context.Context) ([]*RecurringDefinition, error) {
	ids, err := b.client.SMembers(ctx, redisDefSetKey).Result()
	if err != nil {
		return nil, redisErr(err)
	}

	out := make([]*RecurringDefinition, 0, len(ids))
	for _, id := range ids {
		data, err := b.client.Get(ctx, redisDefKeyPrefix+id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, redisErr(err)
		}
		var def RecurringDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			continue
		}
		out = append(out, &def)
	}
	return out, nil
}

// MoveToDeadLetter implements Broker.
func (b *RedisBroker) MoveToDeadLetter(ctx context.Context, taskID uuid.UUID) error {
	task, err := b.loadTask(ctx, taskID.String())
	if err != nil {
		return err
	}

	entry := &DeadTask{
		ID:       uuid.New(),
		TaskID:   task.ID,
		Type:     task.Type,
		Payload:  task.Payload,
		Attempts: task.Attempts,
		FailedAt: time.Now(),
	}
	if task.Error != nil {
		entry.Error = *task.Error
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter entry: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, redisDeadKey, data)
	pipe.Del(ctx, redisTaskKeyPrefix+taskID.String())
	pipe.ZRem(ctx, redisPendingKey, taskID.String())
	pipe.SRem(ctx, redisActiveKey, taskID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErr(err)
	}
	return nil
}

// ExtendLock implements Broker.
func (b *RedisBroker) ExtendLock(ctx context.Context, taskID uuid.UUID, duration time.Duration) error {
	task, err := b.loadTask(ctx, taskID.String())
	if err != nil {
		return err
	}
	if task.Status != TaskStatusActive {
		return fmt.Errorf("task %s is not active", taskID)
	}

	lockUntil := time.Now().Add(duration)
	task.LockedUntil = &lockUntil
	return b.saveTask(ctx, task)
}

func (b *RedisBroker) saveTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	if err := b.client.Set(ctx, redisTaskKeyPrefix+task.ID.String(), data, 0).Err(); err != nil {
		return redisErr(err)
	}
	return nil
}

func (b *RedisBroker) loadTask(ctx context.Context, id string) (*Task, error) {
	data, err := b.client.Get(ctx, redisTaskKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, redisErr(err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}
	return &task, nil
}

// recoverExpiredLocks resets active tasks whose lock has lapsed so work
// claimed by a crashed worker becomes claimable again.
func (b *RedisBroker) recoverExpiredLocks(ctx context.Context, now time.Time) error {
	ids, err := b.client.SMembers(ctx, redisActiveKey).Result()
	if err != nil {
		return redisErr(err)
	}

	for _, id := range ids {
		task, err := b.loadTask(ctx, id)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				_ = b.client.SRem(ctx, redisActiveKey, id).Err()
				continue
			}
			return err
		}
		if task.Status != TaskStatusActive || task.LockedUntil == nil || task.LockedUntil.After(now) {
			continue
		}

		task.Status = TaskStatusPending
		task.LockedUntil = nil
		task.LockedBy = nil
		if err := b.saveTask(ctx, task); err != nil {
			return err
		}
		pipe := b.client.TxPipeline()
		pipe.SRem(ctx, redisActiveKey, id)
		pipe.ZAdd(ctx, redisPendingKey, redis.Z{
			Score:  float64(task.ScheduledAt.UnixMilli()),
			Member: id,
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return redisErr(err)
		}
	}
	return nil
}

// materializeDue turns due recurring definitions into pending tasks. One
// pending firing per definition at a time; a definition that was due for
// several periods catches up with a single firing.
func (b *RedisBroker) materializeDue(ctx context.Context, now time.Time) error {
	defs, err := b.ListRecurring(ctx)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if def.NextRunAt.After(now) {
			continue
		}

		pending, err := b.hasPendingFiring(ctx, def.ID)
		if err != nil {
			return err
		}
		if pending {
			continue
		}

		schedule, err := Cron(def.Pattern)
		if err != nil {
			continue // malformed patterns are rejected at upsert
		}

		firing := &Task{
			ID:           uuid.New(),
			Type:         def.TaskType,
			Payload:      def.Payload,
			Status:       TaskStatusPending,
			Priority:     def.Priority,
			MaxAttempts:  3,
			ScheduledAt:  def.NextRunAt,
			DefinitionID: &def.ID,
			CreatedAt:    now,
		}
		if err := b.CreateTask(ctx, firing); err != nil {
			return err
		}

		def.NextRunAt = schedule.Next(now.In(def.Location()))
		if err := b.UpsertRecurring(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

func (b *RedisBroker) hasPendingFiring(ctx context.Context, defID uuid.UUID) (bool, error) {
	tasks, err := b.ListTasks(ctx, TaskFilter{Status: TaskStatusPending})
	if err != nil {
		return false, err
	}
	for _, task := range tasks {
		if task.DefinitionID != nil && *task.DefinitionID == defID {
			return true, nil
		}
	}
	return false, nil
}
