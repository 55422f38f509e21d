package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBroker is a Broker backed by PostgreSQL. The claim path uses
// FOR UPDATE SKIP LOCKED so multiple workers can pull from the same table
// without serializing on each other. Schema lives in
// pkg/queue/migrations and is applied with pkg/pg.Migrate.
type PostgresBroker struct {
	pool *pgxpool.Pool
}

// NewPostgresBroker creates a PostgreSQL-backed broker.
func NewPostgresBroker(pool *pgxpool.Pool) (*PostgresBroker, error) {
	if pool == nil {
		return nil, ErrBrokerNil
	}
	return &PostgresBroker{pool: pool}, nil
}

// pgErr maps connection-level failures onto ErrQueueUnavailable while
// passing constraint and query errors through untouched.
func pgErr(err error) error {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return err
	}
	return errors.Join(ErrQueueUnavailable, err)
}

const taskColumns = `id, type, payload, status, priority, attempts, max_attempts,
	scheduled_at, locked_until, locked_by, result, error, definition_id, processed_at, created_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Type, &t.Payload, &t.Status, &t.Priority, &t.Attempts,
		&t.MaxAttempts, &t.ScheduledAt, &t.LockedUntil, &t.LockedBy, &t.Result,
		&t.Error, &t.DefinitionID, &t.ProcessedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask implements Broker.
func (b *PostgresBroker) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	_, err := b.pool.Exec(ctx, `
		INSERT INTO tasks (id, type, payload, status, priority, attempts, max_attempts,
			scheduled_at, definition_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.Type, task.Payload, task.Status, task.Priority,
		task.Attempts, task.MaxAttempts, task.ScheduledAt, task.DefinitionID, task.CreatedAt)
	if err != nil {
		return pgErr(err)
	}
	return nil
}

// ClaimTask implements Broker.
func (b *PostgresBroker) ClaimTask(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Task, error) {
	now := time.Now()

	if err := b.recoverExpiredLocks(ctx, now); err != nil {
		return nil, err
	}
	if err := b.materializeDue(ctx, now); err != nil {
		return nil, err
	}

	row := b.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE tasks SET status = 'active', locked_until = $2, locked_by = $3
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = 'pending' AND scheduled_at <= $1
			ORDER BY priority DESC, scheduled_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING %s`, taskColumns),
		now, now.Add(lockDuration), workerID)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTaskToClaim
		}
		return nil, pgErr(err)
	}
	return task, nil
}

// CompleteTask implements Broker.
func (b *PostgresBroker) CompleteTask(ctx context.Context, taskID uuid.UUID, result []byte) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE tasks SET status = 'completed', result = $2, processed_at = now(),
			locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'active'`,
		taskID, result)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s is not active", taskID)
	}
	return nil
}

// FailTask implements Broker. Retry backoff is linear in the attempt
// count, mirroring the memory broker.
func (b *PostgresBroker) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE tasks SET
			attempts = attempts + 1,
			error = $2,
			locked_until = NULL,
			locked_by = NULL,
			status = CASE WHEN attempts + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
			scheduled_at = CASE WHEN attempts + 1 >= max_attempts THEN scheduled_at
				ELSE now() + (attempts + 1) * interval '30 seconds' END
		WHERE id = $1 AND status = 'active'`,
		taskID, errorMsg)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s is not active", taskID)
	}
	return nil
}

// CancelTask implements Broker.
func (b *PostgresBroker) CancelTask(ctx context.Context, taskID uuid.UUID) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE tasks SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`, taskID)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := b.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
			return pgErr(err)
		}
		if !exists {
			return ErrTaskNotFound
		}
		return ErrTaskNotCancellable
	}
	return nil
}

// ListTasks implements Broker.
func (b *PostgresBroker) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE 1=1`, taskColumns)
	args := []any{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, pgErr(err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(err)
	}
	return out, nil
}

// UpsertRecurring implements Broker. The unique index on name plus
// ON CONFLICT makes replacement atomic: there is no window with two live
// triggers for one logical name.
func (b *PostgresBroker) UpsertRecurring(ctx context.Context, def *RecurringDefinition) error {
	if def == nil {
		return errors.New("definition cannot be nil")
	}

	schedule, err := Cron(def.Pattern)
	if err != nil {
		return err
	}

	nextRun := def.NextRunAt
	if nextRun.IsZero() {
		nextRun = schedule.Next(time.Now().In(def.Location()))
	}

	_, err = b.pool.Exec(ctx, `
		INSERT INTO recurring_definitions (id, name, task_type, payload, pattern, timezone,
			priority, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (name) DO UPDATE SET
			task_type = EXCLUDED.task_type,
			payload = EXCLUDED.payload,
			pattern = EXCLUDED.pattern,
			timezone = EXCLUDED.timezone,
			priority = EXCLUDED.priority,
			next_run_at = EXCLUDED.next_run_at,
			updated_at = now()`,
		def.ID, def.Name, def.TaskType, def.Payload, def.Pattern, def.Timezone,
		def.Priority, nextRun, def.CreatedAt)
	if err != nil {
		return pgErr(err)
	}
	return nil
}

// CancelRecurring implements Broker.
func (b *PostgresBroker) CancelRecurring(ctx context.Context, defID uuid.UUID) error {
	tag, err := b.pool.Exec(ctx, `DELETE FROM recurring_definitions WHERE id = $1`, defID)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

// ListRecurring implements Broker.
func (b *PostgresBroker) ListRecurring(ctx context.Context) ([]*RecurringDefinition, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, name, task_type, payload, pattern, timezone, priority, next_run_at,
			created_at, updated_at
		FROM recurring_definitions ORDER BY name`)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	var out []*RecurringDefinition
	for rows.Next() {
		var d RecurringDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.TaskType, &d.Payload, &d.Pattern,
			&d.Timezone, &d.Priority, &d.NextRunAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, pgErr(err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(err)
	}
	return out, nil
}

// MoveToDeadLetter implements Broker.
func (b *PostgresBroker) MoveToDeadLetter(ctx context.Context, taskID uuid.UUID) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return pgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO dead_tasks (id, task_id, type, payload, error, attempts, failed_at)
		SELECT gen_random_uuid(), id, type, payload, COALESCE(error, ''), attempts, now()
		FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return pgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return pgErr(err)
	}
	return nil
}

// ExtendLock implements Broker.
func (b *PostgresBroker) ExtendLock(ctx context.Context, taskID uuid.UUID, duration time.Duration) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE tasks SET locked_until = $2 WHERE id = $1 AND status = 'active'`,
		taskID, time.Now().Add(duration))
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s is not active", taskID)
	}
	return nil
}

func (b *PostgresBroker) recoverExpiredLocks(ctx context.Context, now time.Time) error {
	_, err := b.pool.Exec(ctx, `
		UPDATE tasks SET status = 'pending', locked_until = NULL, locked_by = NULL
		WHERE status = 'active' AND locked_until < $1`, now)
	if err != nil {
		return pgErr(err)
	}
	return nil
}

// materializeDue turns due recurring definitions into pending tasks.
// Definitions are claimed with SKIP LOCKED so concurrent workers do not
// double-fire the same trigger.
func (b *PostgresBroker) materializeDue(ctx context.Context, now time.Time) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return pgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, name, task_type, payload, pattern, timezone, priority, next_run_at,
			created_at, updated_at
		FROM recurring_definitions
		WHERE next_run_at <= $1
		FOR UPDATE SKIP LOCKED`, now)
	if err != nil {
		return pgErr(err)
	}

	var due []*RecurringDefinition
	for rows.Next() {
		var d RecurringDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.TaskType, &d.Payload, &d.Pattern,
			&d.Timezone, &d.Priority, &d.NextRunAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			rows.Close()
			return pgErr(err)
		}
		due = append(due, &d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return pgErr(err)
	}

	for _, def := range due {
		var hasPending bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM tasks WHERE definition_id = $1 AND status = 'pending')`,
			def.ID).Scan(&hasPending)
		if err != nil {
			return pgErr(err)
		}

		if !hasPending {
			_, err := tx.Exec(ctx, `
				INSERT INTO tasks (id, type, payload, status, priority, attempts, max_attempts,
					scheduled_at, definition_id, created_at)
				VALUES ($1, $2, $3, 'pending', $4, 0, 3, $5, $6, $7)`,
				uuid.New(), def.TaskType, def.Payload, def.Priority, def.NextRunAt, def.ID, now)
			if err != nil {
				return pgErr(err)
			}
		} else {
			continue
		}

		schedule, err := Cron(def.Pattern)
		if err != nil {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE recurring_definitions SET next_run_at = $2, updated_at = now() WHERE id = $1`,
			def.ID, schedule.Next(now.In(def.Location()))); err != nil {
			return pgErr(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return pgErr(err)
	}
	return nil
}
