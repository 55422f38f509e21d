package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/queue"
)

type echoPayload struct {
	Value string `json:"value"`
}

type echoResult struct {
	Value string `json:"value"`
}

func startWorker(t *testing.T, broker queue.Broker, handlers ...queue.Handler) *queue.Worker {
	t.Helper()

	worker, err := queue.NewWorker(broker,
		queue.WithPullInterval(10*time.Millisecond),
		queue.WithLockTimeout(5*time.Second),
		queue.WithMaxConcurrentTasks(2))
	require.NoError(t, err)
	worker.RegisterHandlers(handlers...)

	require.NoError(t, worker.Start(context.Background()))
	t.Cleanup(func() { _ = worker.Stop() })
	return worker
}

func TestWorker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("requires at least one handler", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		defer broker.Close()

		worker, err := queue.NewWorker(broker)
		require.NoError(t, err)
		assert.ErrorIs(t, worker.Start(ctx), queue.ErrNoHandlers)
	})

	t.Run("processes task and persists result", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		defer broker.Close()
		q, err := queue.NewTaskQueue(broker)
		require.NoError(t, err)

		handler := queue.NewTaskHandler(queue.TaskContentGenerate,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				return echoResult{Value: p.Value}, nil
			})
		startWorker(t, broker, handler)

		id, err := q.Enqueue(ctx, queue.TaskContentGenerate, echoPayload{Value: "summer promo"})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			tasks, err := broker.ListTasks(ctx, queue.TaskFilter{Status: queue.TaskStatusCompleted})
			return err == nil && len(tasks) == 1 && tasks[0].ID == id
		}, 2*time.Second, 10*time.Millisecond)

		tasks, err := broker.ListTasks(ctx, queue.TaskFilter{Status: queue.TaskStatusCompleted})
		require.NoError(t, err)
		var result echoResult
		require.NoError(t, json.Unmarshal(tasks[0].Result, &result))
		assert.Equal(t, "summer promo", result.Value)
	})

	t.Run("config drives the worker settings", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		defer broker.Close()
		q, err := queue.NewTaskQueue(broker)
		require.NoError(t, err)

		worker, err := queue.NewWorker(broker, queue.WithWorkerConfig(queue.Config{
			PullInterval:       10 * time.Millisecond,
			LockTimeout:        5 * time.Second,
			MaxConcurrentTasks: 2,
		}))
		require.NoError(t, err)
		worker.RegisterHandler(queue.NewTaskHandler(queue.TaskContentGenerate,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				return echoResult{Value: p.Value}, nil
			}))

		require.NoError(t, worker.Start(ctx))
		t.Cleanup(func() { _ = worker.Stop() })

		id, err := q.Enqueue(ctx, queue.TaskContentGenerate, echoPayload{Value: "x"})
		require.NoError(t, err)

		// The default pull interval is seconds; completing well inside the
		// deadline shows the configured 10ms interval took effect.
		require.Eventually(t, func() bool {
			tasks, err := broker.ListTasks(ctx, queue.TaskFilter{Status: queue.TaskStatusCompleted})
			return err == nil && len(tasks) == 1 && tasks[0].ID == id
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("failing handler does not block the next task", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		defer broker.Close()
		q, err := queue.NewTaskQueue(broker)
		require.NoError(t, err)

		var succeeded atomic.Int32
		failing := queue.NewTaskHandler(queue.TaskPostInstagram,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				return echoResult{}, errors.New("platform rejected the post")
			})
		healthy := queue.NewTaskHandler(queue.TaskClientRemind,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				succeeded.Add(1)
				return echoResult{Value: p.Value}, nil
			})
		startWorker(t, broker, failing, healthy)

		_, err = q.Enqueue(ctx, queue.TaskPostInstagram, echoPayload{Value: "bad"},
			queue.WithMaxAttempts(1), queue.WithPriority(queue.PriorityHigh))
		require.NoError(t, err)
		_, err = q.Enqueue(ctx, queue.TaskClientRemind, echoPayload{Value: "good"})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return succeeded.Load() == 1
		}, 2*time.Second, 10*time.Millisecond)

		// An exhausted task ends up in the dead letter store.
		require.Eventually(t, func() bool {
			return len(broker.DeadTasks()) == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("panicking handler is contained", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		defer broker.Close()
		q, err := queue.NewTaskQueue(broker)
		require.NoError(t, err)

		panicking := queue.NewTaskHandler(queue.TaskPostTikTok,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				panic("template blew up")
			})
		startWorker(t, broker, panicking)

		_, err = q.Enqueue(ctx, queue.TaskPostTikTok, echoPayload{Value: "x"},
			queue.WithMaxAttempts(1))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return len(broker.DeadTasks()) == 1
		}, 2*time.Second, 10*time.Millisecond)

		dead := broker.DeadTasks()
		assert.Contains(t, dead[0].Error, "panic")
	})

	t.Run("unknown task type goes to dead letter", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		defer broker.Close()
		q, err := queue.NewTaskQueue(broker)
		require.NoError(t, err)

		known := queue.NewTaskHandler(queue.TaskClientRemind,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				return echoResult{}, nil
			})
		startWorker(t, broker, known)

		_, err = q.Enqueue(ctx, "post.myspace", echoPayload{Value: "x"})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return len(broker.DeadTasks()) == 1
		}, 2*time.Second, 10*time.Millisecond)

		dead := broker.DeadTasks()
		assert.Equal(t, "post.myspace", dead[0].Type)
	})

	t.Run("cancelled task never reaches its handler", func(t *testing.T) {
		t.Parallel()

		broker := queue.NewMemoryBroker()
		defer broker.Close()
		q, err := queue.NewTaskQueue(broker)
		require.NoError(t, err)

		var spy atomic.Int32
		handler := queue.NewTaskHandler(queue.TaskClientFollowup,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				spy.Add(1)
				return echoResult{}, nil
			})

		id, err := q.Enqueue(ctx, queue.TaskClientFollowup, echoPayload{Value: "x"},
			queue.WithDelay(time.Hour))
		require.NoError(t, err)

		cancelled, err := q.Cancel(ctx, id)
		require.NoError(t, err)
		require.True(t, cancelled)

		startWorker(t, broker, handler)

		// Give the worker several pull cycles to prove the point.
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int32(0), spy.Load())
	})
}
