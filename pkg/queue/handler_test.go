package queue_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/queue"
)

func TestNewTaskHandler(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("decodes payload and encodes result", func(t *testing.T) {
		t.Parallel()

		handler := queue.NewTaskHandler(queue.TaskContentGenerate,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				return echoResult{Value: p.Value + "!"}, nil
			})
		assert.Equal(t, queue.TaskContentGenerate, handler.Type())

		out, err := handler.Handle(ctx, json.RawMessage(`{"value":"new balayage"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":"new balayage!"}`, string(out))
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		t.Parallel()

		handler := queue.NewTaskHandler(queue.TaskContentGenerate,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				return echoResult{}, nil
			})

		_, err := handler.Handle(ctx, json.RawMessage(`{broken`))
		assert.Error(t, err)
	})

	t.Run("empty payload yields zero value", func(t *testing.T) {
		t.Parallel()

		handler := queue.NewTaskHandler(queue.TaskReportDaily,
			func(ctx context.Context, p echoPayload) (echoResult, error) {
				assert.Empty(t, p.Value)
				return echoResult{Value: "ran"}, nil
			})

		out, err := handler.Handle(ctx, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":"ran"}`, string(out))
	})
}

func TestNewSweepHandler(t *testing.T) {
	t.Parallel()

	handler := queue.NewSweepHandler(queue.TaskClientBirthday,
		func(ctx context.Context) (json.RawMessage, error) {
			return json.RawMessage(`{"sent":2}`), nil
		})
	assert.Equal(t, queue.TaskClientBirthday, handler.Type())

	out, err := handler.Handle(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sent":2}`, string(out))
}
