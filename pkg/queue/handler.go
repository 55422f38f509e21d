package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

type (
	// Handler processes one task category. Type reports the task type the
	// handler is registered under; Handle transforms a payload into a
	// structured result. Handlers must be idempotent or tolerate duplicate
	// execution: delivery is at-least-once.
	Handler interface {
		Type() string
		Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	}

	// TaskHandlerFunc is a typed handler function over a decoded payload.
	TaskHandlerFunc[T, R any] func(ctx context.Context, payload T) (R, error)

	// SweepHandlerFunc handles recurring sweep tasks that carry no payload.
	SweepHandlerFunc func(ctx context.Context) (json.RawMessage, error)
)

// NewTaskHandler wraps a typed function into a Handler registered under
// taskType. The JSON payload is decoded into T before the function runs
// and the returned R is encoded as the task result.
func NewTaskHandler[T, R any](taskType string, fn TaskHandlerFunc[T, R]) Handler {
	return &typedHandler[T, R]{taskType: taskType, fn: fn}
}

// NewSweepHandler wraps a payload-less function into a Handler registered
// under taskType.
func NewSweepHandler(taskType string, fn SweepHandlerFunc) Handler {
	return &sweepHandler{taskType: taskType, fn: fn}
}

type typedHandler[T, R any] struct {
	taskType string
	fn       TaskHandlerFunc[T, R]
}

func (h *typedHandler[T, R]) Type() string {
	return h.taskType
}

func (h *typedHandler[T, R]) Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var t T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", h.taskType, err)
		}
	}

	result, err := h.fn(ctx, t)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", h.taskType, err)
	}
	return encoded, nil
}

type sweepHandler struct {
	taskType string
	fn       SweepHandlerFunc
}

func (h *sweepHandler) Type() string {
	return h.taskType
}

func (h *sweepHandler) Handle(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return h.fn(ctx)
}
