package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/feature"
	"github.com/glowdesk/pipeline/pkg/handlers"
	"github.com/glowdesk/pipeline/pkg/queue"
	"github.com/glowdesk/pipeline/pkg/sandbox"
)

func newTestGate(t *testing.T, mode sandbox.Mode, publisher sandbox.Publisher) *sandbox.Gate {
	t.Helper()

	gate, err := sandbox.NewGate(sandbox.NewMemoryActionStore(), publisher,
		sandbox.WithMode(mode),
		sandbox.WithClock(func() time.Time {
			return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		}))
	require.NoError(t, err)
	return gate
}

func newSalonLookup(t *testing.T, autopost bool) *feature.MemoryLookup {
	t.Helper()

	lookup, err := feature.NewMemoryLookup(&feature.Tenant{
		ID:       "salon-1",
		Name:     "Glow Studio",
		Timezone: "Europe/Paris",
		Currency: "EUR",
	})
	require.NoError(t, err)
	lookup.SetFlag("salon-1", feature.FlagAutoPostEnabled, autopost)
	return lookup
}

func postPayload() handlers.PostPayload {
	return handlers.PostPayload{
		TenantID: "salon-1",
		Text:     "Spring color refresh, book now! ✨ From 49€",
		Hashtags: []string{"#hair", "#salon", "#color", "#spring", "#glow"},
		MediaRef: "media/spring.jpg",
	}
}

func handlerByType(t *testing.T, hs []queue.Handler, taskType string) queue.Handler {
	t.Helper()
	for _, h := range hs {
		if h.Type() == taskType {
			return h
		}
	}
	t.Fatalf("no handler for %s", taskType)
	return nil
}

func TestSocial(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("simulation mode records instead of publishing", func(t *testing.T) {
		t.Parallel()

		publisher := new(mockPublisher)
		gate := newTestGate(t, sandbox.ModeSimulation, publisher)
		social, err := handlers.NewSocial(gate, new(mockAI), newSalonLookup(t, true), slog.Default())
		require.NoError(t, err)

		h := handlerByType(t, social.Handlers(), queue.TaskPostInstagram)
		raw, err := json.Marshal(postPayload())
		require.NoError(t, err)

		out, err := h.Handle(ctx, raw)
		require.NoError(t, err)

		var result handlers.PostResult
		require.NoError(t, json.Unmarshal(out, &result))
		assert.False(t, result.Executed)
		assert.Equal(t, sandbox.ModeSimulation, result.Mode)
		assert.Equal(t, "A", result.Grade)
		assert.Equal(t, 100, result.Score)

		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("production mode publishes through the gate", func(t *testing.T) {
		t.Parallel()

		publisher := new(mockPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(sandbox.PublishReceipt{Success: true, ExternalID: "fb-42"}, nil).Once()

		gate := newTestGate(t, sandbox.ModeProduction, publisher)
		social, err := handlers.NewSocial(gate, new(mockAI), newSalonLookup(t, true), slog.Default())
		require.NoError(t, err)

		h := handlerByType(t, social.Handlers(), queue.TaskPostFacebook)
		raw, err := json.Marshal(postPayload())
		require.NoError(t, err)

		out, err := h.Handle(ctx, raw)
		require.NoError(t, err)

		var result handlers.PostResult
		require.NoError(t, json.Unmarshal(out, &result))
		assert.True(t, result.Executed)
		assert.Equal(t, "fb-42", result.ExternalID)
		publisher.AssertExpectations(t)
	})

	t.Run("autopost disabled skips without error", func(t *testing.T) {
		t.Parallel()

		publisher := new(mockPublisher)
		gate := newTestGate(t, sandbox.ModeProduction, publisher)
		social, err := handlers.NewSocial(gate, new(mockAI), newSalonLookup(t, false), slog.Default())
		require.NoError(t, err)

		h := handlerByType(t, social.Handlers(), queue.TaskPostInstagram)
		raw, err := json.Marshal(postPayload())
		require.NoError(t, err)

		out, err := h.Handle(ctx, raw)
		require.NoError(t, err)

		var result handlers.PostResult
		require.NoError(t, json.Unmarshal(out, &result))
		assert.True(t, result.Skipped)
		assert.False(t, result.Executed)
		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("missing text is generated from the prompt", func(t *testing.T) {
		t.Parallel()

		ai := new(mockAI)
		ai.On("GenerateText", mock.Anything, "spring promo for balayage").
			Return("Fresh balayage, book now! ✨ 49€ #hair #salon #color #spring #glow", nil).Once()
		ai.On("GenerateImage", mock.Anything, "balayage photo").
			Return("media/generated.jpg", nil).Once()

		gate := newTestGate(t, sandbox.ModeSimulation, new(mockPublisher))
		social, err := handlers.NewSocial(gate, ai, newSalonLookup(t, true), slog.Default())
		require.NoError(t, err)

		payload := handlers.PostPayload{
			TenantID:    "salon-1",
			Prompt:      "spring promo for balayage",
			ImagePrompt: "balayage photo",
		}
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		h := handlerByType(t, social.Handlers(), queue.TaskPostTikTok)
		_, err = h.Handle(ctx, raw)
		require.NoError(t, err)
		ai.AssertExpectations(t)
	})

	t.Run("no text and no prompt fails", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t, sandbox.ModeSimulation, new(mockPublisher))
		social, err := handlers.NewSocial(gate, new(mockAI), newSalonLookup(t, true), slog.Default())
		require.NoError(t, err)

		raw, err := json.Marshal(handlers.PostPayload{TenantID: "salon-1"})
		require.NoError(t, err)

		h := handlerByType(t, social.Handlers(), queue.TaskPostInstagram)
		_, err = h.Handle(ctx, raw)
		assert.ErrorIs(t, err, handlers.ErrEmptyContent)
	})

	t.Run("missing tenant id fails", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t, sandbox.ModeSimulation, new(mockPublisher))
		social, err := handlers.NewSocial(gate, new(mockAI), newSalonLookup(t, true), slog.Default())
		require.NoError(t, err)

		raw, err := json.Marshal(handlers.PostPayload{Text: "hello"})
		require.NoError(t, err)

		h := handlerByType(t, social.Handlers(), queue.TaskPostInstagram)
		_, err = h.Handle(ctx, raw)
		assert.ErrorIs(t, err, handlers.ErrMissingTenant)
	})
}
