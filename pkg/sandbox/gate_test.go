package sandbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/sandbox"
	"github.com/glowdesk/pipeline/pkg/scorer"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, platform scorer.Platform, content scorer.Content) (sandbox.PublishReceipt, error) {
	args := m.Called(ctx, platform, content)
	return args.Get(0).(sandbox.PublishReceipt), args.Error(1)
}

var gateClock = func() time.Time {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
}

func testContent() scorer.Content {
	return scorer.Content{
		Text:     "Fresh balayage, book now! ✨ Only 49€",
		Hashtags: []string{"#hair", "#salon", "#balayage", "#color", "#glow"},
		MediaRef: "media/look.jpg",
	}
}

func newGate(t *testing.T, opts ...sandbox.GateOption) (*sandbox.Gate, *mockPublisher) {
	t.Helper()

	publisher := new(mockPublisher)
	gate, err := sandbox.NewGate(sandbox.NewMemoryActionStore(), publisher,
		append([]sandbox.GateOption{sandbox.WithClock(gateClock)}, opts...)...)
	require.NoError(t, err)
	return gate, publisher
}

func TestNewGate(t *testing.T) {
	t.Parallel()

	t.Run("requires store and publisher", func(t *testing.T) {
		t.Parallel()

		_, err := sandbox.NewGate(nil, new(mockPublisher))
		assert.ErrorIs(t, err, sandbox.ErrStoreNil)

		_, err = sandbox.NewGate(sandbox.NewMemoryActionStore(), nil)
		assert.ErrorIs(t, err, sandbox.ErrPublisherNil)
	})

	t.Run("defaults to simulation", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		assert.Equal(t, sandbox.ModeSimulation, gate.Mode())
	})
}

func TestGate_SetMode(t *testing.T) {
	t.Parallel()

	t.Run("valid transition", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		require.NoError(t, gate.SetMode(context.Background(), sandbox.ModeProduction))
		assert.Equal(t, sandbox.ModeProduction, gate.Mode())
	})

	t.Run("unknown mode rejected before mutation", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		err := gate.SetMode(context.Background(), sandbox.Mode("yolo"))
		assert.ErrorIs(t, err, sandbox.ErrInvalidMode)
		assert.Equal(t, sandbox.ModeSimulation, gate.Mode())
	})
}

func TestGate_Publish(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("simulation never touches the publisher", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t)

		result, err := gate.Publish(ctx, scorer.PlatformInstagram, testContent())
		require.NoError(t, err)
		assert.False(t, result.Executed)
		assert.Equal(t, sandbox.ModeSimulation, result.Mode)
		require.NotNil(t, result.Action)
		assert.Equal(t, sandbox.StatusSimulated, result.Action.Status)
		assert.Equal(t, "A", result.Action.Analysis.Grade)

		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("validation holds the action for an operator", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t, sandbox.WithMode(sandbox.ModeValidation))

		result, err := gate.Publish(ctx, scorer.PlatformFacebook, testContent())
		require.NoError(t, err)
		assert.False(t, result.Executed)
		assert.Equal(t, sandbox.StatusPendingValidation, result.Action.Status)

		pending, err := gate.ListPendingValidations(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, result.Action.ID, pending[0].ID)

		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("production publishes and records", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t, sandbox.WithMode(sandbox.ModeProduction))
		publisher.On("Publish", mock.Anything, scorer.PlatformInstagram, mock.Anything).
			Return(sandbox.PublishReceipt{Success: true, ExternalID: "ig-123"}, nil).Once()

		result, err := gate.Publish(ctx, scorer.PlatformInstagram, testContent())
		require.NoError(t, err)
		assert.True(t, result.Executed)
		assert.Equal(t, "ig-123", result.ExternalID)
		require.NotNil(t, result.Action)
		assert.Equal(t, sandbox.StatusPublished, result.Action.Status)
		require.NotNil(t, result.Action.PublishedAt)

		recorded, err := gate.ListActions(ctx, sandbox.ActionFilter{Status: sandbox.StatusPublished})
		require.NoError(t, err)
		require.Len(t, recorded, 1)

		publisher.AssertExpectations(t)
	})

	t.Run("production platform failure surfaces", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t, sandbox.WithMode(sandbox.ModeProduction))
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(sandbox.PublishReceipt{Success: false, Error: "rate limited"}, nil).Once()

		_, err := gate.Publish(ctx, scorer.PlatformTikTok, testContent())
		assert.ErrorIs(t, err, sandbox.ErrPublishFailed)
	})

	t.Run("publisher transport error surfaces", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t, sandbox.WithMode(sandbox.ModeProduction))
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(sandbox.PublishReceipt{}, errors.New("connection reset")).Once()

		_, err := gate.Publish(ctx, scorer.PlatformTikTok, testContent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestGate_ApprovalWorkflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	pendingAction := func(t *testing.T, gate *sandbox.Gate) *sandbox.SimulatedAction {
		t.Helper()
		action, err := gate.SimulatePost(ctx, scorer.PlatformInstagram, testContent())
		require.NoError(t, err)
		require.Equal(t, sandbox.StatusPendingValidation, action.Status)
		return action
	}

	t.Run("approve then execute", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t, sandbox.WithMode(sandbox.ModeValidation))
		action := pendingAction(t, gate)

		approved, err := gate.ApprovePost(ctx, action.ID, "looks great")
		require.NoError(t, err)
		assert.Equal(t, sandbox.StatusApproved, approved.Status)
		assert.Equal(t, "looks great", approved.Feedback)
		require.NotNil(t, approved.ValidatedAt)

		publisher.On("Publish", mock.Anything, scorer.PlatformInstagram, mock.Anything).
			Return(sandbox.PublishReceipt{Success: true, ExternalID: "ig-9"}, nil).Once()

		published, err := gate.ExecuteApprovedPost(ctx, action.ID)
		require.NoError(t, err)
		assert.Equal(t, sandbox.StatusPublished, published.Status)
		assert.Equal(t, "ig-9", published.ExternalID)
		publisher.AssertExpectations(t)
	})

	t.Run("reject is terminal", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t, sandbox.WithMode(sandbox.ModeValidation))
		action := pendingAction(t, gate)

		rejected, err := gate.RejectPost(ctx, action.ID, "wrong season")
		require.NoError(t, err)
		assert.Equal(t, sandbox.StatusRejected, rejected.Status)

		_, err = gate.ExecuteApprovedPost(ctx, action.ID)
		assert.ErrorIs(t, err, sandbox.ErrActionNotApproved)
		assert.Contains(t, err.Error(), string(sandbox.StatusRejected))

		_, err = gate.ApprovePost(ctx, action.ID, "changed my mind")
		assert.ErrorIs(t, err, sandbox.ErrActionNotPending)

		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("executing a merely simulated action is rejected", func(t *testing.T) {
		t.Parallel()

		gate, publisher := newGate(t)
		action, err := gate.SimulatePost(ctx, scorer.PlatformInstagram, testContent())
		require.NoError(t, err)

		_, err = gate.ExecuteApprovedPost(ctx, action.ID)
		assert.ErrorIs(t, err, sandbox.ErrActionNotApproved)
		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("unknown action id", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t, sandbox.WithMode(sandbox.ModeValidation))
		_, err := gate.ApprovePost(ctx, uuid.New(), "")
		assert.ErrorIs(t, err, sandbox.ErrActionNotFound)
	})
}
