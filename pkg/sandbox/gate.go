package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/pipeline/pkg/logger"
	"github.com/glowdesk/pipeline/pkg/scorer"
)

// Publisher is the per-platform publishing client. Handlers never call it
// directly: every cross-boundary publish goes through the Gate.
type Publisher interface {
	Publish(ctx context.Context, platform scorer.Platform, content scorer.Content) (PublishReceipt, error)
}

// Gate owns the process-wide sandbox mode and the simulated-action store,
// and wraps every side-effecting publish attempt. Mode reads are advisory
// snapshots: a mode change mid-flight does not retroactively affect an
// already-dispatched action.
type Gate struct {
	mu        sync.RWMutex
	mode      Mode
	store     ActionStore
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMode sets the initial mode. Unrecognized values are ignored and the
// gate stays on the simulation default, the safest cold-start choice.
func WithMode(mode Mode) GateOption {
	return func(g *Gate) {
		if mode.Valid() {
			g.mode = mode
		}
	}
}

// WithGateLogger sets the logger used for audit entries.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock overrides the gate's time source, pinning scoring and
// timestamps in tests.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a sandbox gate. The zero mode is simulation: a freshly
// started process cannot publish anything until an operator promotes it.
func NewGate(store ActionStore, publisher Publisher, opts ...GateOption) (*Gate, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if publisher == nil {
		return nil, ErrPublisherNil
	}

	g := &Gate{
		mode:      ModeSimulation,
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Mode returns the currently active sandbox mode.
func (g *Gate) Mode() Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// SetMode switches the sandbox mode. Unrecognized modes are rejected
// before any state mutation; every transition is written to the audit log.
func (g *Gate) SetMode(ctx context.Context, mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	g.mu.Lock()
	previous := g.mode
	g.mode = mode
	g.mu.Unlock()

	g.logger.InfoContext(ctx, "sandbox mode changed",
		slog.String("from", string(previous)),
		slog.String("to", string(mode)))
	return nil
}

// Publish is the single entry point for handler publish attempts.
//
// In simulation mode the content is scored and recorded, and nothing
// leaves the process. In validation mode the record is additionally held
// for an operator decision. Only in production mode is the platform
// client invoked, and the outcome is still recorded for audit.
func (g *Gate) Publish(ctx context.Context, platform scorer.Platform, content scorer.Content) (*PublishResult, error) {
	mode := g.Mode()

	if mode == ModeProduction {
		receipt, err := g.publisher.Publish(ctx, platform, content)
		if err != nil {
			return nil, fmt.Errorf("publish to %s failed: %w", platform, err)
		}
		if !receipt.Success {
			return nil, fmt.Errorf("%w: %s: %s", ErrPublishFailed, platform, receipt.Error)
		}

		action := g.newAction(platform, content)
		action.Status = StatusPublished
		action.ExternalID = receipt.ExternalID
		publishedAt := g.now()
		action.PublishedAt = &publishedAt
		if err := g.store.CreateAction(ctx, action); err != nil {
			// The post is out; a failed audit record must not fail the task
			g.logger.ErrorContext(ctx, "failed to record published action",
				logger.Platform(string(platform)),
				logger.Error(err))
		}

		g.logger.InfoContext(ctx, "post published",
			logger.Platform(string(platform)),
			slog.String("external_id", receipt.ExternalID))

		return &PublishResult{Executed: true, Mode: mode, ExternalID: receipt.ExternalID, Action: action}, nil
	}

	action := g.newAction(platform, content)
	if mode == ModeValidation {
		action.Status = StatusPendingValidation
	}

	if err := g.store.CreateAction(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to record simulated action: %w", err)
	}

	g.logger.InfoContext(ctx, "publish intercepted",
		slog.String("mode", string(mode)),
		logger.Platform(string(platform)),
		slog.String("action_id", action.ID.String()),
		slog.Int("score", action.Analysis.Score),
		slog.String("grade", action.Analysis.Grade))

	return &PublishResult{Executed: false, Mode: mode, Action: action}, nil
}

// SimulatePost runs a prospective post through the gate under the current
// mode and returns the recorded action. It is the operator-facing twin of
// Publish.
func (g *Gate) SimulatePost(ctx context.Context, platform scorer.Platform, content scorer.Content) (*SimulatedAction, error) {
	result, err := g.Publish(ctx, platform, content)
	if err != nil {
		return nil, err
	}
	return result.Action, nil
}

// ApprovePost approves a pending-validation action. Approval does not
// execute anything: a separate explicit ExecuteApprovedPost call performs
// the real publish.
func (g *Gate) ApprovePost(ctx context.Context, id uuid.UUID, feedback string) (*SimulatedAction, error) {
	return g.validate(ctx, id, StatusApproved, feedback)
}

// RejectPost rejects a pending-validation action with a reason. Rejection
// is terminal.
func (g *Gate) RejectPost(ctx context.Context, id uuid.UUID, reason string) (*SimulatedAction, error) {
	return g.validate(ctx, id, StatusRejected, reason)
}

func (g *Gate) validate(ctx context.Context, id uuid.UUID, to ActionStatus, feedback string) (*SimulatedAction, error) {
	action, err := g.store.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.Status != StatusPendingValidation {
		return nil, fmt.Errorf("%w: action %s is %q", ErrActionNotPending, id, action.Status)
	}

	validatedAt := g.now()
	action.Status = to
	action.Feedback = feedback
	action.ValidatedAt = &validatedAt

	if err := g.store.UpdateAction(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to update action %s: %w", id, err)
	}

	g.logger.InfoContext(ctx, "action validated",
		slog.String("action_id", id.String()),
		slog.String("status", string(to)),
		slog.String("feedback", feedback))

	return action, nil
}

// ExecuteApprovedPost performs the real publish for an approved action
// and transitions it to published. Any other status is rejected
// synchronously with ErrActionNotApproved, and the error names the
// current status so the operator knows what is missing.
func (g *Gate) ExecuteApprovedPost(ctx context.Context, id uuid.UUID) (*SimulatedAction, error) {
	action, err := g.store.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.Status != StatusApproved {
		return nil, fmt.Errorf("%w: action %s is %q", ErrActionNotApproved, id, action.Status)
	}

	receipt, err := g.publisher.Publish(ctx, action.Platform, action.Content)
	if err != nil {
		return nil, fmt.Errorf("publish to %s failed: %w", action.Platform, err)
	}
	if !receipt.Success {
		return nil, fmt.Errorf("%w: %s: %s", ErrPublishFailed, action.Platform, receipt.Error)
	}

	publishedAt := g.now()
	action.Status = StatusPublished
	action.ExternalID = receipt.ExternalID
	action.PublishedAt = &publishedAt

	if err := g.store.UpdateAction(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to update action %s: %w", id, err)
	}

	g.logger.InfoContext(ctx, "approved post executed",
		slog.String("action_id", id.String()),
		logger.Platform(string(action.Platform)),
		slog.String("external_id", receipt.ExternalID))

	return action, nil
}

// ListPendingValidations returns the actions waiting for an operator
// decision.
func (g *Gate) ListPendingValidations(ctx context.Context) ([]*SimulatedAction, error) {
	return g.store.ListActions(ctx, ActionFilter{Status: StatusPendingValidation})
}

// GetAction returns a single action by id.
func (g *Gate) GetAction(ctx context.Context, id uuid.UUID) (*SimulatedAction, error) {
	return g.store.GetAction(ctx, id)
}

// ListActions returns actions matching the filter, newest first.
func (g *Gate) ListActions(ctx context.Context, filter ActionFilter) ([]*SimulatedAction, error) {
	return g.store.ListActions(ctx, filter)
}

func (g *Gate) newAction(platform scorer.Platform, content scorer.Content) *SimulatedAction {
	content.Platform = platform
	return &SimulatedAction{
		ID:        uuid.New(),
		Platform:  platform,
		Content:   content,
		Analysis:  scorer.Analyze(content, scorer.WithEvaluationTime(g.now())),
		Status:    StatusSimulated,
		CreatedAt: g.now(),
	}
}
