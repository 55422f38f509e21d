package sandbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/pipeline/pkg/scorer"
)

// Mode gates what happens when a handler attempts a side-effecting
// publish. Exactly one mode is active at a time; transitions are explicit
// administrator actions, never automatic.
type Mode string

const (
	// ModeSimulation intercepts every publish, scores it, and records it.
	// No external call is ever made. This is the cold-start default.
	ModeSimulation Mode = "simulation"
	// ModeValidation intercepts like simulation but holds each record for
	// an operator approve/reject decision.
	ModeValidation Mode = "validation"
	// ModeProduction executes publishes for real, recording them for audit.
	ModeProduction Mode = "production"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSimulation, ModeValidation, ModeProduction:
		return true
	}
	return false
}

// ActionStatus is the lifecycle state of a SimulatedAction.
type ActionStatus string

const (
	StatusSimulated         ActionStatus = "simulated"
	StatusPendingValidation ActionStatus = "pending_validation"
	StatusApproved          ActionStatus = "approved"
	StatusRejected          ActionStatus = "rejected"
	StatusPublished         ActionStatus = "published"
)

// SimulatedAction records a prospective (or, once published, completed)
// external action together with its quality analysis. The persistent
// store is the single source of truth for these records; there is no
// shadow in-memory copy to drift from it after a restart.
type SimulatedAction struct {
	ID          uuid.UUID       `json:"id"`
	Platform    scorer.Platform `json:"platform"`
	Content     scorer.Content  `json:"content"`
	Analysis    scorer.Analysis `json:"analysis"`
	Status      ActionStatus    `json:"status"`
	Feedback    string          `json:"feedback,omitempty"`
	ExternalID  string          `json:"external_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ValidatedAt *time.Time      `json:"validated_at,omitempty"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// ActionFilter narrows ListActions results. Zero-value fields are ignored.
type ActionFilter struct {
	Status   ActionStatus
	Platform scorer.Platform
	Limit    int
}

// PublishReceipt is what a platform client reports back for a real
// publish.
type PublishReceipt struct {
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PublishResult is returned to handlers by Gate.Publish. Executed is true
// only when a real external call was made; otherwise Action carries the
// recorded simulated action.
type PublishResult struct {
	Executed   bool             `json:"executed"`
	Mode       Mode             `json:"mode"`
	ExternalID string           `json:"external_id,omitempty"`
	Action     *SimulatedAction `json:"action,omitempty"`
}
