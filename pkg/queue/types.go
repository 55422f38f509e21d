package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Priority represents task priority (0-100, higher is more important).
type Priority int8

const (
	PriorityMin     Priority = 0
	PriorityLow     Priority = 25
	PriorityMedium  Priority = 50
	PriorityHigh    Priority = 75
	PriorityMax     Priority = 100
	PriorityDefault Priority = PriorityMedium
)

// Valid checks if the priority is within valid range.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Well-known task types dispatched by the worker. The string value doubles
// as the handler registry key, prefixed by business domain.
const (
	TaskPostInstagram   = "post.instagram"
	TaskPostFacebook    = "post.facebook"
	TaskPostTikTok      = "post.tiktok"
	TaskContentGenerate = "content.generate"
	TaskClientRemind    = "client.remind"
	TaskClientFollowup  = "client.followup"
	TaskClientBirthday  = "client.birthday"
	TaskReportDaily     = "report.daily"
	TaskReportWeekly    = "report.weekly"
	TaskCompetitorCheck = "competitor.check"
	TaskInsightsUpdate  = "insights.update"
)

// Task is a single unit of deferred work. A task is immutable once
// persisted except for its status, attempt counter, lock fields, and
// result, all of which are owned by the broker.
type Task struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Status       TaskStatus      `json:"status"`
	Priority     Priority        `json:"priority"`
	Attempts     int8            `json:"attempts"`
	MaxAttempts  int8            `json:"max_attempts"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	LockedUntil  *time.Time      `json:"locked_until,omitempty"`
	LockedBy     *uuid.UUID      `json:"locked_by,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        *string         `json:"error,omitempty"`
	DefinitionID *uuid.UUID      `json:"definition_id,omitempty"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RecurringDefinition owns a calendar pattern and timezone. One definition
// produces unboundedly many task firings; it persists until cancelled.
// Definitions are unique by Name: re-registering a name replaces the
// previous trigger instead of duplicating it.
type RecurringDefinition struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	TaskType  string          `json:"task_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Pattern   string          `json:"pattern"`
	Timezone  string          `json:"timezone"`
	Priority  Priority        `json:"priority"`
	NextRunAt time.Time       `json:"next_run_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Location resolves the definition's timezone, falling back to UTC for
// unknown or empty zone names.
func (d RecurringDefinition) Location() *time.Location {
	if d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TaskFilter narrows ListTasks results. Zero-value fields are ignored.
type TaskFilter struct {
	Type   string
	Status TaskStatus
	Limit  int
}

// DeadTask records a task that exhausted all retries, kept aside for
// manual inspection and requeueing.
type DeadTask struct {
	ID       uuid.UUID       `json:"id"`
	TaskID   uuid.UUID       `json:"task_id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Error    string          `json:"error"`
	Attempts int8            `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}
