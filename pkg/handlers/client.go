package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowdesk/pipeline/pkg/email"
	"github.com/glowdesk/pipeline/pkg/feature"
	"github.com/glowdesk/pipeline/pkg/logger"
	"github.com/glowdesk/pipeline/pkg/queue"
)

// RemindPayload is the input for client.remind.
type RemindPayload struct {
	TenantID      string    `json:"tenant_id"`
	ClientName    string    `json:"client_name"`
	ClientEmail   string    `json:"client_email"`
	ServiceName   string    `json:"service_name"`
	AppointmentAt time.Time `json:"appointment_at"`
}

// FollowupPayload is the input for client.followup.
type FollowupPayload struct {
	TenantID    string `json:"tenant_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ServiceName string `json:"service_name"`
}

// MessageResult reports whether a client message went out and why not
// when it did not. Re-sending on a retried task is acceptable.
type MessageResult struct {
	Sent       bool   `json:"sent"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// BirthdaySweepResult summarizes one run of the daily birthday sweep.
type BirthdaySweepResult struct {
	Date    string `json:"date"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// Messaging owns the client.* handlers: appointment reminders, visit
// followups, and the daily birthday sweep.
type Messaging struct {
	sender   email.Sender
	features feature.Lookup
	clients  ClientDirectory
	logger   *slog.Logger
	now      func() time.Time
}

// MessagingOption configures the messaging handler set.
type MessagingOption func(*Messaging)

// WithMessagingClock overrides the time source. Used by tests.
func WithMessagingClock(now func() time.Time) MessagingOption {
	return func(m *Messaging) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMessaging creates the client-messaging handler set.
func NewMessaging(sender email.Sender, features feature.Lookup, clients ClientDirectory, logger *slog.Logger, opts ...MessagingOption) (*Messaging, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	if features == nil {
		return nil, ErrLookupNil
	}
	if clients == nil {
		return nil, ErrProviderNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Messaging{
		sender:   sender,
		features: features,
		clients:  clients,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Handlers returns the client handlers for worker registration.
func (m *Messaging) Handlers() []queue.Handler {
	return []queue.Handler{
		queue.NewTaskHandler(queue.TaskClientRemind, m.remind),
		queue.NewTaskHandler(queue.TaskClientFollowup, m.followup),
		queue.NewSweepHandler(queue.TaskClientBirthday, m.birthdaySweep),
	}
}

func (m *Messaging) remind(ctx context.Context, payload RemindPayload) (MessageResult, error) {
	if payload.TenantID == "" {
		return MessageResult{}, ErrMissingTenant
	}

	enabled, err := flagEnabled(ctx, m.features, payload.TenantID, feature.FlagRemindersEnabled)
	if err != nil {
		return MessageResult{}, fmt.Errorf("failed to check reminders flag: %w", err)
	}
	if !enabled {
		return MessageResult{Skipped: true, SkipReason: "reminders disabled"}, nil
	}

	tenant, err := m.features.GetTenant(ctx, payload.TenantID)
	if err != nil {
		return MessageResult{}, err
	}

	when := payload.AppointmentAt.In(tenant.Location())
	msg := email.Message{
		To:      payload.ClientEmail,
		Subject: fmt.Sprintf("Reminder: %s at %s", payload.ServiceName, tenant.Name),
		Body: fmt.Sprintf("Hi %s,\n\nThis is a reminder for your %s appointment on %s at %s.\n\nSee you soon,\n%s",
			payload.ClientName, payload.ServiceName,
			when.Format("Monday, 2 January"), when.Format("15:04"), tenant.Name),
		Tag: "reminder",
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return MessageResult{}, err
	}
	return MessageResult{Sent: true}, nil
}

func (m *Messaging) followup(ctx context.Context, payload FollowupPayload) (MessageResult, error) {
	if payload.TenantID == "" {
		return MessageResult{}, ErrMissingTenant
	}

	enabled, err := flagEnabled(ctx, m.features, payload.TenantID, feature.FlagFollowupsEnabled)
	if err != nil {
		return MessageResult{}, fmt.Errorf("failed to check followups flag: %w", err)
	}
	if !enabled {
		return MessageResult{Skipped: true, SkipReason: "followups disabled"}, nil
	}

	tenant, err := m.features.GetTenant(ctx, payload.TenantID)
	if err != nil {
		return MessageResult{}, err
	}

	msg := email.Message{
		To:      payload.ClientEmail,
		Subject: fmt.Sprintf("How was your visit to %s?", tenant.Name),
		Body: fmt.Sprintf("Hi %s,\n\nThank you for choosing %s for your %s. We would love to hear how it went, and we are happy to book your next visit any time.\n\n%s",
			payload.ClientName, tenant.Name, payload.ServiceName, tenant.Name),
		Tag: "followup",
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return MessageResult{}, err
	}
	return MessageResult{Sent: true}, nil
}

// birthdaySweep greets every client whose birthday is today. One failed
// send does not abort the sweep; failures are counted and logged so the
// run completes for the remaining clients.
func (m *Messaging) birthdaySweep(ctx context.Context) (json.RawMessage, error) {
	today := m.now()
	clients, err := m.clients.BirthdaysOn(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list birthdays: %w", err)
	}

	result := BirthdaySweepResult{Date: today.Format("2006-01-02")}
	for _, client := range clients {
		enabled, err := flagEnabled(ctx, m.features, client.TenantID, feature.FlagBirthdaysEnabled)
		if err != nil || !enabled {
			result.Skipped++
			continue
		}

		tenant, err := m.features.GetTenant(ctx, client.TenantID)
		if err != nil {
			result.Skipped++
			continue
		}

		msg := email.Message{
			To:      client.Email,
			Subject: fmt.Sprintf("Happy birthday from %s!", tenant.Name),
			Body: fmt.Sprintf("Happy birthday, %s!\n\nEveryone at %s wishes you a wonderful day. Treat yourself, you have earned it.\n\n%s",
				client.Name, tenant.Name, tenant.Name),
			Tag: "birthday",
		}
		if err := m.sender.Send(ctx, msg); err != nil {
			result.Failed++
			m.logger.WarnContext(ctx, "birthday greeting failed",
				logger.TenantID(client.TenantID),
				logger.Error(err))
			continue
		}
		result.Sent++
	}

	return json.Marshal(result)
}
