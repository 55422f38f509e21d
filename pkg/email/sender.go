package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender delivers transactional client messages (reminders, follow-ups,
// birthday greetings). Sends must be safe to repeat: delivery of the same
// message twice is acceptable, so the task pipeline can retry freely.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single transactional message.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Tag     string `json:"tag,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the message has a deliverable recipient and content.
func (m Message) Validate() error {
	if m.To == "" || !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient %q", ErrInvalidRecipient, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidMessage)
	}
	if m.Body == "" {
		return fmt.Errorf("%w: body is empty", ErrInvalidMessage)
	}
	return nil
}
