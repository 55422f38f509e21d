package email

import "errors"

var (
	// ErrInvalidConfig is returned when sender configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid email configuration")

	// ErrInvalidRecipient is returned when the recipient address is malformed.
	ErrInvalidRecipient = errors.New("invalid recipient address")

	// ErrInvalidMessage is returned when a message misses required fields.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrFailedToSend wraps delivery failures from the underlying provider.
	ErrFailedToSend = errors.New("failed to send email")
)
