package sandbox

import "errors"

// Common errors
var (
	// ErrStoreNil is returned when a nil action store is provided
	ErrStoreNil = errors.New("action store cannot be nil")

	// ErrPublisherNil is returned when a nil publisher is provided
	ErrPublisherNil = errors.New("publisher cannot be nil")

	// ErrInvalidMode is returned when setting an unrecognized sandbox mode.
	// The mode is rejected synchronously, before any state mutation.
	ErrInvalidMode = errors.New("invalid sandbox mode")

	// ErrActionNotFound is returned when an action id is unknown
	ErrActionNotFound = errors.New("simulated action not found")

	// ErrActionNotApproved is returned when executing an action whose
	// status is not approved
	ErrActionNotApproved = errors.New("action is not approved for execution")

	// ErrActionNotPending is returned when approving or rejecting an
	// action that is not waiting for validation
	ErrActionNotPending = errors.New("action is not pending validation")

	// ErrPublishFailed is returned when the platform client reports a
	// failed publish
	ErrPublishFailed = errors.New("publish failed")
)
