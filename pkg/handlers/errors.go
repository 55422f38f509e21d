package handlers

import "errors"

var (
	// ErrGateNil is returned when constructing social handlers without a
	// sandbox gate. Handlers must never publish directly.
	ErrGateNil = errors.New("sandbox gate cannot be nil")

	// ErrProviderNil is returned when a required provider is missing.
	ErrProviderNil = errors.New("provider cannot be nil")

	// ErrLookupNil is returned when the tenant lookup is missing.
	ErrLookupNil = errors.New("feature lookup cannot be nil")

	// ErrSenderNil is returned when the email sender is missing.
	ErrSenderNil = errors.New("email sender cannot be nil")

	// ErrEmptyContent is returned when a post has neither text nor a
	// prompt to generate text from.
	ErrEmptyContent = errors.New("post has no text and no prompt")

	// ErrMissingTenant is returned when a payload omits the tenant id.
	ErrMissingTenant = errors.New("payload is missing tenant id")
)
