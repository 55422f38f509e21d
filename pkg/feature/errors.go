package feature

import "errors"

// Predefined errors for the feature package.
var (
	// ErrTenantNotFound indicates the requested tenant is unknown.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrFlagNotFound indicates the requested feature flag is not
	// configured for the tenant.
	ErrFlagNotFound = errors.New("feature flag not found")

	// ErrInvalidTenant indicates invalid tenant parameters.
	ErrInvalidTenant = errors.New("invalid tenant parameters")
)
