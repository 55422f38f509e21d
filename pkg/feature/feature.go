package feature

import (
	"context"
	"time"
)

// Tenant is the slice of tenant configuration the pipeline consumes:
// identity, operating timezone, currency for price formatting, and the
// platforms the tenant publishes to.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	Currency  string    `json:"currency"`
	Platforms []string  `json:"platforms,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Location resolves the tenant timezone, falling back to UTC.
func (t Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Well-known feature flags consulted by task handlers.
const (
	FlagRemindersEnabled  = "reminders.enabled"
	FlagFollowupsEnabled  = "followups.enabled"
	FlagBirthdaysEnabled  = "birthdays.enabled"
	FlagAutoPostEnabled   = "autopost.enabled"
	FlagReportsEnabled    = "reports.enabled"
	FlagCompetitorEnabled = "competitor.enabled"
)

// Lookup is the read-only tenant configuration interface the pipeline
// consumes. The backing store belongs to the surrounding service; this
// core only reads from it.
type Lookup interface {
	// IsEnabled checks a feature flag for a tenant. Unknown flags report
	// false with ErrFlagNotFound.
	IsEnabled(ctx context.Context, tenantID, flag string) (bool, error)

	// GetTenant returns a tenant's configuration, or ErrTenantNotFound.
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)
}
