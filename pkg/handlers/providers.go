package handlers

import (
	"context"
	"time"
)

// AIProvider generates post copy and imagery. Both calls are idempotent
// from the pipeline's point of view: retrying a failed task regenerates
// content without other side effects.
type AIProvider interface {
	// GenerateText produces post copy for a prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateImage produces an image and returns a media reference
	// usable in a publish call.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ClientDirectory is the read-only view of a tenant's client base that
// the messaging handlers consume.
type ClientDirectory interface {
	// BirthdaysOn lists clients whose birthday falls on the given date,
	// across all tenants. Year is ignored.
	BirthdaysOn(ctx context.Context, date time.Time) ([]Client, error)
}

// Client is a salon client record as the messaging handlers see it.
type Client struct {
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate time.Time `json:"birth_date,omitzero"`
}

// StatsSource is the read-only aggregate store behind the analytics
// handlers. The concrete implementation belongs to the surrounding
// service.
type StatsSource interface {
	// ListTenants enumerates tenant ids with analytics enabled storage.
	ListTenants(ctx context.Context) ([]string, error)

	// RevenueSummary aggregates bookings and revenue for a window.
	RevenueSummary(ctx context.Context, tenantID string, from, to time.Time) (*RevenueSummary, error)

	// TopServices returns the best-selling services for a window.
	TopServices(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]ServiceStat, error)

	// CompetitorSnapshot returns the latest observed competitor metrics.
	CompetitorSnapshot(ctx context.Context, tenantID string) ([]CompetitorStat, error)

	// AudienceInsights returns follower and engagement aggregates.
	AudienceInsights(ctx context.Context, tenantID string) (*AudienceInsights, error)
}

// RevenueSummary is a per-tenant booking and revenue aggregate.
type RevenueSummary struct {
	Appointments int     `json:"appointments"`
	Completed    int     `json:"completed"`
	NoShows      int     `json:"no_shows"`
	Revenue      float64 `json:"revenue"`
	Currency     string  `json:"currency"`
}

// ServiceStat ranks one service by bookings within a window.
type ServiceStat struct {
	Name     string  `json:"name"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

// CompetitorStat is one observed competitor account.
type CompetitorStat struct {
	Handle        string  `json:"handle"`
	Platform      string  `json:"platform"`
	Followers     int     `json:"followers"`
	PostsPerWeek  float64 `json:"posts_per_week"`
	EngagementPct float64 `json:"engagement_pct"`
}

// AudienceInsights aggregates a tenant's social audience.
type AudienceInsights struct {
	Followers     int     `json:"followers"`
	FollowerDelta int     `json:"follower_delta"`
	EngagementPct float64 `json:"engagement_pct"`
	BestPostHour  int     `json:"best_post_hour"`
}
