package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowdesk/pipeline/pkg/feature"
	"github.com/glowdesk/pipeline/pkg/queue"
)

// TenantReport is one tenant's slice of a daily or weekly report run.
type TenantReport struct {
	TenantID    string          `json:"tenant_id"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Revenue     *RevenueSummary `json:"revenue"`
	TopServices []ServiceStat   `json:"top_services,omitempty"`
}

// ReportResult aggregates a report sweep across tenants.
type ReportResult struct {
	Period  string         `json:"period"`
	Reports []TenantReport `json:"reports"`
	Skipped int            `json:"skipped"`
}

// CompetitorResult aggregates the weekly competitor check.
type CompetitorResult struct {
	Snapshots map[string][]CompetitorStat `json:"snapshots"`
	Skipped   int                         `json:"skipped"`
}

// InsightsResult aggregates the audience insights refresh.
type InsightsResult struct {
	Insights map[string]*AudienceInsights `json:"insights"`
	Skipped  int                          `json:"skipped"`
}

// Analytics owns the report.*, competitor.check and insights.update
// handlers. All of them are read-only sweeps over the stats source, so
// duplicate execution just recomputes the same aggregates.
type Analytics struct {
	stats    StatsSource
	features feature.Lookup
	logger   *slog.Logger
	now      func() time.Time
}

// AnalyticsOption configures the analytics handler set.
type AnalyticsOption func(*Analytics)

// WithAnalyticsClock overrides the time source. Used by tests.
func WithAnalyticsClock(now func() time.Time) AnalyticsOption {
	return func(a *Analytics) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAnalytics creates the analytics handler set.
func NewAnalytics(stats StatsSource, features feature.Lookup, logger *slog.Logger, opts ...AnalyticsOption) (*Analytics, error) {
	if stats == nil {
		return nil, ErrProviderNil
	}
	if features == nil {
		return nil, ErrLookupNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analytics{stats: stats, features: features, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Handlers returns the analytics handlers for worker registration.
func (a *Analytics) Handlers() []queue.Handler {
	return []queue.Handler{
		queue.NewSweepHandler(queue.TaskReportDaily, a.dailyReport),
		queue.NewSweepHandler(queue.TaskReportWeekly, a.weeklyReport),
		queue.NewSweepHandler(queue.TaskCompetitorCheck, a.competitorCheck),
		queue.NewSweepHandler(queue.TaskInsightsUpdate, a.insightsUpdate),
	}
}

func (a *Analytics) dailyReport(ctx context.Context) (json.RawMessage, error) {
	return a.report(ctx, "daily", 24*time.Hour)
}

func (a *Analytics) weeklyReport(ctx context.Context) (json.RawMessage, error) {
	return a.report(ctx, "weekly", 7*24*time.Hour)
}

// report computes per-tenant revenue aggregates for the trailing window.
// A tenant with reports disabled is counted as skipped, not an error;
// one tenant's stats failure fails the whole run so the task is retried.
func (a *Analytics) report(ctx context.Context, period string, window time.Duration) (json.RawMessage, error) {
	tenants, err := a.stats.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	to := a.now()
	from := to.Add(-window)
	result := ReportResult{Period: period, Reports: []TenantReport{}}

	for _, tenantID := range tenants {
		enabled, err := flagEnabled(ctx, a.features, tenantID, feature.FlagReportsEnabled)
		if err != nil || !enabled {
			result.Skipped++
			continue
		}

		revenue, err := a.stats.RevenueSummary(ctx, tenantID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate revenue for tenant %s: %w", tenantID, err)
		}
		top, err := a.stats.TopServices(ctx, tenantID, from, to, 5)
		if err != nil {
			return nil, fmt.Errorf("failed to rank services for tenant %s: %w", tenantID, err)
		}

		result.Reports = append(result.Reports, TenantReport{
			TenantID:    tenantID,
			From:        from,
			To:          to,
			Revenue:     revenue,
			TopServices: top,
		})
	}

	a.logger.InfoContext(ctx, "report computed",
		slog.String("period", period),
		slog.Int("tenants", len(result.Reports)),
		slog.Int("skipped", result.Skipped))
	return json.Marshal(result)
}

func (a *Analytics) competitorCheck(ctx context.Context) (json.RawMessage, error) {
	tenants, err := a.stats.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	result := CompetitorResult{Snapshots: map[string][]CompetitorStat{}}
	for _, tenantID := range tenants {
		enabled, err := flagEnabled(ctx, a.features, tenantID, feature.FlagCompetitorEnabled)
		if err != nil || !enabled {
			result.Skipped++
			continue
		}

		snapshot, err := a.stats.CompetitorSnapshot(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot competitors for tenant %s: %w", tenantID, err)
		}
		result.Snapshots[tenantID] = snapshot
	}

	return json.Marshal(result)
}

func (a *Analytics) insightsUpdate(ctx context.Context) (json.RawMessage, error) {
	tenants, err := a.stats.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	result := InsightsResult{Insights: map[string]*AudienceInsights{}}
	for _, tenantID := range tenants {
		insights, err := a.stats.AudienceInsights(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh insights for tenant %s: %w", tenantID, err)
		}
		result.Insights[tenantID] = insights
	}

	return json.Marshal(result)
}
