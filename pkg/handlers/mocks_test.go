package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/glowdesk/pipeline/pkg/email"
	"github.com/glowdesk/pipeline/pkg/handlers"
	"github.com/glowdesk/pipeline/pkg/sandbox"
	"github.com/glowdesk/pipeline/pkg/scorer"
)

type mockAI struct {
	mock.Mock
}

func (m *mockAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockAI) GenerateImage(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, platform scorer.Platform, content scorer.Content) (sandbox.PublishReceipt, error) {
	args := m.Called(ctx, platform, content)
	return args.Get(0).(sandbox.PublishReceipt), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) BirthdaysOn(ctx context.Context, date time.Time) ([]handlers.Client, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]handlers.Client), args.Error(1)
}

type mockStats struct {
	mock.Mock
}

func (m *mockStats) ListTenants(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStats) RevenueSummary(ctx context.Context, tenantID string, from, to time.Time) (*handlers.RevenueSummary, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(*handlers.RevenueSummary), args.Error(1)
}

func (m *mockStats) TopServices(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]handlers.ServiceStat, error) {
	args := m.Called(ctx, tenantID, from, to, limit)
	return args.Get(0).([]handlers.ServiceStat), args.Error(1)
}

func (m *mockStats) CompetitorSnapshot(ctx context.Context, tenantID string) ([]handlers.CompetitorStat, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]handlers.CompetitorStat), args.Error(1)
}

func (m *mockStats) AudienceInsights(ctx context.Context, tenantID string) (*handlers.AudienceInsights, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(*handlers.AudienceInsights), args.Error(1)
}
