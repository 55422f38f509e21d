package scheduler

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/pipeline/pkg/logger"
	"github.com/glowdesk/pipeline/pkg/queue"
	"github.com/glowdesk/pipeline/pkg/timeexpr"
)

// Logical names of the built-in business triggers. Registration is keyed
// by name, so restarting the process replaces rather than duplicates them.
const (
	TriggerDailyReport     = "trigger.report.daily"
	TriggerWeeklyReport    = "trigger.report.weekly"
	TriggerBirthdaySweep   = "trigger.client.birthday"
	TriggerCompetitorCheck = "trigger.competitor.check"
	TriggerInsightsRefresh = "trigger.insights.update"
)

// Scheduler registers the fixed business triggers and offers an ad-hoc
// front-end that accepts natural-language time phrases. It holds no
// timers of its own; firing is the broker's job.
type Scheduler struct {
	queue    *queue.TaskQueue
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the canonical timezone used to anchor triggers and to
// interpret time phrases. Defaults to queue.DefaultTimezone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scheduler on top of a task queue.
func New(q *queue.TaskQueue, opts ...Option) (*Scheduler, error) {
	if q == nil {
		return nil, ErrQueueNil
	}

	loc, err := time.LoadLocation(queue.DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}

	s := &Scheduler{
		queue:    q,
		location: loc,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type trigger struct {
	name     string
	taskType string
	schedule queue.Schedule
}

func (s *Scheduler) triggers() []trigger {
	return []trigger{
		{TriggerDailyReport, queue.TaskReportDaily, queue.DailyAt(18, 0)},
		{TriggerWeeklyReport, queue.TaskReportWeekly, queue.WeeklyOn(time.Monday, 9, 0)},
		{TriggerBirthdaySweep, queue.TaskClientBirthday, queue.DailyAt(8, 0)},
		{TriggerCompetitorCheck, queue.TaskCompetitorCheck, queue.WeeklyOn(time.Wednesday, 10, 0)},
		{TriggerInsightsRefresh, queue.TaskInsightsUpdate, queue.WeeklyOn(time.Sunday, 20, 0)},
	}
}

// RegisterTriggers upserts the built-in business triggers. An unavailable
// broker does not abort startup: the condition is logged and the process
// runs degraded until the broker recovers, at which point the next restart
// or ad-hoc call picks up normally.
func (s *Scheduler) RegisterTriggers(ctx context.Context) error {
	for _, t := range s.triggers() {
		_, err := s.queue.ScheduleRecurring(ctx, t.name, t.taskType, nil, t.schedule,
			queue.WithRecurringTimezone(s.location))
		if err != nil {
			if errors.Is(err, queue.ErrQueueUnavailable) {
				s.logger.Warn("trigger registration skipped, broker unavailable",
					slog.String("trigger", t.name),
					logger.Error(err))
				return nil
			}
			return fmt.Errorf("failed to register trigger %q: %w", t.name, err)
		}
	}

	s.logger.Info("business triggers registered",
		slog.Int("count", len(s.triggers())),
		slog.String("timezone", s.location.String()))
	return nil
}

// ScheduleOnce schedules a task from a natural-language phrase such as
// "in 2 hours" or "tomorrow at 9am". A repetition phrase ("every monday")
// is promoted to a recurring trigger keyed by task type and calendar, since
// the caller's intent to repeat outweighs the method they reached for.
func (s *Scheduler) ScheduleOnce(ctx context.Context, taskType string, payload any, when string) (uuid.UUID, error) {
	res, err := timeexpr.Parse(when, s.now().In(s.location))
	if err != nil {
		return uuid.Nil, err
	}

	if res.Kind == timeexpr.KindRecurring {
		return s.scheduleCron(ctx, adHocName(taskType, res.Pattern), taskType, payload, res.Pattern)
	}

	id, err := s.queue.Enqueue(ctx, taskType, payload, queue.WithDelay(res.Delay))
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("task scheduled",
		logger.TaskID(id),
		logger.TaskType(taskType),
		slog.Duration("delay", res.Delay))
	return id, nil
}

// ScheduleRecurring registers a named recurring trigger from a phrase
// such as "every friday at 17:00", or from a raw 5-field cron expression.
// A one-shot phrase cannot recur and is rejected.
func (s *Scheduler) ScheduleRecurring(ctx context.Context, name, taskType string, payload any, pattern string) (uuid.UUID, error) {
	res, err := timeexpr.Parse(pattern, s.now().In(s.location))
	switch {
	case err == nil && res.Kind == timeexpr.KindRecurring:
		return s.scheduleCron(ctx, name, taskType, payload, res.Pattern)
	case err == nil:
		return uuid.Nil, fmt.Errorf("%w: %q describes a single moment, not a recurrence",
			timeexpr.ErrUnscheduledExpression, pattern)
	case errors.Is(err, timeexpr.ErrUnscheduledExpression):
		// Not a phrase we understand; maybe it is already a cron expression.
		return s.scheduleCron(ctx, name, taskType, payload, pattern)
	default:
		return uuid.Nil, err
	}
}

// Cancel removes a scheduled task or a recurring trigger by id.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.queue.Cancel(ctx, id)
}

func (s *Scheduler) scheduleCron(ctx context.Context, name, taskType string, payload any, pattern string) (uuid.UUID, error) {
	schedule, err := queue.Cron(pattern)
	if err != nil {
		return uuid.Nil, err
	}
	return s.queue.ScheduleRecurring(ctx, name, taskType, payload, schedule,
		queue.WithRecurringTimezone(s.location))
}

// adHocName keys an ad-hoc registration by task type and calendar, so two
// different calendars for the same task type coexist while repeating the
// same phrase replaces the earlier registration.
func adHocName(taskType, pattern string) string {
	h := fnv.New32a()
	h.Write([]byte(pattern))
	return fmt.Sprintf("adhoc.%s.%08x", taskType, h.Sum32())
}
