// Package scheduler turns business calendar rules and natural-language
// time phrases into queue registrations.
//
// On startup RegisterTriggers upserts the fixed studio-automation
// triggers (daily and weekly reports, the birthday sweep, competitor and
// insights refreshes) anchored in a canonical timezone. The scheduler
// owns no timers; the broker materializes firings, so a restart never
// duplicates triggers and a crashed process never loses them.
//
// The ad-hoc surface accepts phrases parsed by pkg/timeexpr:
//
//	s, _ := scheduler.New(taskQueue)
//	id, err := s.ScheduleOnce(ctx, queue.TaskClientRemind, payload, "tomorrow at 10am")
//	id, err = s.ScheduleRecurring(ctx, "promo.friday", queue.TaskPostInstagram, payload, "every friday at 17:00")
//
// A repetition phrase handed to ScheduleOnce is promoted to a recurring
// trigger. When the broker is unavailable at startup the process
// continues degraded and ad-hoc calls surface queue.ErrQueueUnavailable.
package scheduler
