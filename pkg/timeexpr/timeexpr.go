package timeexpr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind tags the interpretation of a parsed expression.
type Kind string

const (
	// KindRecurring means the expression describes a repeating calendar
	// pattern; Result.Pattern holds the cron expression.
	KindRecurring Kind = "recurring"
	// KindDelay means the expression describes a single future moment;
	// Result.Delay holds the offset from the reference time.
	KindDelay Kind = "delay"
)

// Result is the tagged outcome of Parse.
type Result struct {
	Kind    Kind
	Pattern string
	Delay   time.Duration
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Default firing hour for recurring phrases that name a day but no time
// ("every monday"). Content calendars want a working-hours slot, not
// midnight.
const defaultRecurringHour = 9

var (
	timeSuffixRe = `(?:\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?)?`

	reEveryInterval = regexp.MustCompile(`^(?:every|each)\s+(\d+)\s+(minute|minutes|min|mins|hour|hours|day|days)$`)
	reEveryUnit     = regexp.MustCompile(`^(?:every|each)\s+(minute|hour)$`)
	reEveryDay      = regexp.MustCompile(`^(?:(?:every|each)\s+day|daily)` + timeSuffixRe + `$`)
	reEveryWeekday  = regexp.MustCompile(`^(?:every|each)\s+([a-z]+)` + timeSuffixRe + `$`)
	reWeekdayAt     = regexp.MustCompile(`^([a-z]+)\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

	reInN       = regexp.MustCompile(`^in\s+(\d+)\s+(minute|minutes|min|mins|hour|hours|hr|hrs|day|days)$`)
	reInSingle  = regexp.MustCompile(`^in\s+an?\s+(minute|hour|day)$`)
	reTomorrow  = regexp.MustCompile(`^tomorrow` + timeSuffixRe + `$`)
	reTodayAt   = regexp.MustCompile(`^today\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	reSpaceRuns = regexp.MustCompile(`\s+`)
)

// Parse interprets a natural time phrase relative to now. Matchers are
// tried in order: recurrence patterns first, then one-off delays, so a
// phrase carrying a repetition marker ("every", "each", a bare weekday)
// always schedules a repeating trigger. Phrases that match nothing fail
// with ErrUnscheduledExpression so the caller can pick its own default.
func Parse(expr string, now time.Time) (Result, error) {
	s := normalize(expr)
	if s == "" {
		return Result{}, fmt.Errorf("%w: empty expression", ErrUnscheduledExpression)
	}

	if res, ok := parseRecurring(s); ok {
		return res, nil
	}
	if res, ok := parseDelay(s, now); ok {
		return res, nil
	}

	return Result{}, fmt.Errorf("%w: %q", ErrUnscheduledExpression, expr)
}

func normalize(expr string) string {
	s := strings.ToLower(strings.TrimSpace(expr))
	return reSpaceRuns.ReplaceAllString(s, " ")
}

func parseRecurring(s string) (Result, bool) {
	if m := reEveryInterval.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n <= 0 {
			return Result{}, false
		}
		return Result{Kind: KindRecurring, Pattern: fmt.Sprintf("@every %s", time.Duration(n)*unitDuration(m[2]))}, true
	}

	if m := reEveryUnit.FindStringSubmatch(s); m != nil {
		return Result{Kind: KindRecurring, Pattern: fmt.Sprintf("@every %s", unitDuration(m[1]))}, true
	}

	if m := reEveryDay.FindStringSubmatch(s); m != nil {
		hour, minute, ok := clockFrom(m[1], m[2], m[3], defaultRecurringHour)
		if !ok {
			return Result{}, false
		}
		return Result{Kind: KindRecurring, Pattern: fmt.Sprintf("%d %d * * *", minute, hour)}, true
	}

	if m := reEveryWeekday.FindStringSubmatch(s); m != nil {
		if wd, ok := weekdays[m[1]]; ok {
			hour, minute, ok := clockFrom(m[2], m[3], m[4], defaultRecurringHour)
			if !ok {
				return Result{}, false
			}
			return Result{Kind: KindRecurring, Pattern: fmt.Sprintf("%d %d * * %d", minute, hour, int(wd))}, true
		}
	}

	// A bare weekday with a time ("monday at 9") is a repetition marker:
	// the business default is a weekly slot, not a single post.
	if m := reWeekdayAt.FindStringSubmatch(s); m != nil {
		if wd, ok := weekdays[m[1]]; ok {
			hour, minute, ok := clockFrom(m[2], m[3], m[4], defaultRecurringHour)
			if !ok {
				return Result{}, false
			}
			return Result{Kind: KindRecurring, Pattern: fmt.Sprintf("%d %d * * %d", minute, hour, int(wd))}, true
		}
	}

	return Result{}, false
}

func parseDelay(s string, now time.Time) (Result, bool) {
	if m := reInN.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n <= 0 {
			return Result{}, false
		}
		return Result{Kind: KindDelay, Delay: time.Duration(n) * unitDuration(m[2])}, true
	}

	if m := reInSingle.FindStringSubmatch(s); m != nil {
		return Result{Kind: KindDelay, Delay: unitDuration(m[1])}, true
	}

	if m := reTomorrow.FindStringSubmatch(s); m != nil {
		if m[1] == "" {
			return Result{Kind: KindDelay, Delay: 24 * time.Hour}, true
		}
		hour, minute, ok := clockFrom(m[1], m[2], m[3], 0)
		if !ok {
			return Result{}, false
		}
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).AddDate(0, 0, 1)
		return Result{Kind: KindDelay, Delay: target.Sub(now)}, true
	}

	if m := reTodayAt.FindStringSubmatch(s); m != nil {
		hour, minute, ok := clockFrom(m[1], m[2], m[3], 0)
		if !ok {
			return Result{}, false
		}
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		// A time already gone today rolls to the same time tomorrow
		if !target.After(now) {
			target = target.AddDate(0, 0, 1)
		}
		return Result{Kind: KindDelay, Delay: target.Sub(now)}, true
	}

	return Result{}, false
}

func unitDuration(unit string) time.Duration {
	switch {
	case strings.HasPrefix(unit, "min"):
		return time.Minute
	case strings.HasPrefix(unit, "h"):
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// clockFrom resolves captured hour/minute/meridiem groups into a 24h
// clock, falling back to fallbackHour when no time was given.
func clockFrom(hourStr, minuteStr, meridiem string, fallbackHour int) (hour, minute int, ok bool) {
	if hourStr == "" {
		return fallbackHour, 0, true
	}

	hour, _ = strconv.Atoi(hourStr)
	if minuteStr != "" {
		minute, _ = strconv.Atoi(minuteStr)
	}

	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
