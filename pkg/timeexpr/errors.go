package timeexpr

import "errors"

// ErrUnscheduledExpression is returned when a time phrase matches no
// known pattern. Callers decide their own fallback; the parser never
// guesses a silently wrong schedule.
var ErrUnscheduledExpression = errors.New("could not understand time expression")
