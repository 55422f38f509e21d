// Package timeexpr parses natural-language scheduling phrases into a
// tagged result: a recurring cron pattern ("every monday at 9"), a
// one-off delay ("in 2 days", "tomorrow at 10"), or a parse failure.
//
// The parser is a pure function over an explicit reference time; it owns
// no clock and performs no scheduling side effects. Matchers run in a
// fixed order with recurrence first, so any phrase containing a
// repetition marker is interpreted as a repeating trigger even when a
// one-off reading would also be possible.
package timeexpr
