package scorer

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Platform identifies the social network a post targets. Hashtag
// expectations differ per platform.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
)

// Content is a prospective post to be graded.
type Content struct {
	Platform Platform `json:"platform"`
	Text     string   `json:"text"`
	Hashtags []string `json:"hashtags,omitempty"`
	MediaRef string   `json:"media_ref,omitempty"`
}

// Check is a single rubric line with the points it awarded.
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Points  int    `json:"points"`
	Awarded int    `json:"awarded"`
}

// Analysis is the deterministic scoring result for a Content.
type Analysis struct {
	Score          int      `json:"score"`
	Grade          string   `json:"grade"`
	Checks         []Check  `json:"checks"`
	Warnings       []string `json:"warnings,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
	Recommendation string   `json:"recommendation"`
}

// Option configures a single Analyze call.
type Option func(*options)

type options struct {
	at time.Time
}

// WithEvaluationTime pins the clock used by the time-of-day check. With a
// fixed time, Analyze is a pure function of its input.
func WithEvaluationTime(t time.Time) Option {
	return func(o *options) {
		o.at = t
	}
}

// hashtag bands per platform: too few hashtags bury a post, too many read
// as spam. Values outside the known platforms fall back to the widest band.
type band struct{ min, max int }

var hashtagBands = map[Platform]band{
	PlatformInstagram: {5, 30},
	PlatformFacebook:  {3, 10},
	PlatformTikTok:    {1, 5},
}

var defaultBand = band{1, 30}

var ctaPhrases = []string{
	"book now", "book your", "reserve", "call us", "contact us", "dm us",
	"link in bio", "sign up", "shop now", "order now", "learn more",
	"join us", "visit us", "don't miss", "get yours", "try it", "swipe up",
}

var (
	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	priceRe   = regexp.MustCompile(`(?i)(?:[$€£]\s?\d+(?:[.,]\d{1,2})?)|(?:\d+(?:[.,]\d{1,2})?\s?(?:€|eur|usd|chf|dollars?|euros?|francs?))`)
)

// High-engagement posting windows, local hours inclusive: lunch break and
// after-work evening.
var engagementWindows = [][2]int{{11, 13}, {18, 20}}

// Analyze grades a prospective post against a fixed rubric and returns a
// score out of 100 with a letter grade and actionable feedback. The same
// input always yields the same output; the only clock-dependent check is
// time-of-day, which can be pinned with WithEvaluationTime.
func Analyze(content Content, opts ...Option) Analysis {
	o := &options{at: time.Now()}
	for _, opt := range opts {
		opt(o)
	}

	var a Analysis

	body := strings.TrimSpace(hashtagRe.ReplaceAllString(content.Text, ""))
	a.addCheck("body_length", 15, len([]rune(body)) > 20)
	if !last(a.Checks).Passed {
		a.Suggestions = append(a.Suggestions, "write at least a sentence of caption text beyond the hashtags")
	}

	tags := countHashtags(content)
	b, ok := hashtagBands[content.Platform]
	if !ok {
		b = defaultBand
	}
	a.addCheck("hashtag_count", 20, tags >= b.min && tags <= b.max)
	if !last(a.Checks).Passed {
		a.Suggestions = append(a.Suggestions,
			fmt.Sprintf("use between %d and %d hashtags for %s (found %d)", b.min, b.max, content.Platform, tags))
	}

	a.addCheck("media_attached", 25, content.MediaRef != "")
	if !last(a.Checks).Passed {
		a.Warnings = append(a.Warnings, "posts without an image or video get a fraction of the reach")
	}

	a.addCheck("call_to_action", 15, hasCTA(content.Text))
	if !last(a.Checks).Passed {
		a.Suggestions = append(a.Suggestions, `add a call to action such as "book now" or "dm us"`)
	}

	emoji := countEmoji(content.Text)
	a.addCheck("emoji_count", 10, emoji >= 1 && emoji <= 10)
	if !last(a.Checks).Passed {
		if emoji == 0 {
			a.Suggestions = append(a.Suggestions, "a few emoji make the caption friendlier")
		} else {
			a.Warnings = append(a.Warnings, "more than 10 emoji reads as spam")
		}
	}

	a.addCheck("price_mention", 10, priceRe.MatchString(content.Text))

	a.addCheck("posting_time", 5, inEngagementWindow(o.at.Hour()))

	a.Grade = grade(a.Score)
	a.Recommendation = recommendation(a.Grade)
	return a
}

func (a *Analysis) addCheck(name string, points int, passed bool) {
	awarded := 0
	if passed {
		awarded = points
	}
	a.Score += awarded
	a.Checks = append(a.Checks, Check{Name: name, Passed: passed, Points: points, Awarded: awarded})
}

func last(checks []Check) Check {
	return checks[len(checks)-1]
}

func countHashtags(content Content) int {
	n := len(hashtagRe.FindAllString(content.Text, -1))
	for _, tag := range content.Hashtags {
		if strings.TrimSpace(tag) != "" {
			n++
		}
	}
	return n
}

func hasCTA(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range ctaPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// countEmoji covers the common emoji blocks: emoticons, pictographs,
// transport, supplemental symbols, and dingbats.
func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1F5FF, // symbols & pictographs
			r >= 0x1F600 && r <= 0x1F64F, // emoticons
			r >= 0x1F680 && r <= 0x1F6FF, // transport & map
			r >= 0x1F900 && r <= 0x1F9FF, // supplemental symbols
			r >= 0x2600 && r <= 0x27BF: // misc symbols & dingbats
			n++
		}
	}
	return n
}

func inEngagementWindow(hour int) bool {
	for _, w := range engagementWindows {
		if hour >= w[0] && hour <= w[1] {
			return true
		}
	}
	return false
}

func grade(score int) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 60:
		return "B"
	case score >= 40:
		return "C"
	case score >= 20:
		return "D"
	default:
		return "F"
	}
}

func recommendation(grade string) string {
	switch grade {
	case "A":
		return "excellent post, ready to publish"
	case "B":
		return "good post, minor improvements possible"
	case "C":
		return "average post, review the suggestions before publishing"
	case "D":
		return "weak post, rework the caption and media before publishing"
	default:
		return "post needs a full rework before it is worth publishing"
	}
}
