package scorer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/scorer"
)

var lunchtime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func strongPost() scorer.Content {
	return scorer.Content{
		Platform: scorer.PlatformInstagram,
		Text:     "Fresh spring balayage is here! ✨ Book now and get 20% off, only 49€ this week 💇",
		Hashtags: []string{"#balayage", "#hair", "#salon", "#spring", "#glowup"},
		MediaRef: "media/balayage-before-after.jpg",
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	t.Run("strong post scores an A", func(t *testing.T) {
		t.Parallel()

		a := scorer.Analyze(strongPost(), scorer.WithEvaluationTime(lunchtime))
		assert.Equal(t, 100, a.Score)
		assert.Equal(t, "A", a.Grade)
		assert.Empty(t, a.Warnings)
		assert.Empty(t, a.Suggestions)
		assert.Len(t, a.Checks, 7)
	})

	t.Run("empty post fails everything", func(t *testing.T) {
		t.Parallel()

		// Outside the engagement window nothing is awarded at all.
		at := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
		a := scorer.Analyze(scorer.Content{Platform: scorer.PlatformInstagram},
			scorer.WithEvaluationTime(at))

		assert.LessOrEqual(t, a.Score, 15)
		assert.Equal(t, "F", a.Grade)
		assert.NotEmpty(t, a.Warnings)
		assert.NotEmpty(t, a.Suggestions)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		t.Parallel()

		first := scorer.Analyze(strongPost(), scorer.WithEvaluationTime(lunchtime))
		for range 5 {
			again := scorer.Analyze(strongPost(), scorer.WithEvaluationTime(lunchtime))
			assert.Equal(t, first, again)
		}
	})

	t.Run("hashtag bands differ per platform", func(t *testing.T) {
		t.Parallel()

		content := strongPost()
		content.Platform = scorer.PlatformTikTok
		// Five hashtags max out TikTok's band but the same list would be
		// below Instagram's minimum if it were shorter.
		a := scorer.Analyze(content, scorer.WithEvaluationTime(lunchtime))
		assert.True(t, checkPassed(a, "hashtag_count"))

		content.Hashtags = append(content.Hashtags, "#one", "#two")
		a = scorer.Analyze(content, scorer.WithEvaluationTime(lunchtime))
		assert.False(t, checkPassed(a, "hashtag_count"))
	})

	t.Run("hashtags inside the text count", func(t *testing.T) {
		t.Parallel()

		content := scorer.Content{
			Platform: scorer.PlatformFacebook,
			Text:     "New week, new look! Book your slot today. #hair #salon #style",
			MediaRef: "media/look.jpg",
		}
		a := scorer.Analyze(content, scorer.WithEvaluationTime(lunchtime))
		assert.True(t, checkPassed(a, "hashtag_count"))
	})

	t.Run("missing media is a warning", func(t *testing.T) {
		t.Parallel()

		content := strongPost()
		content.MediaRef = ""
		a := scorer.Analyze(content, scorer.WithEvaluationTime(lunchtime))

		assert.False(t, checkPassed(a, "media_attached"))
		assert.Equal(t, 75, a.Score)
		assert.NotEmpty(t, a.Warnings)
	})

	t.Run("posting time outside windows loses points", func(t *testing.T) {
		t.Parallel()

		night := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
		a := scorer.Analyze(strongPost(), scorer.WithEvaluationTime(night))
		assert.False(t, checkPassed(a, "posting_time"))
		assert.Equal(t, 95, a.Score)
	})

	t.Run("emoji overload is flagged", func(t *testing.T) {
		t.Parallel()

		content := strongPost()
		content.Text += " 🎉🎉🎉🎉🎉🎉🎉🎉🎉🎉🎉"
		a := scorer.Analyze(content, scorer.WithEvaluationTime(lunchtime))
		assert.False(t, checkPassed(a, "emoji_count"))
		assert.NotEmpty(t, a.Warnings)
	})

	t.Run("middling post lands in the B band", func(t *testing.T) {
		t.Parallel()

		content := strongPost()
		content.MediaRef = ""
		a := scorer.Analyze(content, scorer.WithEvaluationTime(lunchtime))
		require.Equal(t, 75, a.Score)
		assert.Equal(t, "B", a.Grade)
		assert.Contains(t, a.Recommendation, "good post")
	})
}

func checkPassed(a scorer.Analysis, name string) bool {
	for _, c := range a.Checks {
		if c.Name == name {
			return c.Passed
		}
	}
	return false
}
