package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/glowdesk/pipeline/pkg/feature"
	"github.com/glowdesk/pipeline/pkg/logger"
	"github.com/glowdesk/pipeline/pkg/queue"
	"github.com/glowdesk/pipeline/pkg/sandbox"
	"github.com/glowdesk/pipeline/pkg/scorer"
)

// PostPayload is the input for the post.* task family. Text and MediaRef
// may be left empty when the matching prompt is set; the handler then
// generates them before publishing.
type PostPayload struct {
	TenantID    string   `json:"tenant_id"`
	Text        string   `json:"text,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	MediaRef    string   `json:"media_ref,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	ImagePrompt string   `json:"image_prompt,omitempty"`
}

// PostResult records what the sandbox gate decided about a publish
// attempt. Executed is true only in production mode.
type PostResult struct {
	Executed   bool         `json:"executed"`
	Mode       sandbox.Mode `json:"mode"`
	Skipped    bool         `json:"skipped,omitempty"`
	SkipReason string       `json:"skip_reason,omitempty"`
	ActionID   uuid.UUID    `json:"action_id,omitempty"`
	ExternalID string       `json:"external_id,omitempty"`
	Score      int          `json:"score,omitempty"`
	Grade      string       `json:"grade,omitempty"`
}

// Social owns the post.* handlers. Every publish goes through the
// sandbox gate; the handlers hold no reference to a platform client.
type Social struct {
	gate     *sandbox.Gate
	ai       AIProvider
	features feature.Lookup
	logger   *slog.Logger
}

// NewSocial creates the social-media handler set.
func NewSocial(gate *sandbox.Gate, ai AIProvider, features feature.Lookup, logger *slog.Logger) (*Social, error) {
	if gate == nil {
		return nil, ErrGateNil
	}
	if ai == nil {
		return nil, ErrProviderNil
	}
	if features == nil {
		return nil, ErrLookupNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Social{gate: gate, ai: ai, features: features, logger: logger}, nil
}

// Handlers returns one handler per supported platform, ready for worker
// registration.
func (s *Social) Handlers() []queue.Handler {
	return []queue.Handler{
		queue.NewTaskHandler(queue.TaskPostInstagram, s.post(scorer.PlatformInstagram)),
		queue.NewTaskHandler(queue.TaskPostFacebook, s.post(scorer.PlatformFacebook)),
		queue.NewTaskHandler(queue.TaskPostTikTok, s.post(scorer.PlatformTikTok)),
	}
}

func (s *Social) post(platform scorer.Platform) queue.TaskHandlerFunc[PostPayload, PostResult] {
	return func(ctx context.Context, payload PostPayload) (PostResult, error) {
		if payload.TenantID == "" {
			return PostResult{}, ErrMissingTenant
		}

		enabled, err := flagEnabled(ctx, s.features, payload.TenantID, feature.FlagAutoPostEnabled)
		if err != nil {
			return PostResult{}, fmt.Errorf("failed to check autopost flag for tenant %s: %w", payload.TenantID, err)
		}
		if !enabled {
			s.logger.InfoContext(ctx, "post skipped, autopost disabled",
				logger.TenantID(payload.TenantID),
				logger.Platform(string(platform)))
			return PostResult{Skipped: true, SkipReason: "autopost disabled", Mode: s.gate.Mode()}, nil
		}

		content, err := s.compose(ctx, platform, payload)
		if err != nil {
			return PostResult{}, err
		}

		published, err := s.gate.Publish(ctx, platform, content)
		if err != nil {
			return PostResult{}, err
		}

		result := PostResult{
			Executed:   published.Executed,
			Mode:       published.Mode,
			ExternalID: published.ExternalID,
		}
		if published.Action != nil {
			result.ActionID = published.Action.ID
			result.Score = published.Action.Analysis.Score
			result.Grade = published.Action.Analysis.Grade
		}
		return result, nil
	}
}

// compose fills in missing text and media from the AI provider. Content
// regeneration on retry is acceptable; publishing twice is prevented by
// the at-least-once contract of the queue plus the gate's record keeping.
func (s *Social) compose(ctx context.Context, platform scorer.Platform, payload PostPayload) (scorer.Content, error) {
	text := payload.Text
	if text == "" {
		if payload.Prompt == "" {
			return scorer.Content{}, ErrEmptyContent
		}
		generated, err := s.ai.GenerateText(ctx, payload.Prompt)
		if err != nil {
			return scorer.Content{}, fmt.Errorf("failed to generate post text: %w", err)
		}
		text = generated
	}

	mediaRef := payload.MediaRef
	if mediaRef == "" && payload.ImagePrompt != "" {
		generated, err := s.ai.GenerateImage(ctx, payload.ImagePrompt)
		if err != nil {
			return scorer.Content{}, fmt.Errorf("failed to generate post image: %w", err)
		}
		mediaRef = generated
	}

	return scorer.Content{
		Platform: platform,
		Text:     text,
		Hashtags: payload.Hashtags,
		MediaRef: mediaRef,
	}, nil
}
