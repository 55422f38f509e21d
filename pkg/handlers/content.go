package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glowdesk/pipeline/pkg/logger"
	"github.com/glowdesk/pipeline/pkg/queue"
)

// GeneratePayload asks for post copy and optionally an image.
type GeneratePayload struct {
	TenantID    string `json:"tenant_id"`
	Prompt      string `json:"prompt"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// GenerateResult carries the generated assets back as the task result,
// ready to be embedded in a later post payload.
type GenerateResult struct {
	Text     string `json:"text"`
	MediaRef string `json:"media_ref,omitempty"`
}

// Content owns the content.generate handler. Generation has no external
// side effects beyond the provider call, so retries are safe.
type Content struct {
	ai     AIProvider
	logger *slog.Logger
}

// NewContent creates the content-generation handler set.
func NewContent(ai AIProvider, logger *slog.Logger) (*Content, error) {
	if ai == nil {
		return nil, ErrProviderNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Content{ai: ai, logger: logger}, nil
}

// Handlers returns the content handlers for worker registration.
func (c *Content) Handlers() []queue.Handler {
	return []queue.Handler{
		queue.NewTaskHandler(queue.TaskContentGenerate, c.generate),
	}
}

func (c *Content) generate(ctx context.Context, payload GeneratePayload) (GenerateResult, error) {
	if payload.TenantID == "" {
		return GenerateResult{}, ErrMissingTenant
	}
	if payload.Prompt == "" {
		return GenerateResult{}, ErrEmptyContent
	}

	text, err := c.ai.GenerateText(ctx, payload.Prompt)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("failed to generate text: %w", err)
	}

	result := GenerateResult{Text: text}
	if payload.ImagePrompt != "" {
		mediaRef, err := c.ai.GenerateImage(ctx, payload.ImagePrompt)
		if err != nil {
			return GenerateResult{}, fmt.Errorf("failed to generate image: %w", err)
		}
		result.MediaRef = mediaRef
	}

	c.logger.InfoContext(ctx, "content generated",
		logger.TenantID(payload.TenantID),
		slog.Int("text_length", len(result.Text)),
		slog.Bool("with_image", result.MediaRef != ""))
	return result, nil
}
