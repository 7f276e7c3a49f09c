package guardrail

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultMaxTokens is applied when a pipeline caller does not request a token
// budget of its own.
const DefaultMaxTokens = 1000

// Pipeline is the single entry point for inbound prompts: rate limit, content
// length, then full sanitization. Output sanitization is never part of this
// pipeline because it runs after the AI call.
type Pipeline struct {
	limiter          *RateLimiter
	sanitizer        *PromptSanitizer
	maxContentLength int
	logger           *logrus.Logger
}

func NewPipeline(limiter *RateLimiter, sanitizer *PromptSanitizer, maxContentLength int, logger *logrus.Logger) *Pipeline {
	if maxContentLength <= 0 {
		maxContentLength = MaxPromptLength
	}
	return &Pipeline{
		limiter:          limiter,
		sanitizer:        sanitizer,
		maxContentLength: maxContentLength,
		logger:           logger,
	}
}

// SanitizePrompt gates the request on the per-user rate limit, truncates
// oversized text and sanitizes the result. Truncation rather than rejection
// preserves partial user intent.
func (p *Pipeline) SanitizePrompt(ctx context.Context, in PromptRequest) (PromptRequest, error) {
	if !p.limiter.CheckRateLimit(ctx, in.UserID) {
		return PromptRequest{}, &RateLimitError{
			RetryAfterSeconds: int(p.limiter.Window().Seconds()),
		}
	}

	in.Text = ValidateContentLength(in.Text, p.maxContentLength)
	if in.MaxTokens == 0 {
		in.MaxTokens = DefaultMaxTokens
	}

	sanitized, err := p.sanitizer.SanitizePrompt(in)
	if err != nil {
		return PromptRequest{}, err
	}

	p.logger.WithFields(logrus.Fields{
		"user_id":     sanitized.Request.UserID,
		"text_length": len(sanitized.Request.Text),
	}).Debug("prompt sanitized")

	return sanitized.Request, nil
}

// ValidateContentLength truncates text longer than maxLength so the result is
// exactly maxLength characters and ends with the truncation marker.
func ValidateContentLength(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	if maxLength <= len(TruncationMarker) {
		return strings.Repeat(".", maxLength)
	}
	return text[:maxLength-len(TruncationMarker)] + TruncationMarker
}
