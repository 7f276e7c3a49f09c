package guardrail

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/leadsentry/leadsentry/pkg/infra/prometheus"
	"github.com/leadsentry/leadsentry/pkg/security"
)

const (
	MaxPromptLength = 4000
	MaxTokensLimit  = 2000

	// TruncationMarker terminates pipeline-truncated text. Text ending in the
	// marker is exempt from the uniqueness-ratio check so a truncated excerpt
	// cannot be rejected as degenerate repetition.
	TruncationMarker = "..."

	minUniquenessRatio = 0.10
)

// PromptSanitizer validates and cleans inbound prompts before they can reach
// the AI backend. A dangerous-pattern match is a hard reject.
type PromptSanitizer struct {
	logger *logrus.Logger
	events security.Sink
}

func NewPromptSanitizer(logger *logrus.Logger, events security.Sink) *PromptSanitizer {
	return &PromptSanitizer{
		logger: logger,
		events: events,
	}
}

// SanitizePrompt performs structural validation, scans for dangerous patterns
// and strips control characters. The returned request is a cleaned copy; the
// input is never mutated.
func (s *PromptSanitizer) SanitizePrompt(in PromptRequest) (SanitizedPrompt, error) {
	if err := s.validateStructure(in); err != nil {
		return SanitizedPrompt{}, err
	}

	if matched := scanDangerousPatterns(in.Text); len(matched) > 0 {
		for _, category := range matched {
			prometheus.PromptsBlockedTotal.WithLabelValues(string(category)).Inc()
			// The prompt text is deliberately absent from the event and the log:
			// re-emitting the payload would leak the attack into the log pipeline.
			s.events.Emit(security.Event{
				UserID:    in.UserID,
				EventType: security.EventPromptInjection,
				Severity:  security.SeverityHigh,
				Details:   fmt.Sprintf("dangerous pattern category %q detected in prompt", category),
				Timestamp: time.Now(),
			})
		}
		s.logger.WithFields(logrus.Fields{
			"user_id":    in.UserID,
			"categories": matched,
		}).Warn("prompt blocked by dangerous-pattern scan")

		return SanitizedPrompt{}, &DangerousPatternError{Categories: matched}
	}

	out := in
	out.Text = stripControlChars(in.Text)

	return SanitizedPrompt{Request: out, Issues: []string{}}, nil
}

func (s *PromptSanitizer) validateStructure(in PromptRequest) error {
	fields := make(map[string]string)

	textLen := len(in.Text)
	switch {
	case textLen == 0:
		fields["text"] = "must not be empty"
	case textLen > MaxPromptLength:
		fields["text"] = fmt.Sprintf("must be at most %d characters, got %d", MaxPromptLength, textLen)
	case !hasMinimumUniqueness(in.Text):
		fields["text"] = "contains too much repetition"
	}

	if _, err := uuid.Parse(in.UserID); err != nil {
		fields["user_id"] = "must be a valid UUID"
	}

	if in.MaxTokens < 1 || in.MaxTokens > MaxTokensLimit {
		fields["max_tokens"] = fmt.Sprintf("must be between 1 and %d", MaxTokensLimit)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// hasMinimumUniqueness rejects degenerate repetition attacks: at least 10% of
// the runes must be distinct, unless the text is a truncated excerpt.
func hasMinimumUniqueness(text string) bool {
	if strings.HasSuffix(text, TruncationMarker) {
		return true
	}

	seen := make(map[rune]struct{})
	total := 0
	for _, r := range text {
		seen[r] = struct{}{}
		total++
	}
	if total == 0 {
		return true
	}
	return float64(len(seen))/float64(total) >= minUniquenessRatio
}

// stripControlChars removes 0x00-0x1F and 0x7F from the text.
func stripControlChars(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
}
