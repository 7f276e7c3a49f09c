package guardrail

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports structural problems with a PromptRequest, keyed by
// field name. It is an ordinary boundary error, not a security condition.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "prompt validation failed: " + strings.Join(parts, "; ")
}

// DangerousPatternError is a hard reject: the prompt must never reach the AI
// backend, so there is no partial sanitization and no retry.
type DangerousPatternError struct {
	Categories []PatternCategory
}

func (e *DangerousPatternError) Error() string {
	names := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		names = append(names, string(c))
	}
	return "prompt contains dangerous patterns: " + strings.Join(names, ", ")
}

// RateLimitError tells the caller to back off and retry after the window
// elapses, rather than immediately.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d seconds", e.RetryAfterSeconds)
}
