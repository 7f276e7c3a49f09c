package guardrail

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leadsentry/leadsentry/pkg/infra/prometheus"
	"github.com/leadsentry/leadsentry/pkg/security"
)

// SafeResponseMessage replaces the entire AI response when it matches a
// dangerous-pattern category.
const SafeResponseMessage = "The AI response was withheld because it contained potentially unsafe content."

// PIIEntity names one redaction category applied to AI output.
type PIIEntity string

const (
	PIIPhone      PIIEntity = "phone"
	PIIEmail      PIIEntity = "email"
	PIIPostcode   PIIEntity = "postcode"
	PIINino       PIIEntity = "nino"
	PIICreditCard PIIEntity = "creditCard"
)

// piiEntityOrder fixes evaluation order so redacted_fields is deterministic.
var piiEntityOrder = []PIIEntity{
	PIIPhone,
	PIIEmail,
	PIIPostcode,
	PIINino,
	PIICreditCard,
}

var piiPatterns = map[PIIEntity]*regexp.Regexp{
	// UK mobile formats, with or without the +44 prefix and group spacing.
	PIIPhone:    regexp.MustCompile(`(?:\+44\s?7\d{3}|\(?07\d{3}\)?)[\s-]?\d{3}[\s-]?\d{3}`),
	PIIEmail:    regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	PIIPostcode: regexp.MustCompile(`\b[A-Za-z]{1,2}\d[A-Za-z\d]?\s?\d[A-Za-z]{2}\b`),
	// National insurance number: two letters, six digits, trailing letter A-D.
	PIINino:       regexp.MustCompile(`\b[A-Za-z]{2}\d{6}[A-Da-d]\b`),
	PIICreditCard: regexp.MustCompile(`\b\d(?:[ -]?\d){12,15}\b`),
}

// OutputSanitizer redacts PII from AI responses and blocks responses that match
// a dangerous-pattern category. Output is treated as more dangerous than input
// because it may reach a downstream renderer.
type OutputSanitizer struct {
	logger *logrus.Logger
	events security.Sink
}

func NewOutputSanitizer(logger *logrus.Logger, events security.Sink) *OutputSanitizer {
	return &OutputSanitizer{
		logger: logger,
		events: events,
	}
}

// SanitizeOutput runs the dangerous-pattern scan and then the PII scan over a
// raw AI response. It never fails: worst case the content is replaced entirely.
func (s *OutputSanitizer) SanitizeOutput(output string, userID string) SanitizedOutput {
	if matched := scanDangerousPatterns(output); len(matched) > 0 {
		prometheus.OutputsBlockedTotal.Inc()
		s.events.Emit(security.Event{
			UserID:    userID,
			EventType: security.EventDataLeakage,
			Severity:  security.SeverityHigh,
			Details:   fmt.Sprintf("AI response blocked, matched categories: %v", matched),
			Timestamp: time.Now(),
		})
		s.logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"categories": matched,
		}).Error("AI response blocked by dangerous-pattern scan")

		return SanitizedOutput{
			Content:        SafeResponseMessage,
			RedactedFields: []string{"entire_response"},
			ContainsPII:    false,
			Safe:           false,
		}
	}

	content := output
	redacted := make([]string, 0)

	for _, entity := range piiEntityOrder {
		pattern := piiPatterns[entity]
		matches := 0
		content = pattern.ReplaceAllStringFunc(content, func(match string) string {
			matches++
			return mask(match, entity)
		})
		if matches == 0 {
			continue
		}

		redacted = append(redacted, string(entity))
		prometheus.PIIRedactionsTotal.WithLabelValues(string(entity)).Add(float64(matches))
		s.events.Emit(security.Event{
			UserID:    userID,
			EventType: security.EventPIIDetected,
			Severity:  security.SeverityMedium,
			Details:   fmt.Sprintf("%d %s match(es) redacted from AI response", matches, entity),
			Timestamp: time.Now(),
		})
	}

	return SanitizedOutput{
		Content:        content,
		RedactedFields: redacted,
		ContainsPII:    len(redacted) > 0,
		Safe:           true,
	}
}

// mask applies the format-preserving rule for one match: the masked substring
// always has the same length as the original.
func mask(match string, entity PIIEntity) string {
	if entity == PIIEmail {
		return maskEmail(match)
	}
	return maskKeepEnds(match)
}

// maskKeepEnds keeps the first two and last two characters and masks the middle.
// Matches of four characters or fewer are returned unchanged (zero stars).
func maskKeepEnds(match string) string {
	if len(match) <= 4 {
		return match
	}
	return match[:2] + strings.Repeat("*", len(match)-4) + match[len(match)-2:]
}

// maskEmail keeps the first two characters of the local part and the top-level
// domain suffix, e.g. john@abc.com -> jo**@***.com.
func maskEmail(match string) string {
	at := strings.LastIndex(match, "@")
	if at < 0 {
		return maskKeepEnds(match)
	}
	local, domain := match[:at], match[at+1:]

	maskedLocal := local
	if len(local) > 2 {
		maskedLocal = local[:2] + strings.Repeat("*", len(local)-2)
	}

	maskedDomain := strings.Repeat("*", len(domain))
	if dot := strings.LastIndex(domain, "."); dot >= 0 {
		maskedDomain = strings.Repeat("*", dot) + domain[dot:]
	}

	return maskedLocal + "@" + maskedDomain
}
