package security

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leadsentry/leadsentry/pkg/infra/prometheus"
)

type EventType string

const (
	EventPromptInjection EventType = "prompt_injection"
	EventDataLeakage     EventType = "data_leakage"
	EventRateLimit       EventType = "rate_limit"
	EventPIIDetected     EventType = "pii_detected"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event is the structured record produced for every blocked or flagged request.
// Delivery beyond the log pipeline (alerting, SIEM) is owned by external systems.
type Event struct {
	UserID    string    `json:"user_id"`
	EventType EventType `json:"event_type"`
	Severity  Severity  `json:"severity"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

type Sink interface {
	Emit(event Event)
}

type logSink struct {
	logger *logrus.Logger
}

// NewLogSink returns a Sink delivering events to the structured log pipeline.
func NewLogSink(logger *logrus.Logger) Sink {
	return &logSink{logger: logger}
}

func (s *logSink) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	prometheus.SecurityEventsTotal.WithLabelValues(string(event.EventType), string(event.Severity)).Inc()

	entry := s.logger.WithFields(logrus.Fields{
		"user_id":    event.UserID,
		"event_type": event.EventType,
		"severity":   event.Severity,
		"details":    event.Details,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	})

	switch event.Severity {
	case SeverityHigh, SeverityCritical:
		entry.Error("security event")
	default:
		entry.Warn("security event")
	}
}
