package guardrail

import "time"

// PromptRequest is the validated shape of an inbound AI prompt. Instances are
// immutable once returned by the sanitizer and discarded after the call.
type PromptRequest struct {
	Text      string            `json:"text" mapstructure:"text"`
	Context   map[string]string `json:"context,omitempty" mapstructure:"context"`
	UserID    string            `json:"user_id" mapstructure:"user_id"`
	MaxTokens int               `json:"max_tokens" mapstructure:"max_tokens"`
}

// SanitizedPrompt is the result of a successful prompt sanitization.
type SanitizedPrompt struct {
	Request PromptRequest `json:"sanitized"`
	Issues  []string      `json:"issues"`
}

// SanitizedOutput is produced once per AI response. When Safe is false the
// original content has been replaced entirely with SafeResponseMessage.
type SanitizedOutput struct {
	Content        string   `json:"content"`
	RedactedFields []string `json:"redacted_fields"`
	ContainsPII    bool     `json:"contains_pii"`
	Safe           bool     `json:"safe"`
}

// RateLimitEntry holds the fixed-window counter for a single user.
type RateLimitEntry struct {
	UserID  string    `json:"user_id"`
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// LeadScore is one AI-assisted scoring result fed into bias detection.
type LeadScore struct {
	LeadID   string       `json:"lead_id"`
	Score    float64      `json:"score"`
	Metadata LeadMetadata `json:"metadata"`
}

type LeadMetadata struct {
	EmailDomain string `json:"email_domain,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	Company     string `json:"company,omitempty"`
	Source      string `json:"source,omitempty"`
}

// BiasMetric is an append-only fairness record. The core defines the record
// shape; persistence is an external collaborator.
type BiasMetric struct {
	Timestamp          time.Time `json:"timestamp"`
	ModelVersion       string    `json:"model_version"`
	DemographicSegment string    `json:"demographic_segment"`
	MetricName         string    `json:"metric_name"`
	Value              float64   `json:"value"`
	Threshold          float64   `json:"threshold"`
	Passed             bool      `json:"passed"`
	SampleSize         int       `json:"sample_size"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// BiasViolation is derived from a bias check and not persisted by the core.
type BiasViolation struct {
	Segment   string   `json:"segment"`
	Metric    string   `json:"metric"`
	Actual    float64  `json:"actual"`
	Threshold float64  `json:"threshold"`
	Severity  Severity `json:"severity"`
}

// BiasCheckResult is the outcome of a single bias detection run.
type BiasCheckResult struct {
	BiasDetected bool            `json:"bias_detected"`
	Violations   []BiasViolation `json:"violations"`
	Metrics      []BiasMetric    `json:"metrics"`
}

// DriftMetric compares one current metric against its historical baseline.
type DriftMetric struct {
	MetricName     string  `json:"metric_name"`
	Segment        string  `json:"segment"`
	Current        float64 `json:"current"`
	HistoricalMean float64 `json:"historical_mean"`
	Drift          float64 `json:"drift"`
	Flagged        bool    `json:"flagged"`
}

// DriftResult is the outcome of a drift detection run. Drift monitoring is
// advisory, so an unreadable history yields an empty result rather than an error.
type DriftResult struct {
	DriftDetected bool          `json:"drift_detected"`
	DriftMetrics  []DriftMetric `json:"drift_metrics"`
}

// BiasReport composes a bias check with summary statistics for one period.
type BiasReport struct {
	Period        string           `json:"period"`
	GeneratedAt   time.Time        `json:"generated_at"`
	BiasDetected  bool             `json:"bias_detected"`
	Violations    []BiasViolation  `json:"violations"`
	Metrics       []BiasMetric     `json:"metrics"`
	TotalScores   int              `json:"total_scores"`
	MeanScore     float64          `json:"mean_score"`
	StdDevScore   float64          `json:"std_dev_score"`
	SeverityCount map[Severity]int `json:"severity_count"`
}
