package request

import "github.com/leadsentry/leadsentry/pkg/guardrail"

type BiasReportRequest struct {
	Period string                `json:"period"`
	Scores []guardrail.LeadScore `json:"scores"`
}
