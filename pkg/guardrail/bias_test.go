package guardrail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeScores(domain string, count int, value float64) []LeadScore {
	scores := make([]LeadScore, count)
	for i := range scores {
		scores[i] = LeadScore{
			Score:    value,
			Metadata: LeadMetadata{EmailDomain: domain},
		}
	}
	return scores
}

type staticHistory struct {
	points []BiasMetric
	err    error
}

func (h *staticHistory) History(_ context.Context, metricName, segment string, limit int) ([]BiasMetric, error) {
	if h.err != nil {
		return nil, h.err
	}
	out := make([]BiasMetric, 0, limit)
	for _, p := range h.points {
		if p.MetricName == metricName && p.DemographicSegment == segment {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func historyPoints(segment string, values ...float64) []BiasMetric {
	points := make([]BiasMetric, len(values))
	for i, v := range values {
		points[i] = BiasMetric{
			MetricName:         MetricMeanScore,
			DemographicSegment: segment,
			Value:              v,
		}
	}
	return points
}

func newTestDetector() *BiasDetector {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return NewBiasDetector(newTestLogger(), "lead-scoring-v1", &BiasDetectorOpts{
		TimeProvider: func() time.Time { return now },
	})
}

func TestSegmentForDomain(t *testing.T) {
	tests := []struct {
		domain  string
		segment string
	}{
		{"gmail.com", SegmentFreeEmail},
		{"Hotmail.CO.UK", SegmentFreeEmail},
		{"city-council.gov", SegmentInstitutional},
		{"research.gov.uk", SegmentInstitutional},
		{"openuni.edu", SegmentInstitutional},
		{"acme.com", SegmentCorporate},
		{"", SegmentCorporate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.segment, SegmentForDomain(tt.domain), tt.domain)
	}
}

func TestDetectScoreBias_FlagsSegmentSpread(t *testing.T) {
	detector := newTestDetector()
	scores := append(makeScores("gmail.com", 30, 80), makeScores("acme.com", 30, 40)...)

	result := detector.DetectScoreBias(scores)

	assert.True(t, result.BiasDetected)
	require.Len(t, result.Violations, 1)
	violation := result.Violations[0]
	assert.Equal(t, "all", violation.Segment)
	assert.Equal(t, "segment_mean_variance", violation.Metric)
	assert.InDelta(t, 0.667, violation.Actual, 0.001)
	assert.Equal(t, SeverityHigh, violation.Severity)

	require.Len(t, result.Metrics, 2)
	assert.Equal(t, SegmentFreeEmail, result.Metrics[0].DemographicSegment)
	assert.False(t, result.Metrics[0].Passed, "mean 80 is outside the baseline tolerance")
	assert.Equal(t, SegmentCorporate, result.Metrics[1].DemographicSegment)
	assert.True(t, result.Metrics[1].Passed)
	assert.Equal(t, 30, result.Metrics[0].SampleSize)
}

func TestDetectScoreBias_MediumSeverityBand(t *testing.T) {
	detector := newTestDetector()
	// Means 54 and 46: spread 8 over midpoint 50 gives variance 0.16.
	scores := append(makeScores("gmail.com", 30, 54), makeScores("acme.com", 30, 46)...)

	result := detector.DetectScoreBias(scores)

	require.Len(t, result.Violations, 1)
	assert.Equal(t, SeverityMedium, result.Violations[0].Severity)
}

func TestDetectScoreBias_CloseMeansPass(t *testing.T) {
	detector := newTestDetector()
	scores := append(makeScores("gmail.com", 30, 50), makeScores("acme.com", 30, 52)...)

	result := detector.DetectScoreBias(scores)

	assert.False(t, result.BiasDetected)
	assert.Empty(t, result.Violations)
	assert.Len(t, result.Metrics, 2)
}

func TestDetectScoreBias_SmallSegmentsExcluded(t *testing.T) {
	detector := newTestDetector()
	// 29 free-email samples at an extreme mean must not trigger anything.
	scores := append(makeScores("gmail.com", 29, 95), makeScores("acme.com", 30, 50)...)

	result := detector.DetectScoreBias(scores)

	assert.False(t, result.BiasDetected)
	require.Len(t, result.Metrics, 1)
	assert.Equal(t, SegmentCorporate, result.Metrics[0].DemographicSegment)
}

func TestDetectScoreBias_EmptyInput(t *testing.T) {
	detector := newTestDetector()

	result := detector.DetectScoreBias(nil)

	assert.False(t, result.BiasDetected)
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Metrics)
}

func TestDetectModelDrift_FlagsDeviation(t *testing.T) {
	detector := newTestDetector()
	history := &staticHistory{points: historyPoints(SegmentCorporate, 50, 50, 50, 50, 50)}
	current := []BiasMetric{{MetricName: MetricMeanScore, DemographicSegment: SegmentCorporate, Value: 60}}

	result := detector.DetectModelDrift(context.Background(), current, history)

	assert.True(t, result.DriftDetected)
	require.Len(t, result.DriftMetrics, 1)
	metric := result.DriftMetrics[0]
	assert.True(t, metric.Flagged)
	assert.InDelta(t, 0.2, metric.Drift, 0.0001)
	assert.Equal(t, 50.0, metric.HistoricalMean)
}

func TestDetectModelDrift_WithinThreshold(t *testing.T) {
	detector := newTestDetector()
	history := &staticHistory{points: historyPoints(SegmentCorporate, 50, 50, 50)}
	current := []BiasMetric{{MetricName: MetricMeanScore, DemographicSegment: SegmentCorporate, Value: 55}}

	result := detector.DetectModelDrift(context.Background(), current, history)

	assert.False(t, result.DriftDetected)
	require.Len(t, result.DriftMetrics, 1)
	assert.False(t, result.DriftMetrics[0].Flagged)
}

func TestDetectModelDrift_SkipsShortHistory(t *testing.T) {
	detector := newTestDetector()
	history := &staticHistory{points: historyPoints(SegmentCorporate, 50, 50)}
	current := []BiasMetric{{MetricName: MetricMeanScore, DemographicSegment: SegmentCorporate, Value: 90}}

	result := detector.DetectModelDrift(context.Background(), current, history)

	assert.False(t, result.DriftDetected)
	assert.Empty(t, result.DriftMetrics)
}

func TestDetectModelDrift_SwallowsHistoryError(t *testing.T) {
	detector := newTestDetector()
	history := &staticHistory{err: errors.New("connection refused")}
	current := []BiasMetric{{MetricName: MetricMeanScore, DemographicSegment: SegmentCorporate, Value: 90}}

	result := detector.DetectModelDrift(context.Background(), current, history)

	assert.False(t, result.DriftDetected)
	assert.Empty(t, result.DriftMetrics)
}

func TestGenerateBiasReport(t *testing.T) {
	detector := newTestDetector()
	scores := append(makeScores("gmail.com", 30, 80), makeScores("acme.com", 30, 40)...)

	report := detector.GenerateBiasReport("2025-06", scores)

	assert.Equal(t, "2025-06", report.Period)
	assert.True(t, report.BiasDetected)
	assert.Equal(t, 60, report.TotalScores)
	assert.InDelta(t, 60.0, report.MeanScore, 0.0001)
	assert.InDelta(t, 20.0, report.StdDevScore, 0.0001)
	assert.Equal(t, 1, report.SeverityCount[SeverityHigh])
	assert.Len(t, report.Metrics, 2)
	assert.False(t, report.GeneratedAt.IsZero())
}
