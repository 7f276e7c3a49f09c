package guardrail

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	SegmentFreeEmail     = "free_email"
	SegmentInstitutional = "institutional"
	SegmentCorporate     = "corporate"

	// MetricMeanScore is the per-segment metric recorded by DetectScoreBias.
	MetricMeanScore = "mean_score"

	minSegmentSampleSize  = 30
	baselineMeanScore     = 50.0
	meanScoreTolerance    = 20.0
	varianceThreshold     = 0.1
	highVarianceThreshold = 0.2
	driftThreshold        = 0.15
	maxDriftHistoryPoints = 10
	minDriftHistoryPoints = 3
)

// segmentOrder fixes iteration order so metric output is deterministic.
var segmentOrder = []string{SegmentFreeEmail, SegmentInstitutional, SegmentCorporate}

var freeEmailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"yahoo.co.uk":    true,
	"hotmail.com":    true,
	"hotmail.co.uk":  true,
	"outlook.com":    true,
	"live.com":       true,
	"aol.com":        true,
	"icloud.com":     true,
	"proton.me":      true,
	"protonmail.com": true,
	"gmx.com":        true,
	"mail.com":       true,
}

// MetricHistory reads previously persisted metrics for drift comparison,
// most recent first. Storage is an external collaborator.
type MetricHistory interface {
	History(ctx context.Context, metricName, segment string, limit int) ([]BiasMetric, error)
}

// BiasDetector runs segment-based variance analysis over lead scoring results
// and compares current metrics against their historical baseline.
type BiasDetector struct {
	logger       *logrus.Logger
	modelVersion string
	timeProvider func() time.Time
}

type BiasDetectorOpts struct {
	TimeProvider func() time.Time
}

func NewBiasDetector(logger *logrus.Logger, modelVersion string, opts *BiasDetectorOpts) *BiasDetector {
	timeProvider := time.Now
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}
	return &BiasDetector{
		logger:       logger,
		modelVersion: modelVersion,
		timeProvider: timeProvider,
	}
}

// SegmentForDomain maps an email domain onto a coarse demographic segment.
// This is a deliberately simple proxy: no direct demographic data exists.
func SegmentForDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return SegmentCorporate
	}
	if freeEmailDomains[d] {
		return SegmentFreeEmail
	}
	if strings.HasSuffix(d, ".gov") || strings.HasSuffix(d, ".edu") ||
		strings.Contains(d, ".gov.") || strings.Contains(d, ".edu.") {
		return SegmentInstitutional
	}
	return SegmentCorporate
}

// DetectScoreBias partitions scores into demographic segments, records one
// mean-score metric per qualifying segment and flags the aggregate spread
// across segment means. Bias is a property of the spread, not any single
// segment, so at most one violation is produced per run.
func (d *BiasDetector) DetectScoreBias(scores []LeadScore) BiasCheckResult {
	segments := make(map[string][]float64)
	for _, score := range scores {
		segment := SegmentForDomain(score.Metadata.EmailDomain)
		segments[segment] = append(segments[segment], score.Score)
	}

	now := d.timeProvider()
	metrics := make([]BiasMetric, 0)
	means := make([]float64, 0, len(segments))

	for _, segment := range segmentOrder {
		values := segments[segment]
		// Statistical-significance floor: small segments are excluded from the
		// variance comparison entirely.
		if len(values) < minSegmentSampleSize {
			continue
		}

		segmentMean := mean(values)
		means = append(means, segmentMean)
		metrics = append(metrics, BiasMetric{
			Timestamp:          now,
			ModelVersion:       d.modelVersion,
			DemographicSegment: segment,
			MetricName:         MetricMeanScore,
			Value:              segmentMean,
			Threshold:          meanScoreTolerance,
			Passed:             math.Abs(segmentMean-baselineMeanScore) < meanScoreTolerance,
			SampleSize:         len(values),
		})
	}

	violations := make([]BiasViolation, 0)
	if len(means) >= 2 {
		maxMean, minMean := means[0], means[0]
		for _, m := range means[1:] {
			if m > maxMean {
				maxMean = m
			}
			if m < minMean {
				minMean = m
			}
		}

		mid := (maxMean + minMean) / 2
		if mid != 0 {
			variance := (maxMean - minMean) / mid
			if variance > varianceThreshold {
				severity := SeverityMedium
				if variance > highVarianceThreshold {
					severity = SeverityHigh
				}
				violations = append(violations, BiasViolation{
					Segment:   "all",
					Metric:    "segment_mean_variance",
					Actual:    variance,
					Threshold: varianceThreshold,
					Severity:  severity,
				})
				d.logger.WithFields(logrus.Fields{
					"variance": variance,
					"severity": severity,
				}).Warn("score bias detected across demographic segments")
			}
		}
	}

	return BiasCheckResult{
		BiasDetected: len(violations) > 0,
		Violations:   violations,
		Metrics:      metrics,
	}
}

// DetectModelDrift compares each current metric against up to the last ten
// historical values for the same metric and segment. Drift monitoring is
// advisory: an unreadable history is logged and yields an empty result, never
// an error, so it cannot block scoring.
func (d *BiasDetector) DetectModelDrift(ctx context.Context, current []BiasMetric, history MetricHistory) DriftResult {
	driftMetrics := make([]DriftMetric, 0, len(current))
	detected := false

	for _, metric := range current {
		points, err := history.History(ctx, metric.MetricName, metric.DemographicSegment, maxDriftHistoryPoints)
		if err != nil {
			d.logger.WithError(err).Error("failed to read metric history, skipping drift detection")
			return DriftResult{DriftDetected: false, DriftMetrics: []DriftMetric{}}
		}
		if len(points) < minDriftHistoryPoints {
			continue
		}

		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Value
		}
		historicalMean := mean(values)
		if historicalMean == 0 {
			continue
		}

		drift := math.Abs(metric.Value-historicalMean) / historicalMean
		flagged := drift > driftThreshold
		if flagged {
			detected = true
			d.logger.WithFields(logrus.Fields{
				"metric":  metric.MetricName,
				"segment": metric.DemographicSegment,
				"drift":   drift,
			}).Warn("model drift detected")
		}

		driftMetrics = append(driftMetrics, DriftMetric{
			MetricName:     metric.MetricName,
			Segment:        metric.DemographicSegment,
			Current:        metric.Value,
			HistoricalMean: historicalMean,
			Drift:          drift,
			Flagged:        flagged,
		})
	}

	return DriftResult{DriftDetected: detected, DriftMetrics: driftMetrics}
}

// GenerateBiasReport composes the bias detector with summary statistics over
// all scores for one period.
func (d *BiasDetector) GenerateBiasReport(period string, scores []LeadScore) BiasReport {
	check := d.DetectScoreBias(scores)

	severityCount := make(map[Severity]int)
	for _, violation := range check.Violations {
		severityCount[violation.Severity]++
	}

	values := make([]float64, len(scores))
	for i, score := range scores {
		values[i] = score.Score
	}

	var meanScore, stdDev float64
	if len(values) > 0 {
		meanScore = mean(values)
		stdDev = stddev(values, meanScore)
	}

	return BiasReport{
		Period:        period,
		GeneratedAt:   d.timeProvider(),
		BiasDetected:  check.BiasDetected,
		Violations:    check.Violations,
		Metrics:       check.Metrics,
		TotalScores:   len(scores),
		MeanScore:     meanScore,
		StdDevScore:   stdDev,
		SeverityCount: severityCount,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)))
}
