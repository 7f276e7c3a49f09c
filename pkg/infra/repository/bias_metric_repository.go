package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadsentry/leadsentry/pkg/guardrail"
)

// BiasMetricRow is the flat append-only record persisted per segment metric.
type BiasMetricRow struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Timestamp          time.Time `gorm:"index:idx_bias_metrics_lookup,priority:3"`
	ModelVersion       string
	DemographicSegment string `gorm:"index:idx_bias_metrics_lookup,priority:2"`
	MetricName         string `gorm:"index:idx_bias_metrics_lookup,priority:1"`
	Value              float64
	Threshold          float64
	Passed             bool
	SampleSize         int
	CreatedAt          time.Time
}

func (BiasMetricRow) TableName() string {
	return "bias_metrics"
}

// BiasMetricRepository persists fairness metrics and serves them back for
// drift comparison. It implements guardrail.MetricHistory.
type BiasMetricRepository struct {
	db *gorm.DB
}

func NewBiasMetricRepository(db *gorm.DB) *BiasMetricRepository {
	return &BiasMetricRepository{db: db}
}

// Migrate creates the bias_metrics table if it does not exist.
func (r *BiasMetricRepository) Migrate() error {
	return r.db.AutoMigrate(&BiasMetricRow{})
}

// Append stores metrics append-only; rows are never updated or deleted.
func (r *BiasMetricRepository) Append(ctx context.Context, metrics []guardrail.BiasMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	rows := make([]BiasMetricRow, len(metrics))
	for i, metric := range metrics {
		rows[i] = BiasMetricRow{
			ID:                 uuid.New(),
			Timestamp:          metric.Timestamp,
			ModelVersion:       metric.ModelVersion,
			DemographicSegment: metric.DemographicSegment,
			MetricName:         metric.MetricName,
			Value:              metric.Value,
			Threshold:          metric.Threshold,
			Passed:             metric.Passed,
			SampleSize:         metric.SampleSize,
		}
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to append bias metrics: %w", err)
	}
	return nil
}

// History returns up to limit of the most recent metrics for one metric name
// and segment, newest first.
func (r *BiasMetricRepository) History(ctx context.Context, metricName, segment string, limit int) ([]guardrail.BiasMetric, error) {
	var rows []BiasMetricRow
	err := r.db.WithContext(ctx).
		Where("metric_name = ? AND demographic_segment = ?", metricName, segment).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query bias metric history: %w", err)
	}

	metrics := make([]guardrail.BiasMetric, len(rows))
	for i, row := range rows {
		metrics[i] = guardrail.BiasMetric{
			Timestamp:          row.Timestamp,
			ModelVersion:       row.ModelVersion,
			DemographicSegment: row.DemographicSegment,
			MetricName:         row.MetricName,
			Value:              row.Value,
			Threshold:          row.Threshold,
			Passed:             row.Passed,
			SampleSize:         row.SampleSize,
		}
	}
	return metrics, nil
}
