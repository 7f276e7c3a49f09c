package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/leadsentry/leadsentry/pkg/guardrail"
	"github.com/leadsentry/leadsentry/pkg/handlers/http/request"
	infraPrometheus "github.com/leadsentry/leadsentry/pkg/infra/prometheus"
)

// BiasMetricStore persists metrics append-only and serves them back as drift
// history.
type BiasMetricStore interface {
	guardrail.MetricHistory
	Append(ctx context.Context, metrics []guardrail.BiasMetric) error
}

type biasReportHandler struct {
	logger   *logrus.Logger
	detector *guardrail.BiasDetector
	metrics  BiasMetricStore // nil when no metric storage is configured
}

func NewBiasReportHandler(logger *logrus.Logger, detector *guardrail.BiasDetector, metrics BiasMetricStore) Handler {
	return &biasReportHandler{
		logger:   logger,
		detector: detector,
		metrics:  metrics,
	}
}

// Handle produces a fairness report for one period of lead scoring results.
// When metric storage is configured, drift is computed against the history
// recorded before this batch, and the batch's metrics are then appended.
func (h *biasReportHandler) Handle(c *fiber.Ctx) error {
	var req request.BiasReportRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Error("failed to parse bias report request")
		return h.respond(c, fiber.StatusBadRequest, fiber.Map{"error": "invalid request body"})
	}

	if req.Period == "" {
		return h.respond(c, fiber.StatusBadRequest, fiber.Map{"error": "period is required"})
	}
	if len(req.Scores) == 0 {
		return h.respond(c, fiber.StatusBadRequest, fiber.Map{"error": "scores must not be empty"})
	}

	report := h.detector.GenerateBiasReport(req.Period, req.Scores)

	if h.metrics == nil {
		return h.respond(c, fiber.StatusOK, fiber.Map{"report": report})
	}

	drift := h.detector.DetectModelDrift(c.Context(), report.Metrics, h.metrics)

	if err := h.metrics.Append(c.Context(), report.Metrics); err != nil {
		// Persistence is advisory for the caller: the report is still valid.
		h.logger.WithError(err).Error("failed to persist bias metrics")
	}

	return h.respond(c, fiber.StatusOK, fiber.Map{
		"report": report,
		"drift":  drift,
	})
}

func (h *biasReportHandler) respond(c *fiber.Ctx, status int, body interface{}) error {
	infraPrometheus.RequestsTotal.WithLabelValues("bias_report", strconv.Itoa(status)).Inc()
	return c.Status(status).JSON(body)
}
