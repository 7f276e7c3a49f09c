package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/leadsentry/leadsentry/pkg/guardrail"
	"github.com/leadsentry/leadsentry/pkg/handlers/http/request"
	infraPrometheus "github.com/leadsentry/leadsentry/pkg/infra/prometheus"
)

type sanitizePromptHandler struct {
	logger   *logrus.Logger
	pipeline *guardrail.Pipeline
}

func NewSanitizePromptHandler(logger *logrus.Logger, pipeline *guardrail.Pipeline) Handler {
	return &sanitizePromptHandler{
		logger:   logger,
		pipeline: pipeline,
	}
}

// Handle gates an inbound prompt through the full sanitization pipeline and
// returns the cleaned request, or a typed rejection.
func (h *sanitizePromptHandler) Handle(c *fiber.Ctx) error {
	var req request.SanitizePromptRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Error("failed to parse sanitize prompt request")
		return h.respond(c, fiber.StatusBadRequest, fiber.Map{"error": "invalid request body"})
	}

	sanitized, err := h.pipeline.SanitizePrompt(c.Context(), guardrail.PromptRequest{
		Text:      req.Text,
		Context:   req.Context,
		UserID:    req.UserID,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		var rateLimitErr *guardrail.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(rateLimitErr.RetryAfterSeconds))
			return h.respond(c, fiber.StatusTooManyRequests, fiber.Map{"error": err.Error()})
		}

		var validationErr *guardrail.ValidationError
		if errors.As(err, &validationErr) {
			return h.respond(c, fiber.StatusBadRequest, fiber.Map{
				"error":  "prompt validation failed",
				"fields": validationErr.Fields,
			})
		}

		var patternErr *guardrail.DangerousPatternError
		if errors.As(err, &patternErr) {
			return h.respond(c, fiber.StatusBadRequest, fiber.Map{
				"error":      "prompt contains dangerous patterns",
				"categories": patternErr.Categories,
			})
		}

		h.logger.WithError(err).Error("prompt sanitization failed")
		return h.respond(c, fiber.StatusInternalServerError, fiber.Map{"error": "internal error"})
	}

	return h.respond(c, fiber.StatusOK, sanitized)
}

func (h *sanitizePromptHandler) respond(c *fiber.Ctx, status int, body interface{}) error {
	infraPrometheus.RequestsTotal.WithLabelValues("sanitize_prompt", strconv.Itoa(status)).Inc()
	return c.Status(status).JSON(body)
}
