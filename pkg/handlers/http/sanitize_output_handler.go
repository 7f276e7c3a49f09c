package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/leadsentry/leadsentry/pkg/guardrail"
	"github.com/leadsentry/leadsentry/pkg/handlers/http/request"
	infraPrometheus "github.com/leadsentry/leadsentry/pkg/infra/prometheus"
)

type sanitizeOutputHandler struct {
	logger    *logrus.Logger
	sanitizer *guardrail.OutputSanitizer
}

func NewSanitizeOutputHandler(logger *logrus.Logger, sanitizer *guardrail.OutputSanitizer) Handler {
	return &sanitizeOutputHandler{
		logger:    logger,
		sanitizer: sanitizer,
	}
}

// Handle redacts PII from a raw AI response, or replaces it entirely when it
// matches a dangerous-pattern category. This endpoint never rejects content.
func (h *sanitizeOutputHandler) Handle(c *fiber.Ctx) error {
	var req request.SanitizeOutputRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Error("failed to parse sanitize output request")
		return h.respond(c, fiber.StatusBadRequest, fiber.Map{"error": "invalid request body"})
	}

	if req.UserID == "" {
		return h.respond(c, fiber.StatusBadRequest, fiber.Map{"error": "user_id is required"})
	}

	sanitized := h.sanitizer.SanitizeOutput(req.Content, req.UserID)
	return h.respond(c, fiber.StatusOK, sanitized)
}

func (h *sanitizeOutputHandler) respond(c *fiber.Ctx, status int, body interface{}) error {
	infraPrometheus.RequestsTotal.WithLabelValues("sanitize_output", strconv.Itoa(status)).Inc()
	return c.Status(status).JSON(body)
}
