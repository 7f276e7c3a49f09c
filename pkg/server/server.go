package server

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/leadsentry/leadsentry/pkg/config"
	handlers "github.com/leadsentry/leadsentry/pkg/handlers/http"
	infraPrometheus "github.com/leadsentry/leadsentry/pkg/infra/prometheus"
)

// Server exposes the guardrail pipeline over HTTP.
type Server struct {
	config *config.Config
	logger *logrus.Logger
	app    *fiber.App
}

func New(cfg *config.Config, logger *logrus.Logger, transport *handlers.HandlerTransport) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             1 * 1024 * 1024,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", metricsHandler())

	api := app.Group("/api/v1")
	api.Post("/prompts/sanitize", transport.SanitizePromptHandler.Handle)
	api.Post("/outputs/sanitize", transport.SanitizeOutputHandler.Handle)
	api.Post("/bias/report", transport.BiasReportHandler.Handle)

	return &Server{
		config: cfg,
		logger: logger,
		app:    app,
	}
}

func metricsHandler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(infraPrometheus.Registry(), promhttp.HandlerOpts{}),
	)
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.WithField("addr", addr).Info("starting guardrail server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
