package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/leadsentry/leadsentry/internal/logger"
	"github.com/leadsentry/leadsentry/pkg/config"
	"github.com/leadsentry/leadsentry/pkg/guardrail"
	handlers "github.com/leadsentry/leadsentry/pkg/handlers/http"
	"github.com/leadsentry/leadsentry/pkg/infra/cache"
	"github.com/leadsentry/leadsentry/pkg/infra/database"
	"github.com/leadsentry/leadsentry/pkg/infra/repository"
	"github.com/leadsentry/leadsentry/pkg/security"
	"github.com/leadsentry/leadsentry/pkg/server"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	if err := config.Load("./config"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	l := logger.New(cfg.LogLevel)
	events := security.NewLogSink(l)

	// Rate-limit state lives in redis when configured, otherwise in process.
	var store guardrail.Store = guardrail.NewMemoryStore()
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewClient(cache.ClientConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			l.WithError(err).Fatal("failed to initialize redis")
		}
		store = cache.NewRedisRateLimitStore(redisClient, nil)
	}

	// Metric persistence is optional; without it drift detection is skipped.
	var metricStore handlers.BiasMetricStore
	if cfg.Database.Host != "" {
		db, err := database.NewDB(l, &database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			l.WithError(err).Fatal("failed to initialize database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				l.WithError(err).Error("failed to close database")
			}
		}()

		repo := repository.NewBiasMetricRepository(db.DB)
		if err := repo.Migrate(); err != nil {
			l.WithError(err).Fatal("failed to migrate bias metrics table")
		}
		metricStore = repo
	}

	limiter := guardrail.NewRateLimiter(store, cfg.Guardrail.MaxRequestsPerMinute, l, events, nil)
	sanitizer := guardrail.NewPromptSanitizer(l, events)
	pipeline := guardrail.NewPipeline(limiter, sanitizer, cfg.Guardrail.MaxContentLength, l)
	outputSanitizer := guardrail.NewOutputSanitizer(l, events)
	detector := guardrail.NewBiasDetector(l, cfg.Guardrail.ModelVersion, nil)

	transport := &handlers.HandlerTransport{
		SanitizePromptHandler: handlers.NewSanitizePromptHandler(l, pipeline),
		SanitizeOutputHandler: handlers.NewSanitizeOutputHandler(l, outputSanitizer),
		BiasReportHandler:     handlers.NewBiasReportHandler(l, detector, metricStore),
	}

	srv := server.New(cfg, l, transport)

	go func() {
		if err := srv.Run(); err != nil {
			l.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down guardrail server")
	if err := srv.Shutdown(); err != nil {
		l.WithError(err).Error("failed to shut down server cleanly")
	}
}
