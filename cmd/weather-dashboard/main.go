package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/pipeline"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/sink"
	"github.com/i474232898/weather-dashboard/internal/sink/kafka"
	"github.com/i474232898/weather-dashboard/internal/sink/sse"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/synthetic"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY is not set; upstream will reject requests")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	fetcher := providers.NewOpenWeather(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.HTTPTimeout, clock)

	// Output sinks: live stream, merge history, optional Kafka topic.
	hub := sse.NewHub(log, metrics)
	history := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge, clock)
	sinks := sink.Fanout{hub, history}

	var publisher *kafka.Publisher
	if cfg.KafkaEnabled() {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log, metrics)
		sinks = append(sinks, publisher)
		go publisher.Run(ctx)
		log.Info("kafka snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	seed := cfg.SyntheticSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := synthetic.New(rand.New(rand.NewSource(seed)))

	runner := scheduler.NewCronRunner(log)
	defer runner.Stop()

	p := pipeline.New(fetcher, runner, sinks, gen, clock, log, metrics, pipeline.Options{
		Query:           cfg.Location,
		AutoRefresh:     cfg.AutoRefresh,
		RefreshInterval: cfg.RefreshInterval,
		TickInterval:    cfg.TickInterval,
	})
	if err := p.Start(ctx); err != nil {
		log.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}
	defer p.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Stream responses stay open; handlers bound their own work.
		WriteTimeout: 0,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, p, history, hub)

	go func() {
		log.Info("http server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("shutting down")

	p.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error("kafka writer close error", "error", err)
		}
	}
	log.Info("shutdown complete")
}
