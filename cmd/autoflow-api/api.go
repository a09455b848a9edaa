// Package main provides the autoflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/autoflowhq/autoflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	runs        web.RunStarter
	events      web.InboundEventSink
	metrics     *metrics.Metrics
	webhook     web.WebhookConfig
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	runs web.RunStarter,
	events web.InboundEventSink,
	metrics *metrics.Metrics,
	webhook web.WebhookConfig,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		runs:        runs,
		events:      events,
		metrics:     metrics,
		webhook:     webhook,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		web.NewServices(a.persistence, a.registry),
		a.validate,
		a.registry,
		a.runs,
		a.events,
		a.webhook,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return a.persistence.HealthCheck(c.Context()) == nil
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("autoflow API")
	})

	if a.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))
	}

	web.RegisterRoutes(app, handlers)

	return app
}

// Start serves until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	a.logger.InfoContext(ctx, "Listening", "port", port)

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}
