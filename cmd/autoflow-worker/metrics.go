package main

import (
	"context"
	"strconv"

	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
)

func newMetricsApp(m *metrics.Metrics, p persistence.Persistence) *fiber.App {
	app := fiber.New()

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return p.HealthCheck(c.Context()) == nil
		},
	}))
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	return app
}

func serveMetrics(ctx context.Context, port int, m *metrics.Metrics, p persistence.Persistence) error {
	app := newMetricsApp(m, p)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}
