// Package main runs the autoflow worker, which consumes inbound events and
// run requests from the event bus and executes the matching workflows.
package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/autoflowhq/autoflow/pkg/channels/kafka"
	"github.com/autoflowhq/autoflow/pkg/cmd"
	"github.com/autoflowhq/autoflow/pkg/log"
	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/workflow"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "Port serving /metrics and probes, 0 to disable",
			Value:   9092,
			Sources: cli.EnvVars("METRICS_PORT"),
		},
	}

	command := &cli.Command{
		Name:                  "autoflow-worker",
		Usage:                 "Start workers to execute workflows",
		EnableShellCompletion: true,
		Flags:                 slices.Concat(flags, cmd.CommonFlags(), cmd.EventBusFlags(true), cmd.EngineFlags()),
		Action:                run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("autoflow-worker").Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	cmd.SetupLogging(command)

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("autoflow-worker").With("worker_id", workerID)
	logger.InfoContext(ctx, "Initializing autoflow worker")

	tracer := cmd.NewTracer(ctx, command.Bool("otel-enabled"), "autoflow-worker", logger)
	m := metrics.New()

	tokens, err := cmd.Tokens(ctx, command)
	if err != nil {
		return err
	}

	registry, err := cmd.NewRegistry(logger, command.String("plugins-path"), cmd.NewMessenger(command.String("instagram-account-id"), tokens, logger))
	if err != nil {
		return err
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	bus, err := cmd.NewEventBus(
		command.String("event-bus"),
		kafka.ParseBrokers(command.String("kafka-brokers")),
		command.String("consumer-group"),
		logger,
		tracer,
	)
	if err != nil {
		return err
	}

	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	executor, err := cmd.StartWorker(ctx, bus, workflow.NewRepository(persistence), registry, logger, m, cmd.ExecutorOptions(command, tracer, m)...)
	if err != nil {
		return err
	}

	if port := command.Int("metrics-port"); port > 0 {
		go func() {
			if err := serveMetrics(ctx, port, m, persistence); err != nil {
				logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
			}
		}()
	}

	logger.InfoContext(ctx, "Worker started", "event_bus", command.String("event-bus"))

	<-ctx.Done()

	logger.InfoContext(ctx, "Shutting down, waiting for in-flight runs")

	if scheduler, ok := executor.Scheduler().(*workflow.LocalScheduler); ok {
		scheduler.Wait()
	}

	return nil
}
