package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/autoflowhq/autoflow/pkg/channels/kafka"
	"github.com/autoflowhq/autoflow/pkg/cmd"
	"github.com/autoflowhq/autoflow/pkg/dispatcher"
	"github.com/autoflowhq/autoflow/pkg/log"
	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/web"
	"github.com/autoflowhq/autoflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "instagram-verify-token",
			Usage:   "Token echoed back during the Instagram webhook handshake",
			Sources: cli.EnvVars("INSTAGRAM_VERIFY_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "instagram-app-secret",
			Usage:   "App secret used to verify webhook signatures",
			Sources: cli.EnvVars("INSTAGRAM_APP_SECRET"),
		},
	}

	command := &cli.Command{
		Name:                  "autoflow-api",
		Usage:                 "Serve the workflow editor API and receive platform webhooks",
		EnableShellCompletion: true,
		Flags:                 slices.Concat(flags, cmd.CommonFlags(), cmd.EventBusFlags(false), cmd.EngineFlags()),
		Action:                run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("autoflow-api").Error("API stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	cmd.SetupLogging(command)

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing autoflow API")

	tracer := cmd.NewTracer(ctx, command.Bool("otel-enabled"), "autoflow-api", logger)
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

	repository := workflow.NewRepository(persistence)
	opts := cmd.ExecutorOptions(command, tracer, m)

	var (
		runs   web.RunStarter
		events web.InboundEventSink
	)

	switch provider := command.String("event-bus"); provider {
	case "":
		// No bus: events are dispatched and runs executed inside the API process.
		executor := workflow.NewExecutor(repository, registry, logger, opts...)
		runs = executor
		events = dispatcher.New(repository, workflow.NewTriggerMatcher(registry, logger), executor, logger, dispatcher.WithMetrics(m))
	default:
		bus, err := cmd.NewEventBus(provider, kafka.ParseBrokers(command.String("kafka-brokers")), command.String("consumer-group"), logger, tracer)
		if err != nil {
			return err
		}

		defer func() {
			if err := bus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()

		runs = workflow.NewExecutor(repository, registry, logger, append(opts, workflow.WithScheduler(dispatcher.NewBusScheduler(bus)))...)
		events = dispatcher.NewBusSink(bus)

		// An in-memory bus is only reachable from this process.
		if provider == "gochannel" {
			if _, err := cmd.StartWorker(ctx, bus, repository, registry, logger, m, opts...); err != nil {
				return err
			}
		}
	}

	api := NewAPI(
		logger,
		persistence,
		registry,
		runs,
		events,
		m,
		web.WebhookConfig{
			VerifyToken: command.String("instagram-verify-token"),
			AppSecret:   command.String("instagram-app-secret"),
		},
	)

	return api.Start(ctx, command.Int("port"))
}
