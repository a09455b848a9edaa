package cmd

import (
	"context"
	"os"

	"github.com/autoflowhq/autoflow/pkg/credentials"
	"github.com/autoflowhq/autoflow/pkg/log"
	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// CommonFlags are shared by every autoflow binary.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (file path, postgres://, sqlite://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing node plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL holding integration access tokens",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "instagram-access-token",
			Usage:   "Instagram access token used when none is stored in Redis",
			Sources: cli.EnvVars("INSTAGRAM_ACCESS_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "instagram-account-id",
			Usage:   "Instagram business account that sends messages",
			Sources: cli.EnvVars("INSTAGRAM_ACCOUNT_ID"),
		},
		&cli.BoolFlag{
			Name:    "otel-enabled",
			Usage:   "Export traces over OTLP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}

// EventBusFlags select the event bus shared by the API and the workers.
func EventBusFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "event-bus",
			Usage:    "Event bus type (gochannel, kafka)",
			Required: required,
			Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "consumer-group",
			Usage:   "Kafka consumer group",
			Value:   "autoflow",
			Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
		},
	}
}

// EngineFlags bound the execution of each run.
func EngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "run-timeout",
			Usage:   "Wall clock limit of a single run",
			Value:   workflow.DefaultTimeout,
			Sources: cli.EnvVars("RUN_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "max-node-visits",
			Usage:   "Node visits allowed per run before it times out",
			Value:   workflow.DefaultMaxNodeVisits,
			Sources: cli.EnvVars("MAX_NODE_VISITS"),
		},
		&cli.IntFlag{
			Name:    "max-concurrent-runs",
			Usage:   "Runs executed concurrently by this process",
			Value:   workflow.DefaultMaxConcurrentRuns,
			Sources: cli.EnvVars("MAX_CONCURRENT_RUNS"),
		},
	}
}

// SetupLogging installs the default logger from the common flags.
func SetupLogging(command *cli.Command) {
	log.SetupWithWriter(os.Stderr, command.String("log-level"), command.String("log-format"))
}

// TokenStoreConfigFrom reads the token store settings from the common flags.
func TokenStoreConfigFrom(command *cli.Command) TokenStoreConfig {
	return TokenStoreConfig{
		InstagramAccessToken: command.String("instagram-access-token"),
		RedisURL:             command.String("redis-url"),
	}
}

// ExecutorOptions reads the engine flags.
func ExecutorOptions(command *cli.Command, tracer trace.Tracer, m *metrics.Metrics) []workflow.Option {
	return []workflow.Option{
		workflow.WithTimeout(command.Duration("run-timeout")),
		workflow.WithMaxNodeVisits(command.Int("max-node-visits")),
		workflow.WithMaxConcurrentRuns(command.Int("max-concurrent-runs")),
		workflow.WithTracer(tracer),
		workflow.WithMetrics(m),
	}
}

// Tokens builds the token store configured by the common flags.
//
// nolint:ireturn
func Tokens(ctx context.Context, command *cli.Command) (credentials.TokenStore, error) {
	return NewTokenStore(ctx, TokenStoreConfigFrom(command), log.WithModule("credentials"))
}
