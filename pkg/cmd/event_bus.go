package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/autoflowhq/autoflow/pkg/channels/gochannel"
	"github.com/autoflowhq/autoflow/pkg/channels/kafka"
	"github.com/autoflowhq/autoflow/pkg/eventbus"
	"go.opentelemetry.io/otel/trace"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewEventBus builds the bus for provider: "gochannel" (the default) keeps
// everything in process, "kafka" connects to brokers under consumerGroup.
func NewEventBus(provider string, brokers []string, consumerGroup string, logger *slog.Logger, tracer trace.Tracer) (eventbus.EventBus, error) {
	wlogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wlogger)
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger, tracer), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wlogger, brokers, consumerGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger, tracer), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}
