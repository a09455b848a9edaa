package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/autoflowhq/autoflow/pkg/events"
	"github.com/autoflowhq/autoflow/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var ErrUnknownEventType = errors.New("unknown event type")

// eventFactories builds an empty value for each event type the bus can decode.
var eventFactories = map[events.EventType]func() any{
	events.InboundEventReceivedEvent: func() any { return &events.InboundEventReceived{} },
	events.RunRequestedEvent:         func() any { return &events.RunRequested{} },
}

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
	tracer     trace.Tracer

	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger, tracer trace.Tracer) EventBus {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger.With("module", "event_bus"),
		tracer:        tracer,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(msg.Metadata))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			if err := eb.dispatch(ctx, msg); err != nil {
				eb.logger.ErrorContext(ctx, "failed to handle event",
					"message_id", msg.UUID,
					"event_type", msg.Metadata.Get(events.EventTypeMetadataKey),
					"error", err,
				)
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) error {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	// Nobody here cares about this type; another consumer group may.
	if !exists {
		return nil
	}

	factory, known := eventFactories[eventType]
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	event := factory()
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return fmt.Errorf("decode %s: %w", eventType, err)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Metadata))

	ctx, span := otelhelper.StartSpan(ctx, eb.tracer, "event_bus.consume",
		attribute.String(otelhelper.EventTypeKey, string(eventType)),
	)
	defer span.End()

	if err := handler(ctx, event); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	return nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	if _, ok := eventFactories[eventType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
